// Package macos enumerates installed applications, launchd items, kernel and
// system extensions, and browser extensions from the local filesystem.
package macos

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"howett.net/plist"
)

const kextstatTimeout = 10 * time.Second

// Config locates the filesystem trees to enumerate
type Config struct {
	Root string // filesystem root, "/" when empty
	Home string // user home directory

	// Kextstat returns "kextstat -l" output; nil runs /usr/sbin/kextstat
	Kextstat func(ctx context.Context) (string, error)
}

// Inventory implements gateways.InventoryGateway
type Inventory struct {
	root     string
	home     string
	kextstat func(ctx context.Context) (string, error)
}

// NewInventory creates an inventory reader
func NewInventory(config Config) *Inventory {
	root := config.Root
	if root == "" {
		root = "/"
	}
	kextstat := config.Kextstat
	if kextstat == nil {
		kextstat = runKextstat
	}
	return &Inventory{
		root:     root,
		home:     config.Home,
		kextstat: kextstat,
	}
}

func (inv *Inventory) system(path string) string {
	return filepath.Join(inv.root, path)
}

func (inv *Inventory) user(path string) string {
	return filepath.Join(inv.home, path)
}

// dirTracker counts directories that existed but could not be read
type dirTracker struct {
	attempted int
	failed    int
	lastErr   error
}

// read lists dir sorted by name. Missing directories are skipped silently.
func (d *dirTracker) read(dir string) []os.DirEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		d.attempted++
		d.failed++
		d.lastErr = err
		return nil
	}
	d.attempted++
	return entries
}

// err reports a category failure when every existing root was unreadable
func (d *dirTracker) err(category string) error {
	if d.attempted > 0 && d.failed == d.attempted {
		return fmt.Errorf("failed to list %s: %w", category, d.lastErr)
	}
	return nil
}

// readPlist decodes an XML, binary or OpenStep plist into a dictionary
func readPlist(path string) (map[string]interface{}, error) {
	//nolint:gosec // G304: path is a plist inside a scanned system directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var dict map[string]interface{}
	if _, err := plist.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return dict, nil
}

func stringValue(dict map[string]interface{}, key string) string {
	if s, ok := dict[key].(string); ok {
		return s
	}
	return ""
}

func firstString(dict map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := stringValue(dict, key); s != "" {
			return s
		}
	}
	return ""
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runKextstat(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, kextstatTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "/usr/sbin/kextstat", "-l").Output()
	if err != nil {
		return "", fmt.Errorf("kextstat failed: %w", err)
	}
	return string(out), nil
}

// ParseKextstat extracts bundle ids from "kextstat -l" output.
// Rows look like "Index Refs Address Size Wired Name (Version) UUID <Linked Against>".
func ParseKextstat(output string) map[string]bool {
	loaded := make(map[string]bool)
	lines := strings.Split(output, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		rest := strings.Join(fields[5:], " ")
		idx := strings.Index(rest, "(")
		if idx < 0 {
			continue
		}
		if id := strings.TrimSpace(rest[:idx]); id != "" {
			loaded[id] = true
		}
	}
	return loaded
}

func sortedNames(entries []os.DirEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
