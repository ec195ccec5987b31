package macos

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// KernelExtensions lists legacy kexts and system extensions and marks the loaded ones.
// A failing kextstat leaves every extension unloaded.
func (inv *Inventory) KernelExtensions(ctx context.Context) ([]*entities.KernelExtension, error) {
	var tracker dirTracker
	var exts []*entities.KernelExtension

	for _, dir := range []string{inv.system("/Library/Extensions"), inv.system("/System/Library/Extensions")} {
		for _, entry := range tracker.read(dir) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !strings.HasSuffix(entry.Name(), ".kext") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			location := entities.LocationLibrary
			if strings.Contains(path, "/System/") {
				location = entities.LocationSystem
			}
			exts = append(exts, readExtension(path, entities.KindKext, location))
		}
	}

	sysextRoot := inv.system("/Library/SystemExtensions")
	if isDir(sysextRoot) {
		tracker.attempted++
		walkErr := filepath.WalkDir(sysextRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable subtrees are skipped
				if d != nil && d.IsDir() && path != sysextRoot {
					return fs.SkipDir
				}
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() && strings.HasSuffix(d.Name(), ".systemextension") {
				exts = append(exts, readExtension(path, entities.KindSystemExtension, entities.LocationLibrary))
				return fs.SkipDir
			}
			return nil
		})
		if walkErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			tracker.failed++
			tracker.lastErr = walkErr
		}
	}

	if err := tracker.err("kernel extensions"); err != nil {
		return nil, err
	}

	if output, err := inv.kextstat(ctx); err == nil {
		loaded := ParseKextstat(output)
		for _, ext := range exts {
			ext.Loaded = ext.BundleID != "" && loaded[ext.BundleID]
		}
	}
	return exts, nil
}

func readExtension(path string, kind entities.ExtensionKind, location entities.ExtensionLocation) *entities.KernelExtension {
	ext := &entities.KernelExtension{
		Name:       filepath.Base(path),
		BundlePath: path,
		Kind:       kind,
		Location:   location,
	}
	if info, err := readPlist(filepath.Join(path, "Contents", "Info.plist")); err == nil {
		ext.BundleID = stringValue(info, "CFBundleIdentifier")
		ext.Version = stringValue(info, "CFBundleVersion")
	}
	return ext
}
