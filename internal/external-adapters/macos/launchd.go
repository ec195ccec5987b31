package macos

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

type launchdRoot struct {
	dir   string
	scope entities.PersistenceScope
}

func (inv *Inventory) launchdRoots() []launchdRoot {
	var roots []launchdRoot
	if inv.home != "" {
		roots = append(roots, launchdRoot{dir: inv.user("Library/LaunchAgents"), scope: entities.ScopeUser})
	}
	return append(roots,
		launchdRoot{dir: inv.system("/Library/LaunchAgents"), scope: entities.ScopeSystem},
		launchdRoot{dir: inv.system("/Library/LaunchDaemons"), scope: entities.ScopeDaemon},
	)
}

// PersistenceItems lists launch agents and daemons from the user, system and daemon directories
func (inv *Inventory) PersistenceItems(ctx context.Context) ([]*entities.PersistenceItem, error) {
	var tracker dirTracker
	var items []*entities.PersistenceItem
	for _, root := range inv.launchdRoots() {
		for _, entry := range tracker.read(root.dir) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".plist") {
				continue
			}
			items = append(items, readLaunchdItem(filepath.Join(root.dir, entry.Name()), root.scope))
		}
	}
	if err := tracker.err("launchd items"); err != nil {
		return nil, err
	}
	return items, nil
}

// readLaunchdItem falls back to the file name as label when the plist is unreadable
func readLaunchdItem(plistPath string, scope entities.PersistenceScope) *entities.PersistenceItem {
	item := &entities.PersistenceItem{
		Label:     strings.TrimSuffix(filepath.Base(plistPath), ".plist"),
		Scope:     scope,
		PlistPath: plistPath,
	}

	dict, err := readPlist(plistPath)
	if err != nil {
		return item
	}

	if label := stringValue(dict, "Label"); label != "" {
		item.Label = label
	}
	item.Program = stringValue(dict, "Program")
	if item.Program == "" {
		if args, ok := dict["ProgramArguments"].([]interface{}); ok && len(args) > 0 {
			if first, ok := args[0].(string); ok {
				item.Program = first
			}
		}
	}
	item.RunAtLoad = truthy(dict["RunAtLoad"])
	return item
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case uint64:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return false
	}
}
