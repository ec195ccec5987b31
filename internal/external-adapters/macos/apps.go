package macos

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// Applications lists .app bundles directly under /Applications and ~/Applications
func (inv *Inventory) Applications(ctx context.Context) ([]*entities.Application, error) {
	roots := []string{inv.system("/Applications")}
	if inv.home != "" {
		roots = append(roots, inv.user("Applications"))
	}

	var tracker dirTracker
	var apps []*entities.Application
	for _, root := range roots {
		for _, entry := range tracker.read(root) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !entry.IsDir() || !strings.HasSuffix(entry.Name(), ".app") {
				continue
			}
			apps = append(apps, readApplication(filepath.Join(root, entry.Name())))
		}
	}
	if err := tracker.err("applications"); err != nil {
		return nil, err
	}
	return apps, nil
}

// readApplication never fails: a bundle without a readable Info.plist keeps its directory name
func readApplication(appPath string) *entities.Application {
	app := &entities.Application{
		Name:    strings.TrimSuffix(filepath.Base(appPath), ".app"),
		AppPath: appPath,
	}

	info, err := readPlist(filepath.Join(appPath, "Contents", "Info.plist"))
	if err != nil {
		return app
	}

	app.BundleID = stringValue(info, "CFBundleIdentifier")
	if name := firstString(info, "CFBundleDisplayName", "CFBundleName"); name != "" {
		app.Name = name
	}
	if executable := stringValue(info, "CFBundleExecutable"); executable != "" {
		execPath := filepath.Join(appPath, "Contents", "MacOS", executable)
		if exists(execPath) {
			app.ExecPath = execPath
		}
	}
	return app
}
