package macos

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

var chromeProfiles = []string{"Default", "Profile 1", "Profile 2"}

const (
	safariAppExtension = "com.apple.Safari.extension"
	safariWebExtension = "com.apple.Safari.web-extension"
)

// webManifest is the subset of a WebExtensions manifest.json we read
type webManifest struct {
	Name                string        `json:"name"`
	Version             string        `json:"version"`
	Permissions         []interface{} `json:"permissions"`
	OptionalPermissions []interface{} `json:"optional_permissions"`
	HostPermissions     []interface{} `json:"host_permissions"`
	BrowserSettings     struct {
		Gecko struct {
			ID string `json:"id"`
		} `json:"gecko"`
	} `json:"browser_specific_settings"`
}

// BrowserExtensions lists Chrome, Firefox and Safari extensions
func (inv *Inventory) BrowserExtensions(ctx context.Context) ([]*entities.BrowserExtension, error) {
	var tracker dirTracker
	var exts []*entities.BrowserExtension

	if inv.home != "" {
		exts = append(exts, inv.chromeExtensions(ctx, &tracker)...)
		exts = append(exts, inv.firefoxExtensions(ctx, &tracker)...)
	}
	exts = append(exts, inv.safariExtensions(ctx, &tracker)...)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := tracker.err("browser extensions"); err != nil {
		return nil, err
	}
	return uniqueExtensions(exts), nil
}

// uniqueExtensions keeps the first copy of an extension installed in several
// profiles, so each subject yields one set of findings
func uniqueExtensions(exts []*entities.BrowserExtension) []*entities.BrowserExtension {
	seen := make(map[string]bool, len(exts))
	out := exts[:0]
	for _, ext := range exts {
		key := ext.SubjectKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ext)
	}
	return out
}

func (inv *Inventory) chromeExtensions(ctx context.Context, tracker *dirTracker) []*entities.BrowserExtension {
	var exts []*entities.BrowserExtension
	for _, profile := range chromeProfiles {
		root := inv.user(filepath.Join("Library/Application Support/Google/Chrome", profile, "Extensions"))
		for _, idEntry := range tracker.read(root) {
			if ctx.Err() != nil {
				return exts
			}
			if !idEntry.IsDir() || strings.HasPrefix(idEntry.Name(), ".") {
				continue
			}
			if ext := readChromeExtension(filepath.Join(root, idEntry.Name()), idEntry.Name(), profile); ext != nil {
				exts = append(exts, ext)
			}
		}
	}
	return exts
}

// readChromeExtension uses the newest version directory that has a manifest
func readChromeExtension(idDir, id, profile string) *entities.BrowserExtension {
	entries, err := os.ReadDir(idDir)
	if err != nil {
		return nil
	}
	versions := sortedNames(entries)
	sort.SliceStable(versions, func(i, j int) bool { return newerVersion(versions[i], versions[j]) })

	for _, version := range versions {
		manifestPath := filepath.Join(idDir, version, "manifest.json")
		if !exists(manifestPath) {
			continue
		}
		m, err := readManifest(manifestPath)
		if err != nil {
			return nil
		}
		return &entities.BrowserExtension{
			Browser:             entities.BrowserChrome,
			ExtensionID:         id,
			Name:                nameOr(m.Name),
			Version:             m.Version,
			ManifestPath:        manifestPath,
			Profile:             profile,
			Permissions:         stringsOf(m.Permissions),
			OptionalPermissions: stringsOf(m.OptionalPermissions),
			HostPermissions:     stringsOf(m.HostPermissions),
		}
	}
	return nil
}

// newerVersion orders Chrome version directories ("10.0.1_0") by their
// numeric components, falling back to string order for non-numeric parts
func newerVersion(a, b string) bool {
	split := func(r rune) bool { return r == '.' || r == '_' }
	pa, pb := strings.FieldsFunc(a, split), strings.FieldsFunc(b, split)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] == pb[i] {
			continue
		}
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		if errA == nil && errB == nil {
			return na > nb
		}
		return pa[i] > pb[i]
	}
	return len(pa) > len(pb)
}

func (inv *Inventory) firefoxExtensions(ctx context.Context, tracker *dirTracker) []*entities.BrowserExtension {
	var exts []*entities.BrowserExtension
	profilesRoot := inv.user("Library/Application Support/Firefox/Profiles")
	for _, profile := range tracker.read(profilesRoot) {
		if !profile.IsDir() {
			continue
		}
		extDir := filepath.Join(profilesRoot, profile.Name(), "extensions")
		entries, err := os.ReadDir(extDir)
		if err != nil {
			continue
		}
		for _, item := range entries {
			if ctx.Err() != nil {
				return exts
			}
			// Packed .xpi archives are not unpacked
			if !item.IsDir() {
				continue
			}
			manifestPath := filepath.Join(extDir, item.Name(), "manifest.json")
			m, err := readManifest(manifestPath)
			if err != nil {
				continue
			}
			exts = append(exts, firefoxExtension(m, item.Name(), profile.Name(), manifestPath))
		}
	}
	return exts
}

// firefoxExtension moves URL patterns out of MV2 "permissions" into host permissions
func firefoxExtension(m *webManifest, dirName, profile, manifestPath string) *entities.BrowserExtension {
	var apis, hosts []string
	for _, p := range stringsOf(m.Permissions) {
		if isHostPattern(p) {
			hosts = append(hosts, p)
		} else {
			apis = append(apis, p)
		}
	}
	if declared := stringsOf(m.HostPermissions); len(declared) > 0 {
		hosts = declared
	}

	id := m.BrowserSettings.Gecko.ID
	if id == "" {
		id = dirName
	}
	return &entities.BrowserExtension{
		Browser:             entities.BrowserFirefox,
		ExtensionID:         id,
		Name:                nameOr(m.Name),
		Version:             m.Version,
		ManifestPath:        manifestPath,
		Profile:             profile,
		Permissions:         apis,
		OptionalPermissions: stringsOf(m.OptionalPermissions),
		HostPermissions:     hosts,
	}
}

func (inv *Inventory) safariExtensions(ctx context.Context, tracker *dirTracker) []*entities.BrowserExtension {
	var exts []*entities.BrowserExtension
	appsRoot := inv.system("/Applications")
	for _, app := range tracker.read(appsRoot) {
		if !app.IsDir() || !strings.HasSuffix(app.Name(), ".app") {
			continue
		}
		pluginsDir := filepath.Join(appsRoot, app.Name(), "Contents", "PlugIns")
		plugins, err := os.ReadDir(pluginsDir)
		if err != nil {
			continue
		}
		for _, appex := range plugins {
			if ctx.Err() != nil {
				return exts
			}
			if !appex.IsDir() || !strings.HasSuffix(appex.Name(), ".appex") {
				continue
			}
			if ext := readSafariExtension(filepath.Join(pluginsDir, appex.Name()), app.Name()); ext != nil {
				exts = append(exts, ext)
			}
		}
	}
	return exts
}

// readSafariExtension returns nil for app extensions that do not extend Safari
func readSafariExtension(appexPath, appName string) *entities.BrowserExtension {
	infoPath := filepath.Join(appexPath, "Contents", "Info.plist")
	info, err := readPlist(infoPath)
	if err != nil {
		return nil
	}
	nsExtension, _ := info["NSExtension"].(map[string]interface{})
	point := stringValue(nsExtension, "NSExtensionPointIdentifier")
	if point != safariAppExtension && point != safariWebExtension {
		return nil
	}

	name := firstString(info, "CFBundleDisplayName", "CFBundleName")
	if name == "" {
		name = filepath.Base(appexPath)
	}
	ext := &entities.BrowserExtension{
		Browser:      entities.BrowserSafari,
		ExtensionID:  stringValue(info, "CFBundleIdentifier"),
		Name:         name,
		Version:      firstString(info, "CFBundleShortVersionString", "CFBundleVersion"),
		ManifestPath: infoPath,
		Profile:      appName,
	}

	if point == safariWebExtension {
		ext.Permissions = []string{"webExtensionsAPI"}
		if m, err := readManifest(filepath.Join(appexPath, "Contents", "Resources", "manifest.json")); err == nil {
			ext.Permissions = append(ext.Permissions, stringsOf(m.Permissions)...)
			ext.HostPermissions = stringsOf(m.HostPermissions)
		}
		return ext
	}

	if scripts, ok := nsExtension["SFSafariContentScript"].([]interface{}); ok {
		for _, s := range scripts {
			script, ok := s.(map[string]interface{})
			if !ok {
				continue
			}
			if patterns, ok := script["Allowed URL Patterns"].([]interface{}); ok {
				ext.HostPermissions = append(ext.HostPermissions, stringsOf(patterns)...)
			}
			if file := stringValue(script, "Script"); file != "" {
				ext.Permissions = append(ext.Permissions, "contentScript:"+file)
			}
		}
	}
	if truthy(nsExtension["SFSafariWebRequestPermissions"]) {
		ext.Permissions = append(ext.Permissions, "webRequest")
	}
	if strings.Contains(stringValue(nsExtension, "NSExtensionPrincipalClass"), "SafariExtensionHandler") {
		ext.Permissions = append(ext.Permissions, "safariExtensionHandler")
	}
	return ext
}

func readManifest(path string) (*webManifest, error) {
	//nolint:gosec // G304: path is a manifest inside a browser profile directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m webManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// stringsOf keeps the string entries; MV2 manifests may mix in objects
func stringsOf(values []interface{}) []string {
	var out []string
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func isHostPattern(p string) bool {
	return strings.Contains(p, "://") || strings.HasPrefix(p, "<all_urls>")
}

func nameOr(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}
