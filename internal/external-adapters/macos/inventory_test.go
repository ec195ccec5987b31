package macos

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"testing"

	"howett.net/plist"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// fixture builds a fake filesystem root and home directory
type fixture struct {
	t    *testing.T
	root string
	home string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	return &fixture{t: t, root: filepath.Join(base, "root"), home: filepath.Join(base, "home")}
}

func (f *fixture) inventory(kextstat string) *Inventory {
	return NewInventory(Config{
		Root: f.root,
		Home: f.home,
		Kextstat: func(context.Context) (string, error) {
			if kextstat == "" {
				return "", errors.New("kextstat unavailable")
			}
			return kextstat, nil
		},
	})
}

func (f *fixture) writePlist(path string, value interface{}) {
	f.t.Helper()
	data, err := plist.Marshal(value, plist.XMLFormat)
	if err != nil {
		f.t.Fatalf("plist.Marshal() error = %v", err)
	}
	f.write(path, data)
}

func (f *fixture) writeJSON(path string, value interface{}) {
	f.t.Helper()
	data, err := json.Marshal(value)
	if err != nil {
		f.t.Fatal(err)
	}
	f.write(path, data)
}

func (f *fixture) write(path string, data []byte) {
	f.t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		f.t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) mkdir(path string) {
	f.t.Helper()
	if err := os.MkdirAll(path, 0750); err != nil {
		f.t.Fatal(err)
	}
}

func TestInventory_Applications(t *testing.T) {
	f := newFixture(t)

	widget := filepath.Join(f.root, "Applications", "Widget.app")
	f.writePlist(filepath.Join(widget, "Contents", "Info.plist"), map[string]interface{}{
		"CFBundleIdentifier":  "com.example.widget",
		"CFBundleExecutable":  "Widget",
		"CFBundleDisplayName": "Widget Pro",
	})
	f.write(filepath.Join(widget, "Contents", "MacOS", "Widget"), []byte("bin"))

	broken := filepath.Join(f.root, "Applications", "Broken.app")
	f.write(filepath.Join(broken, "Contents", "Info.plist"), []byte("<plist><dict>"))

	noExec := filepath.Join(f.home, "Applications", "Ghost.app")
	f.writePlist(filepath.Join(noExec, "Contents", "Info.plist"), map[string]interface{}{
		"CFBundleIdentifier": "com.example.ghost",
		"CFBundleExecutable": "Ghost",
		"CFBundleName":       "Ghost",
	})

	f.write(filepath.Join(f.root, "Applications", "README.txt"), []byte("not an app"))
	f.mkdir(filepath.Join(f.root, "Applications", "Utilities"))

	apps, err := f.inventory("").Applications(context.Background())
	if err != nil {
		t.Fatalf("Applications() error = %v", err)
	}

	want := []*entities.Application{
		{Name: "Broken", AppPath: broken},
		{Name: "Widget Pro", BundleID: "com.example.widget", AppPath: widget, ExecPath: filepath.Join(widget, "Contents", "MacOS", "Widget")},
		{Name: "Ghost", BundleID: "com.example.ghost", AppPath: noExec},
	}
	if !reflect.DeepEqual(apps, want) {
		for _, a := range apps {
			t.Logf("got %+v", *a)
		}
		t.Errorf("Applications() mismatch")
	}
}

func TestInventory_Applications_MissingRoots(t *testing.T) {
	f := newFixture(t)

	apps, err := f.inventory("").Applications(context.Background())
	if err != nil {
		t.Fatalf("Applications() error = %v", err)
	}
	if len(apps) != 0 {
		t.Errorf("Applications() = %d, want 0", len(apps))
	}
}

func TestInventory_Applications_UnreadableRoot(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	f := newFixture(t)
	dir := filepath.Join(f.root, "Applications")
	f.mkdir(dir)
	if err := os.Chmod(dir, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o750) })

	if _, err := f.inventory("").Applications(context.Background()); err == nil {
		t.Error("Applications() should fail when every root is unreadable")
	}
}

func TestInventory_PersistenceItems(t *testing.T) {
	f := newFixture(t)

	userAgent := filepath.Join(f.home, "Library", "LaunchAgents", "com.bob.helper.plist")
	f.writePlist(userAgent, map[string]interface{}{
		"Label":            "com.bob.helper",
		"ProgramArguments": []string{"/Users/bob/bin/helper", "--daemon"},
		"RunAtLoad":        true,
	})

	daemon := filepath.Join(f.root, "Library", "LaunchDaemons", "com.example.daemon.plist")
	f.writePlist(daemon, map[string]interface{}{
		"Label":   "com.example.daemon",
		"Program": "/Library/Example/daemon",
	})

	unreadable := filepath.Join(f.root, "Library", "LaunchAgents", "org.broken.agent.plist")
	f.write(unreadable, []byte("{ broken = "))

	items, err := f.inventory("").PersistenceItems(context.Background())
	if err != nil {
		t.Fatalf("PersistenceItems() error = %v", err)
	}

	want := []*entities.PersistenceItem{
		{Label: "com.bob.helper", Scope: entities.ScopeUser, PlistPath: userAgent, Program: "/Users/bob/bin/helper", RunAtLoad: true},
		{Label: "org.broken.agent", Scope: entities.ScopeSystem, PlistPath: unreadable},
		{Label: "com.example.daemon", Scope: entities.ScopeDaemon, PlistPath: daemon, Program: "/Library/Example/daemon"},
	}
	if !reflect.DeepEqual(items, want) {
		for _, it := range items {
			t.Logf("got %+v", *it)
		}
		t.Errorf("PersistenceItems() mismatch")
	}
}

const kextstatOutput = `Index Refs Address            Size       Wired      Name (Version) UUID <Linked Against>
    1  142 0                  0          0          com.apple.kpi.bsd (23.4.0) 9A1B <>
  180    0 0xffffff7f8a2b3000 0x5000     0x5000     com.example.driver (1.2.3) 4F2E <8 6 5 3>
`

func TestInventory_KernelExtensions(t *testing.T) {
	f := newFixture(t)

	libKext := filepath.Join(f.root, "Library", "Extensions", "ExampleDriver.kext")
	f.writePlist(filepath.Join(libKext, "Contents", "Info.plist"), map[string]interface{}{
		"CFBundleIdentifier": "com.example.driver",
		"CFBundleVersion":    "1.2.3",
	})

	sysKext := filepath.Join(f.root, "System", "Library", "Extensions", "AppleThing.kext")
	f.writePlist(filepath.Join(sysKext, "Contents", "Info.plist"), map[string]interface{}{
		"CFBundleIdentifier": "com.apple.thing",
	})

	sysext := filepath.Join(f.root, "Library", "SystemExtensions", "ABCD-1234", "com.vendor.filter.systemextension")
	f.writePlist(filepath.Join(sysext, "Contents", "Info.plist"), map[string]interface{}{
		"CFBundleIdentifier": "com.vendor.filter",
		"CFBundleVersion":    "7",
	})

	exts, err := f.inventory(kextstatOutput).KernelExtensions(context.Background())
	if err != nil {
		t.Fatalf("KernelExtensions() error = %v", err)
	}

	want := []*entities.KernelExtension{
		{Name: "ExampleDriver.kext", BundleID: "com.example.driver", Version: "1.2.3", BundlePath: libKext, Kind: entities.KindKext, Location: entities.LocationLibrary, Loaded: true},
		{Name: "AppleThing.kext", BundleID: "com.apple.thing", BundlePath: sysKext, Kind: entities.KindKext, Location: entities.LocationSystem},
		{Name: "com.vendor.filter.systemextension", BundleID: "com.vendor.filter", Version: "7", BundlePath: sysext, Kind: entities.KindSystemExtension, Location: entities.LocationLibrary},
	}
	if !reflect.DeepEqual(exts, want) {
		for _, e := range exts {
			t.Logf("got %+v", *e)
		}
		t.Errorf("KernelExtensions() mismatch")
	}

	if !exts[1].UnderSystemDirectory() {
		t.Error("system kext should be under the system directory")
	}
}

func TestInventory_KernelExtensions_KextstatFailure(t *testing.T) {
	f := newFixture(t)
	f.writePlist(filepath.Join(f.root, "Library", "Extensions", "ExampleDriver.kext", "Contents", "Info.plist"), map[string]interface{}{
		"CFBundleIdentifier": "com.example.driver",
	})

	exts, err := f.inventory("").KernelExtensions(context.Background())
	if err != nil {
		t.Fatalf("KernelExtensions() error = %v", err)
	}
	if len(exts) != 1 || exts[0].Loaded {
		t.Errorf("KernelExtensions() = %+v, want one unloaded kext", exts)
	}
}

func TestParseKextstat(t *testing.T) {
	loaded := ParseKextstat(kextstatOutput)
	want := map[string]bool{"com.apple.kpi.bsd": true, "com.example.driver": true}
	if !reflect.DeepEqual(loaded, want) {
		t.Errorf("ParseKextstat() = %v, want %v", loaded, want)
	}
	if got := ParseKextstat(""); len(got) != 0 {
		t.Errorf("ParseKextstat(\"\") = %v, want empty", got)
	}
}

func TestInventory_BrowserExtensions(t *testing.T) {
	f := newFixture(t)
	chromeRoot := filepath.Join(f.home, "Library", "Application Support", "Google", "Chrome")

	f.writeJSON(filepath.Join(chromeRoot, "Default", "Extensions", "abcdefgh", "1.0.0_0", "manifest.json"), map[string]interface{}{
		"name":        "Old",
		"version":     "1.0.0",
		"permissions": []string{"tabs"},
	})
	f.writeJSON(filepath.Join(chromeRoot, "Default", "Extensions", "abcdefgh", "2.0.0_0", "manifest.json"), map[string]interface{}{
		"name":             "Tab Helper",
		"version":          "2.0.0",
		"permissions":      []interface{}{"tabs", "cookies", map[string]interface{}{"fileSystem": []string{"write"}}},
		"host_permissions": []string{"<all_urls>"},
	})
	f.mkdir(filepath.Join(chromeRoot, "Default", "Extensions", ".DS_Store_dir"))

	ffManifest := filepath.Join(f.home, "Library", "Application Support", "Firefox", "Profiles", "x1y2.default", "extensions", "blocker", "manifest.json")
	f.writeJSON(ffManifest, map[string]interface{}{
		"name":        "Blocker",
		"version":     "3.1",
		"permissions": []string{"webRequest", "https://*/*", "<all_urls>", "storage"},
		"browser_specific_settings": map[string]interface{}{
			"gecko": map[string]interface{}{"id": "blocker@example.org"},
		},
	})
	f.write(filepath.Join(f.home, "Library", "Application Support", "Firefox", "Profiles", "x1y2.default", "extensions", "packed.xpi"), []byte("zip"))

	appex := filepath.Join(f.root, "Applications", "AdBlock.app", "Contents", "PlugIns", "Blocker.appex")
	f.writePlist(filepath.Join(appex, "Contents", "Info.plist"), map[string]interface{}{
		"CFBundleIdentifier":         "com.adblock.safari",
		"CFBundleDisplayName":        "AdBlock",
		"CFBundleShortVersionString": "5.0",
		"NSExtension": map[string]interface{}{
			"NSExtensionPointIdentifier": "com.apple.Safari.extension",
			"NSExtensionPrincipalClass":  "SafariExtensionHandler",
			"SFSafariContentScript": []interface{}{
				map[string]interface{}{"Script": "inject.js", "Allowed URL Patterns": []string{"*://*/*"}},
			},
			"SFSafariWebRequestPermissions": map[string]interface{}{"Allowed": true},
		},
	})
	webAppex := filepath.Join(f.root, "Applications", "Notes.app", "Contents", "PlugIns", "Clipper.appex")
	f.writePlist(filepath.Join(webAppex, "Contents", "Info.plist"), map[string]interface{}{
		"CFBundleIdentifier": "com.notes.clipper",
		"CFBundleName":       "Clipper",
		"CFBundleVersion":    "12",
		"NSExtension": map[string]interface{}{
			"NSExtensionPointIdentifier": "com.apple.Safari.web-extension",
		},
	})
	f.writeJSON(filepath.Join(webAppex, "Contents", "Resources", "manifest.json"), map[string]interface{}{
		"permissions":      []string{"activeTab"},
		"host_permissions": []string{"https://notes.example.com/*"},
	})
	shareAppex := filepath.Join(f.root, "Applications", "Notes.app", "Contents", "PlugIns", "Share.appex")
	f.writePlist(filepath.Join(shareAppex, "Contents", "Info.plist"), map[string]interface{}{
		"NSExtension": map[string]interface{}{"NSExtensionPointIdentifier": "com.apple.share-services"},
	})

	exts, err := f.inventory("").BrowserExtensions(context.Background())
	if err != nil {
		t.Fatalf("BrowserExtensions() error = %v", err)
	}

	byKey := make(map[string]*entities.BrowserExtension)
	var keys []string
	for _, e := range exts {
		byKey[e.SubjectKey()] = e
		keys = append(keys, e.SubjectKey())
	}
	sort.Strings(keys)
	wantKeys := []string{"chrome:abcdefgh", "firefox:blocker@example.org", "safari:com.adblock.safari", "safari:com.notes.clipper"}
	if !reflect.DeepEqual(keys, wantKeys) {
		t.Fatalf("extension keys = %v, want %v", keys, wantKeys)
	}

	chrome := byKey["chrome:abcdefgh"]
	if chrome.Name != "Tab Helper" || chrome.Version != "2.0.0" || chrome.Profile != "Default" {
		t.Errorf("chrome = %+v, want newest version from Default profile", chrome)
	}
	if !reflect.DeepEqual(chrome.Permissions, []string{"tabs", "cookies"}) {
		t.Errorf("chrome permissions = %v", chrome.Permissions)
	}

	ff := byKey["firefox:blocker@example.org"]
	if !reflect.DeepEqual(ff.Permissions, []string{"webRequest", "storage"}) {
		t.Errorf("firefox permissions = %v", ff.Permissions)
	}
	if !reflect.DeepEqual(ff.HostPermissions, []string{"https://*/*", "<all_urls>"}) {
		t.Errorf("firefox host permissions = %v", ff.HostPermissions)
	}
	if ff.Profile != "x1y2.default" {
		t.Errorf("firefox profile = %q", ff.Profile)
	}

	safari := byKey["safari:com.adblock.safari"]
	if !reflect.DeepEqual(safari.Permissions, []string{"contentScript:inject.js", "webRequest", "safariExtensionHandler"}) {
		t.Errorf("safari permissions = %v", safari.Permissions)
	}
	if !reflect.DeepEqual(safari.HostPermissions, []string{"*://*/*"}) {
		t.Errorf("safari host permissions = %v", safari.HostPermissions)
	}
	if safari.Name != "AdBlock" || safari.Version != "5.0" || safari.Profile != "AdBlock.app" {
		t.Errorf("safari = %+v", safari)
	}

	web := byKey["safari:com.notes.clipper"]
	if !reflect.DeepEqual(web.Permissions, []string{"webExtensionsAPI", "activeTab"}) {
		t.Errorf("safari web permissions = %v", web.Permissions)
	}
	if !reflect.DeepEqual(web.HostPermissions, []string{"https://notes.example.com/*"}) {
		t.Errorf("safari web host permissions = %v", web.HostPermissions)
	}
	if web.Name != "Clipper" || web.Version != "12" {
		t.Errorf("safari web = %+v", web)
	}
}

func TestInventory_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.writePlist(filepath.Join(f.root, "Applications", "Widget.app", "Contents", "Info.plist"), map[string]interface{}{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.inventory("").Applications(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Applications() error = %v, want context.Canceled", err)
	}
}

func TestInventory_ChromeExtensionAcrossProfiles(t *testing.T) {
	f := newFixture(t)
	chromeRoot := filepath.Join(f.home, "Library", "Application Support", "Google", "Chrome")
	for _, dir := range []string{"9.0.0_0", "10.0.0_0"} {
		version := strings.TrimSuffix(dir, "_0")
		f.writeJSON(filepath.Join(chromeRoot, "Default", "Extensions", "mnopqr", dir, "manifest.json"), map[string]interface{}{
			"name":    "Sync " + version,
			"version": version,
		})
	}
	f.writeJSON(filepath.Join(chromeRoot, "Profile 1", "Extensions", "mnopqr", "11.0.0_0", "manifest.json"), map[string]interface{}{
		"name":    "Sync 11.0.0",
		"version": "11.0.0",
	})

	exts, err := f.inventory("").BrowserExtensions(context.Background())
	if err != nil {
		t.Fatalf("BrowserExtensions() error = %v", err)
	}
	if len(exts) != 1 {
		t.Fatalf("got %d extensions, want one per extension id", len(exts))
	}
	if exts[0].Profile != "Default" || exts[0].Version != "10.0.0" {
		t.Errorf("extension = %+v, want newest version from the Default profile", exts[0])
	}
}

func TestNewerVersion(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"10.0.0_0", "9.0.0_0", true},
		{"9.0.0_0", "10.0.0_0", false},
		{"1.2.10_0", "1.2.9_0", true},
		{"1.2.3_1", "1.2.3_0", true},
		{"1.2.3.1", "1.2.3", true},
		{"1.2.3", "1.2.3", false},
		{"2.0.beta", "2.0.alpha", true},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			if got := newerVersion(tt.a, tt.b); got != tt.want {
				t.Errorf("newerVersion(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
