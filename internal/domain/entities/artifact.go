// Package entities defines core domain models and data structures.
package entities

import "strings"

// Artifact is an inspected unit: an application, persistence item,
// kernel/system extension, or browser extension
type Artifact interface {
	// Category returns the finding category for this artifact
	Category() Category
	// SubjectKey returns the stable identifier used inside finding ids
	SubjectKey() string
	// DisplayName returns a human-readable name
	DisplayName() string
	// ExecutablePath returns the path collectors inspect, or "" when there is none
	ExecutablePath() string
}

// Application is an installed .app bundle
type Application struct {
	Name     string
	BundleID string
	AppPath  string // path of the .app bundle
	ExecPath string // Contents/MacOS/<CFBundleExecutable>, empty if missing
}

// Category implements Artifact
func (a *Application) Category() Category { return CategoryApp }

// SubjectKey is the bundle identifier, falling back to the name
func (a *Application) SubjectKey() string {
	if a.BundleID != "" {
		return a.BundleID
	}
	if a.Name != "" {
		return a.Name
	}
	return "unknown"
}

// DisplayName implements Artifact
func (a *Application) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return "Unknown"
}

// ExecutablePath implements Artifact
func (a *Application) ExecutablePath() string { return a.ExecPath }

// Location returns the executable path, or the bundle path when there is no executable
func (a *Application) Location() string {
	if a.ExecPath != "" {
		return a.ExecPath
	}
	return a.AppPath
}

// PersistenceScope is where a launchd item is installed
type PersistenceScope string

// Persistence scopes
const (
	ScopeUser   PersistenceScope = "user"   // ~/Library/LaunchAgents
	ScopeSystem PersistenceScope = "system" // /Library/LaunchAgents
	ScopeDaemon PersistenceScope = "daemon" // /Library/LaunchDaemons
)

// PersistenceItem is a launch agent or daemon
type PersistenceItem struct {
	Label     string
	Scope     PersistenceScope
	PlistPath string
	Program   string
	RunAtLoad bool
}

// Category implements Artifact
func (p *PersistenceItem) Category() Category { return CategoryPersistence }

// SubjectKey is "{scope}:{label}"
func (p *PersistenceItem) SubjectKey() string {
	scope := string(p.Scope)
	if scope == "" {
		scope = "unknown"
	}
	label := p.Label
	if label == "" {
		label = "unknown"
	}
	return scope + ":" + label
}

// DisplayName implements Artifact
func (p *PersistenceItem) DisplayName() string {
	if p.Label != "" {
		return p.Label
	}
	return "Unknown"
}

// ExecutablePath implements Artifact
func (p *PersistenceItem) ExecutablePath() string { return p.Program }

// ExtensionKind distinguishes legacy kexts from system extensions
type ExtensionKind string

// Extension kinds
const (
	KindKext            ExtensionKind = "kext"
	KindSystemExtension ExtensionKind = "system_extension"
)

// ExtensionLocation is "system" for OS-owned directories, "library" otherwise
type ExtensionLocation string

// Extension locations
const (
	LocationSystem  ExtensionLocation = "system"
	LocationLibrary ExtensionLocation = "library"
)

// KernelExtension is a .kext or .systemextension bundle
type KernelExtension struct {
	Name       string
	BundleID   string
	Version    string
	BundlePath string
	Kind       ExtensionKind
	Location   ExtensionLocation
	Loaded     bool
}

// Category implements Artifact
func (k *KernelExtension) Category() Category { return CategoryKext }

// SubjectKey is the bundle identifier, falling back to the name
func (k *KernelExtension) SubjectKey() string {
	if k.BundleID != "" {
		return k.BundleID
	}
	if k.Name != "" {
		return k.Name
	}
	return "unknown"
}

// DisplayName implements Artifact
func (k *KernelExtension) DisplayName() string {
	if k.Name != "" {
		return k.Name
	}
	return k.SubjectKey()
}

// ExecutablePath is the bundle path; codesign verifies bundles directly
func (k *KernelExtension) ExecutablePath() string { return k.BundlePath }

// UnderSystemDirectory reports whether the extension lives in the OS's own tree
func (k *KernelExtension) UnderSystemDirectory() bool {
	return k.Location == LocationSystem || strings.Contains(k.BundlePath, "/System/")
}

// Browser identifies which browser owns an extension
type Browser string

// Supported browsers
const (
	BrowserChrome  Browser = "chrome"
	BrowserFirefox Browser = "firefox"
	BrowserSafari  Browser = "safari"
)

// BrowserExtension is an installed browser add-on
type BrowserExtension struct {
	Browser             Browser
	ExtensionID         string
	Name                string
	Version             string
	ManifestPath        string
	Profile             string
	Permissions         []string
	OptionalPermissions []string
	HostPermissions     []string
}

// Category implements Artifact
func (b *BrowserExtension) Category() Category { return CategoryBrowserExtension }

// SubjectKey is "{browser}:{extension id}"
func (b *BrowserExtension) SubjectKey() string {
	id := b.ExtensionID
	if id == "" {
		id = b.Name
	}
	if id == "" {
		id = "unknown"
	}
	return string(b.Browser) + ":" + id
}

// DisplayName implements Artifact
func (b *BrowserExtension) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	return b.ExtensionID
}

// ExecutablePath is empty: browser extensions are not inspected by OS collectors
func (b *BrowserExtension) ExecutablePath() string { return "" }
