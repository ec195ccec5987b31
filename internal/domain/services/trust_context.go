package services

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/domain/interfaces"
	"github.com/ochairo/trustscan/internal/domain/interfaces/gateways"
	"github.com/ochairo/trustscan/internal/domain/interfaces/services"
)

var browserSources = []string{"safari", "chrome", "firefox", "edge", "brave", "opera"}

// trustContextFactory creates one builder per scan
type trustContextFactory struct {
	files    gateways.FileInfoGateway
	packages gateways.PackageSourceGateway
	logger   interfaces.Logger
}

// NewTrustContextFactory creates a factory for scan-scoped trust context builders.
// packages may be nil when no local package manager is available.
func NewTrustContextFactory(files gateways.FileInfoGateway, packages gateways.PackageSourceGateway, logger interfaces.Logger) services.TrustContextFactory {
	return &trustContextFactory{
		files:    files,
		packages: packages,
		logger:   interfaces.OrNoOp(logger),
	}
}

// NewScan returns a builder whose managed-app cache lives only as long as the builder
func (f *trustContextFactory) NewScan(ctx context.Context, cfg *entities.Config) services.TrustContextBuilder {
	return &trustContextBuilder{
		cfg:     cfg,
		files:   f.files,
		managed: NewManagedAppCache(ctx, f.packages, f.logger),
	}
}

type trustContextBuilder struct {
	cfg     *entities.Config
	files   gateways.FileInfoGateway
	managed *ManagedAppCache
}

// Build derives trust facts for one artifact. It never fails; unknown facts keep zero values.
func (b *trustContextBuilder) Build(artifact entities.Artifact, signals entities.Signals) entities.TrustContext {
	teamID := signals.TeamID()
	execPath := artifact.ExecutablePath()

	tc := entities.TrustContext{
		TeamID:           teamID,
		KnownPublisher:   IsKnownVendor(teamID) || b.cfg.IsTrustedVendor(teamID),
		SystemHelperPath: IsSystemHelperPath(execPath),
		UserWritablePath: IsUserWritablePath(execPath),
		AgeDays:          -1,
	}
	if IsKnownVendor(teamID) {
		tc.VendorName = VendorName(teamID)
	}

	if signals.Quarantine != nil {
		if source, ok := ParseQuarantineSource(signals.Quarantine.Value); ok {
			tc.QuarantineSource = source
			tc.HomebrewSource = IsHomebrewSource(source)
			tc.BrowserSource = IsBrowserSource(source)
		}
	}

	app, ok := artifact.(*entities.Application)
	if !ok {
		if execPath != "" && b.files != nil {
			if age, err := b.files.AgeDays(execPath); err == nil {
				tc.AgeDays = age
			}
		}
		return tc
	}

	bundle := AppBundlePath(app.AppPath)
	if bundle == "" {
		bundle = AppBundlePath(app.ExecPath)
	}
	if bundle != "" && b.files != nil {
		tc.AppStore = b.files.Exists(filepath.Join(bundle, "Contents", "_MASReceipt", "receipt"))
		if age, err := b.files.AgeDays(bundle); err == nil {
			tc.AgeDays = age
		}
	}

	// brew is only consulted when the answer can change a finding
	if b.cfg.TrustHomebrewCask && signals.Quarantined() && !tc.HomebrewSource {
		tc.ManagedPackage = b.managed.Contains(AppNameFromPath(bundle))
		tc.HomebrewSource = tc.ManagedPackage
	}
	return tc
}

// ManagedAppCache memoizes the local package manager's app list for one scan
type ManagedAppCache struct {
	ctx      context.Context
	packages gateways.PackageSourceGateway
	logger   interfaces.Logger

	once sync.Once
	apps map[string]struct{}
}

// NewManagedAppCache creates an empty cache; the package source is queried on first use
func NewManagedAppCache(ctx context.Context, packages gateways.PackageSourceGateway, logger interfaces.Logger) *ManagedAppCache {
	return &ManagedAppCache{ctx: ctx, packages: packages, logger: interfaces.OrNoOp(logger)}
}

// Contains reports whether name (lowercased, no .app) is managed. Safe for concurrent use.
func (c *ManagedAppCache) Contains(name string) bool {
	if name == "" {
		return false
	}
	c.once.Do(c.load)
	_, ok := c.apps[name]
	return ok
}

func (c *ManagedAppCache) load() {
	c.apps = make(map[string]struct{})
	if c.packages == nil {
		return
	}
	names, err := c.packages.ManagedApps(c.ctx)
	if err != nil {
		c.logger.Debug("package source unavailable", interfaces.Err(err))
		return
	}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			c.apps[n] = struct{}{}
		}
	}
}

// ParseQuarantineSource extracts the downloading agent from a
// "flags;timestamp;agent;uuid" quarantine value
func ParseQuarantineSource(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	parts := strings.Split(value, ";")
	if len(parts) < 3 {
		return "", false
	}
	return strings.ReplaceAll(parts[2], `\x20`, " "), true
}

// IsHomebrewSource reports whether a quarantine agent is Homebrew
func IsHomebrewSource(source string) bool {
	return strings.Contains(strings.ToLower(source), "homebrew")
}

// IsBrowserSource reports whether a quarantine agent is a web browser
func IsBrowserSource(source string) bool {
	lower := strings.ToLower(source)
	for _, b := range browserSources {
		if strings.Contains(lower, b) {
			return true
		}
	}
	return false
}

// AppBundlePath returns the enclosing ".app" bundle of path, or ""
func AppBundlePath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasSuffix(path, ".app") {
		return path
	}
	if idx := strings.Index(path, ".app/"); idx >= 0 {
		return path[:idx+len(".app")]
	}
	return ""
}

// AppNameFromPath returns the lowercased bundle name without ".app"
func AppNameFromPath(path string) string {
	bundle := AppBundlePath(path)
	if bundle == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSuffix(filepath.Base(bundle), ".app"))
}
