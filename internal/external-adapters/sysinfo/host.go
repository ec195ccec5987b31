// Package sysinfo captures static metadata about the scanned host.
package sysinfo

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// Provider implements gateways.HostInfoProvider
type Provider struct {
	osRelease func() (version, build string, err error)
	hostname  func() (string, error)
	goarch    string
}

// NewProvider creates a host info provider for the running machine
func NewProvider() *Provider {
	return &Provider{
		osRelease: osRelease,
		hostname:  os.Hostname,
		goarch:    runtime.GOARCH,
	}
}

// HostInfo returns OS version, build, machine architecture and hostname.
// Fields that cannot be read are left empty; an error is returned alongside the partial result.
func (p *Provider) HostInfo(_ context.Context) (entities.HostInfo, error) {
	info := entities.HostInfo{Arch: MachineArch(p.goarch)}

	var firstErr error
	version, build, err := p.osRelease()
	if err != nil {
		firstErr = fmt.Errorf("failed to read OS release: %w", err)
	}
	info.OSVersion = version
	info.Build = build

	host, err := p.hostname()
	if err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to read hostname: %w", err)
	}
	info.Hostname = host

	return info, firstErr
}

// MachineArch maps a Go architecture name to the uname machine name
func MachineArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "i386"
	default:
		return goarch
	}
}

// IsMacOS reports whether the binary runs on macOS
func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}
