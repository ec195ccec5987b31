package gateways

import (
	"context"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// InventoryGateway enumerates artifacts per category.
// Unreadable directories are skipped; an error means the whole category could not be listed.
type InventoryGateway interface {
	Applications(ctx context.Context) ([]*entities.Application, error)
	PersistenceItems(ctx context.Context) ([]*entities.PersistenceItem, error)
	KernelExtensions(ctx context.Context) ([]*entities.KernelExtension, error)
	BrowserExtensions(ctx context.Context) ([]*entities.BrowserExtension, error)
}

// HostInfoProvider captures static host metadata
type HostInfoProvider interface {
	HostInfo(ctx context.Context) (entities.HostInfo, error)
}

// PackageSourceGateway lists apps installed through a local package manager.
// Names are lowercased .app names without the extension.
type PackageSourceGateway interface {
	ManagedApps(ctx context.Context) ([]string, error)
}

// FileInfoGateway answers filesystem questions used by trust-context building
type FileInfoGateway interface {
	Exists(path string) bool
	AgeDays(path string) (int, error)
}
