// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// BaselineRepository persists and loads baseline snapshots
type BaselineRepository interface {
	// Save overwrites the stored snapshot
	Save(ctx context.Context, snapshot *entities.BaselineSnapshot) error

	// Load returns the stored snapshot. A missing snapshot returns (nil, nil);
	// an unreadable one returns an error the caller may treat as absent.
	Load(ctx context.Context) (*entities.BaselineSnapshot, error)

	// Location returns where the snapshot is stored
	Location() string
}

// ConfigRepository loads the scan configuration
type ConfigRepository interface {
	// Load reads the config at path, or searches default locations when path is empty
	Load(path string) (*entities.Config, error)
}

// HistoryRepository tracks finding lifecycle across scans
type HistoryRepository interface {
	// Record upserts the current findings and resolves ids that disappeared
	Record(ctx context.Context, findings []entities.Finding) (*entities.HistorySummary, error)

	// List returns records, optionally filtered by state ("" for all)
	List(ctx context.Context, state entities.FindingState) ([]entities.HistoryRecord, error)

	Close() error
}
