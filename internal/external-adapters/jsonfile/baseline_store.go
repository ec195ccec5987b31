// Package jsonfile persists baseline snapshots as JSON documents.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

type snapshotHost struct {
	OSVersion string `json:"os_version"`
	Build     string `json:"build"`
	Arch      string `json:"arch"`
	Hostname  string `json:"hostname"`
}

type snapshotEntry struct {
	Severity  string  `json:"severity"`
	Title     string  `json:"title"`
	Path      *string `json:"path"`
	Category  string  `json:"category"`
	Timestamp string  `json:"timestamp"`
}

type snapshotDocument struct {
	CreatedAt string                   `json:"created_at"`
	Host      snapshotHost             `json:"host"`
	Findings  map[string]snapshotEntry `json:"findings"`
}

// BaselineStore keeps one snapshot in a JSON file
type BaselineStore struct {
	path string
}

// NewBaselineStore creates a store writing to path
func NewBaselineStore(path string) *BaselineStore {
	return &BaselineStore{path: path}
}

// Location returns the snapshot file path
func (s *BaselineStore) Location() string {
	return s.path
}

// Save overwrites the snapshot file, creating its directory if needed.
// The file is written to a temporary name and renamed into place.
func (s *BaselineStore) Save(ctx context.Context, snapshot *entities.BaselineSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".baseline-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Best-effort cleanup, rename removes it on success

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // Already failing
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close baseline: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace baseline: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file returns (nil, nil).
func (s *BaselineStore) Load(ctx context.Context) (*entities.BaselineSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	//nolint:gosec // G304: Baseline path comes from user configuration
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	return UnmarshalSnapshot(data)
}

// MarshalSnapshot encodes a snapshot with sorted finding ids
func MarshalSnapshot(snapshot *entities.BaselineSnapshot) ([]byte, error) {
	doc := snapshotDocument{
		CreatedAt: entities.FormatTimestamp(snapshot.CreatedAt),
		Host: snapshotHost{
			OSVersion: snapshot.Host.OSVersion,
			Build:     snapshot.Host.Build,
			Arch:      snapshot.Host.Arch,
			Hostname:  snapshot.Host.Hostname,
		},
		Findings: make(map[string]snapshotEntry, len(snapshot.Findings)),
	}
	for id, e := range snapshot.Findings {
		var path *string
		if e.Path != "" {
			p := e.Path
			path = &p
		}
		doc.Findings[id] = snapshotEntry{
			Severity:  e.Severity.String(),
			Title:     e.Title,
			Path:      path,
			Category:  string(e.Category),
			Timestamp: e.Timestamp,
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal baseline: %w", err)
	}
	return append(data, '\n'), nil
}

// UnmarshalSnapshot decodes a snapshot and validates every severity
func UnmarshalSnapshot(data []byte) (*entities.BaselineSnapshot, error) {
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse baseline: %w", err)
	}
	if doc.Findings == nil {
		return nil, fmt.Errorf("failed to parse baseline: missing findings")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse baseline created_at: %w", err)
	}

	snapshot := &entities.BaselineSnapshot{
		CreatedAt: createdAt.UTC(),
		Host: entities.HostInfo{
			OSVersion: doc.Host.OSVersion,
			Build:     doc.Host.Build,
			Arch:      doc.Host.Arch,
			Hostname:  doc.Host.Hostname,
		},
		Findings: make(map[string]entities.BaselineEntry, len(doc.Findings)),
	}
	for id, e := range doc.Findings {
		severity, err := entities.ParseSeverity(e.Severity)
		if err != nil {
			return nil, fmt.Errorf("baseline finding %s: %w", id, err)
		}
		entry := entities.BaselineEntry{
			Severity:  severity,
			Title:     e.Title,
			Category:  entities.Category(e.Category),
			Timestamp: e.Timestamp,
		}
		if e.Path != nil {
			entry.Path = *e.Path
		}
		snapshot.Findings[id] = entry
	}
	return snapshot, nil
}
