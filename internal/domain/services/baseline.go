package services

import (
	"time"

	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/domain/interfaces/services"
)

// baselineDiffer compares findings by id and severity only
type baselineDiffer struct{}

// NewBaselineDiffer creates a BaselineDiffer
func NewBaselineDiffer() services.BaselineDiffer {
	return &baselineDiffer{}
}

// Diff keeps findings whose id is absent from the snapshot or whose severity changed.
// A nil snapshot yields every finding.
func (d *baselineDiffer) Diff(findings []entities.Finding, snapshot *entities.BaselineSnapshot) []entities.Finding {
	if snapshot == nil || len(snapshot.Findings) == 0 {
		out := make([]entities.Finding, len(findings))
		copy(out, findings)
		return out
	}

	out := make([]entities.Finding, 0, len(findings))
	for _, f := range findings {
		prev, ok := snapshot.Findings[f.ID]
		if !ok || prev.Severity != f.Severity {
			out = append(out, f)
		}
	}
	return out
}

// NewBaselineSnapshot records every finding of a report.
// The snapshot replaces any previous one wholesale.
func NewBaselineSnapshot(report *entities.ScanReport, now time.Time) *entities.BaselineSnapshot {
	snapshot := &entities.BaselineSnapshot{
		CreatedAt: now.UTC(),
		Findings:  make(map[string]entities.BaselineEntry),
	}
	if report == nil {
		return snapshot
	}

	snapshot.Host = report.Host
	stamp := entities.FormatTimestamp(report.Timestamp)
	for _, f := range report.Findings {
		snapshot.Findings[f.ID] = entities.BaselineEntry{
			Severity:  f.Severity,
			Title:     f.Title,
			Path:      f.Path,
			Category:  f.Category,
			Timestamp: stamp,
		}
	}
	return snapshot
}

// BaselineChange classifies one diffed finding against the snapshot
type BaselineChange struct {
	Finding  entities.Finding
	Previous *entities.Severity // nil for findings absent from the snapshot
}

// ClassifyChanges annotates diff output with the previously recorded severity
func ClassifyChanges(diffed []entities.Finding, snapshot *entities.BaselineSnapshot) []BaselineChange {
	out := make([]BaselineChange, 0, len(diffed))
	for _, f := range diffed {
		change := BaselineChange{Finding: f}
		if snapshot != nil {
			if prev, ok := snapshot.Findings[f.ID]; ok {
				sev := prev.Severity
				change.Previous = &sev
			}
		}
		out = append(out, change)
	}
	return out
}
