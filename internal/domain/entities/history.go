package entities

import "time"

// FindingState is the lifecycle state of a finding across scans
type FindingState string

// Finding states
const (
	StateOpen     FindingState = "OPEN"
	StateResolved FindingState = "RESOLVED"
)

// HistoryRecord tracks one finding id over time
type HistoryRecord struct {
	ID         string
	Category   Category
	Severity   Severity
	Title      string
	Path       string
	State      FindingState
	FirstSeen  time.Time
	LastSeen   time.Time
	ResolvedAt *time.Time
}

// HistorySummary reports what one scan changed in the history store
type HistorySummary struct {
	New      int
	Reopened int
	Resolved int
}
