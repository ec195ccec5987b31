package entities

import "time"

// BaselineEntry is the recorded state of one finding at save time
type BaselineEntry struct {
	Severity  Severity
	Title     string
	Path      string
	Category  Category
	Timestamp string
}

// BaselineSnapshot is a persisted prior finding set used for incremental reports
type BaselineSnapshot struct {
	CreatedAt time.Time
	Host      HostInfo
	Findings  map[string]BaselineEntry
}

// Contains reports whether the snapshot recorded a finding id
func (b *BaselineSnapshot) Contains(id string) bool {
	if b == nil {
		return false
	}
	_, ok := b.Findings[id]
	return ok
}

// Count returns the number of recorded findings
func (b *BaselineSnapshot) Count() int {
	if b == nil {
		return 0
	}
	return len(b.Findings)
}
