package entities

import "time"

// ReportSchemaVersion is the schema_version written into scan reports
const ReportSchemaVersion = "0.1"

// HostInfo is static per-scan host metadata
type HostInfo struct {
	OSVersion string
	Build     string
	Arch      string
	Hostname  string
}

// ScanReport is the result of one scan. Findings are always sorted.
type ScanReport struct {
	SchemaVersion string
	Host          HostInfo
	Timestamp     time.Time
	Findings      []Finding
}

// NewScanReport sorts a copy of findings and wraps them with host metadata
func NewScanReport(host HostInfo, timestamp time.Time, findings []Finding) *ScanReport {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	SortFindings(sorted)
	return &ScanReport{
		SchemaVersion: ReportSchemaVersion,
		Host:          host,
		Timestamp:     timestamp.UTC(),
		Findings:      sorted,
	}
}

// WithFindings returns a report with the same metadata and a different finding set
func (r *ScanReport) WithFindings(findings []Finding) *ScanReport {
	out := NewScanReport(r.Host, r.Timestamp, findings)
	out.SchemaVersion = r.SchemaVersion
	return out
}

// FormatTimestamp renders a time as ISO-8601 UTC with a "Z" suffix
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z")
}

// ScanStats summarizes orchestrator work for one scan
type ScanStats struct {
	Artifacts       map[Category]int
	FailedArtifacts map[Category]int
	FailedInventory []Category
	Duration        time.Duration
}
