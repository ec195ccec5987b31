package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

type jsonHost struct {
	OSVersion string `json:"os_version"`
	Build     string `json:"build"`
	Arch      string `json:"arch"`
	Hostname  string `json:"hostname"`
}

type jsonFinding struct {
	ID             string            `json:"id"`
	Category       string            `json:"category"`
	Severity       string            `json:"severity"`
	Title          string            `json:"title"`
	Details        string            `json:"details"`
	Recommendation string            `json:"recommendation"`
	Path           *string           `json:"path"`
	Evidence       map[string]string `json:"evidence"`
}

type jsonReport struct {
	SchemaVersion string        `json:"schema_version"`
	Host          jsonHost      `json:"host"`
	Timestamp     string        `json:"timestamp"`
	Findings      []jsonFinding `json:"findings"`
}

// MarshalReport encodes a report as indented JSON. Map keys are emitted sorted.
func MarshalReport(report *entities.ScanReport) ([]byte, error) {
	doc := jsonReport{
		SchemaVersion: report.SchemaVersion,
		Host: jsonHost{
			OSVersion: report.Host.OSVersion,
			Build:     report.Host.Build,
			Arch:      report.Host.Arch,
			Hostname:  report.Host.Hostname,
		},
		Timestamp: entities.FormatTimestamp(report.Timestamp),
		Findings:  make([]jsonFinding, 0, len(report.Findings)),
	}
	for _, f := range report.Findings {
		evidence := f.Evidence
		if evidence == nil {
			evidence = map[string]string{}
		}
		doc.Findings = append(doc.Findings, jsonFinding{
			ID:             f.ID,
			Category:       string(f.Category),
			Severity:       f.Severity.String(),
			Title:          f.Title,
			Details:        f.Details,
			Recommendation: f.Recommendation,
			Path:           optionalPath(f.Path),
			Evidence:       evidence,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// WriteJSON writes the JSON report followed by a newline
func WriteJSON(w io.Writer, report *entities.ScanReport) error {
	data, err := MarshalReport(report)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func optionalPath(path string) *string {
	if path == "" {
		return nil
	}
	return &path
}
