package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/domain/services"
)

type mockBaselineRepository struct {
	stored  *entities.BaselineSnapshot
	loadErr error
	saveErr error
}

func (m *mockBaselineRepository) Save(_ context.Context, snapshot *entities.BaselineSnapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stored = snapshot
	return nil
}

func (m *mockBaselineRepository) Load(_ context.Context) (*entities.BaselineSnapshot, error) {
	return m.stored, m.loadErr
}

func (m *mockBaselineRepository) Location() string { return "/tmp/baseline.json" }

type mockSigner struct {
	signed    []string
	verifyErr error
}

func (m *mockSigner) SignFile(filePath, sigPath string) error {
	m.signed = append(m.signed, filePath+"|"+sigPath)
	return nil
}

func (m *mockSigner) VerifyFile(_, _ string) error { return m.verifyErr }

type mockHistory struct {
	recorded int
}

func (m *mockHistory) Record(_ context.Context, findings []entities.Finding) (*entities.HistorySummary, error) {
	m.recorded += len(findings)
	return &entities.HistorySummary{New: len(findings)}, nil
}

func (m *mockHistory) List(_ context.Context, _ entities.FindingState) ([]entities.HistoryRecord, error) {
	return nil, nil
}

func (m *mockHistory) Close() error { return nil }

func testReport(findings ...entities.Finding) *entities.ScanReport {
	return entities.NewScanReport(entities.HostInfo{Hostname: "mac"}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), findings)
}

func TestBaselineOrchestrator_SaveLoadDiff(t *testing.T) {
	repo := &mockBaselineRepository{}
	signer := &mockSigner{}
	orch := NewBaselineOrchestrator(repo, services.NewBaselineDiffer(), nil, BaselineOrchestratorConfig{Signer: signer, Verifier: signer})

	first := testReport(
		entities.Finding{ID: "t1", Severity: entities.SeverityHigh, Title: "one"},
		entities.Finding{ID: "t2", Severity: entities.SeverityMed, Title: "two"},
	)
	if _, err := orch.Save(context.Background(), first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(signer.signed) != 1 || signer.signed[0] != "/tmp/baseline.json|/tmp/baseline.json.asc" {
		t.Errorf("signed = %v", signer.signed)
	}

	second := testReport(
		entities.Finding{ID: "t1", Severity: entities.SeverityHigh, Title: "one"},
		entities.Finding{ID: "t2", Severity: entities.SeverityMed, Title: "two"},
		entities.Finding{ID: "t3", Severity: entities.SeverityHigh, Title: "three"},
	)
	diffed, snapshot := orch.DiffReport(context.Background(), second)
	if snapshot == nil {
		t.Fatal("expected the saved snapshot to load")
	}
	if len(diffed.Findings) != 1 || diffed.Findings[0].ID != "t3" {
		t.Errorf("diff = %v, want [t3]", diffed.Findings)
	}
	if diffed.Host != second.Host || !diffed.Timestamp.Equal(second.Timestamp) {
		t.Error("diffed report should keep the scan metadata")
	}
}

func TestBaselineOrchestrator_LoadTreatsFailuresAsAbsent(t *testing.T) {
	stored := &entities.BaselineSnapshot{Findings: map[string]entities.BaselineEntry{"t1": {}}}

	tests := []struct {
		name     string
		repo     *mockBaselineRepository
		verifier *mockSigner
		wantNil  bool
	}{
		{"missing", &mockBaselineRepository{}, nil, true},
		{"corrupt", &mockBaselineRepository{loadErr: errors.New("invalid character")}, nil, true},
		{"bad signature", &mockBaselineRepository{stored: stored}, &mockSigner{verifyErr: errors.New("signature mismatch")}, true},
		{"good signature", &mockBaselineRepository{stored: stored}, &mockSigner{}, false},
		{"unsigned", &mockBaselineRepository{stored: stored}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := BaselineOrchestratorConfig{}
			if tt.verifier != nil {
				cfg.Verifier = tt.verifier
			}
			orch := NewBaselineOrchestrator(tt.repo, services.NewBaselineDiffer(), nil, cfg)

			got := orch.Load(context.Background())
			if (got == nil) != tt.wantNil {
				t.Errorf("Load() = %v, wantNil %v", got, tt.wantNil)
			}

			report := testReport(entities.Finding{ID: "t1"}, entities.Finding{ID: "t2"})
			diffed, _ := orch.DiffReport(context.Background(), report)
			if tt.wantNil && len(diffed.Findings) != 2 {
				t.Errorf("absent baseline should report everything, got %d", len(diffed.Findings))
			}
		})
	}
}

func TestBaselineOrchestrator_SaveError(t *testing.T) {
	repo := &mockBaselineRepository{saveErr: errors.New("read-only file system")}
	orch := NewBaselineOrchestrator(repo, services.NewBaselineDiffer(), nil, BaselineOrchestratorConfig{})
	if _, err := orch.Save(context.Background(), testReport()); err == nil {
		t.Error("expected save error")
	}
}

func TestBaselineOrchestrator_RecordHistory(t *testing.T) {
	orch := NewBaselineOrchestrator(&mockBaselineRepository{}, services.NewBaselineDiffer(), nil, BaselineOrchestratorConfig{})
	summary, err := orch.RecordHistory(context.Background(), []entities.Finding{{ID: "a"}})
	if err != nil || summary != nil {
		t.Errorf("without a history store RecordHistory() = %v, %v", summary, err)
	}

	history := &mockHistory{}
	orch = NewBaselineOrchestrator(&mockBaselineRepository{}, services.NewBaselineDiffer(), nil, BaselineOrchestratorConfig{History: history})
	summary, err = orch.RecordHistory(context.Background(), []entities.Finding{{ID: "a"}, {ID: "b"}})
	if err != nil {
		t.Fatalf("RecordHistory() error = %v", err)
	}
	if summary.New != 2 || history.recorded != 2 {
		t.Errorf("summary = %+v, recorded = %d", summary, history.recorded)
	}
}
