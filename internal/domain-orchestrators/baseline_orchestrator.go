package orchestrators

import (
	"context"
	"fmt"
	"time"

	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/domain/interfaces"
	"github.com/ochairo/trustscan/internal/domain/interfaces/gateways"
	"github.com/ochairo/trustscan/internal/domain/interfaces/repositories"
	"github.com/ochairo/trustscan/internal/domain/interfaces/services"
	domainservices "github.com/ochairo/trustscan/internal/domain/services"
)

// SignatureSuffix is appended to the baseline path for its detached signature
const SignatureSuffix = ".asc"

// BaselineOrchestratorConfig holds optional collaborators
type BaselineOrchestratorConfig struct {
	Signer   gateways.SnapshotSigner        // signs saved snapshots when set
	Verifier gateways.SnapshotSigner        // checks snapshots before loading when set
	History  repositories.HistoryRepository // records finding lifecycle when set
	Now      func() time.Time
}

// BaselineOrchestrator coordinates saving, loading, signing and diffing baselines
type BaselineOrchestrator struct {
	repo     repositories.BaselineRepository
	differ   services.BaselineDiffer
	signer   gateways.SnapshotSigner
	verifier gateways.SnapshotSigner
	history  repositories.HistoryRepository
	logger   interfaces.Logger
	now      func() time.Time
}

// NewBaselineOrchestrator creates a new baseline orchestrator
func NewBaselineOrchestrator(
	repo repositories.BaselineRepository,
	differ services.BaselineDiffer,
	logger interfaces.Logger,
	config BaselineOrchestratorConfig,
) *BaselineOrchestrator {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &BaselineOrchestrator{
		repo:     repo,
		differ:   differ,
		signer:   config.Signer,
		verifier: config.Verifier,
		history:  config.History,
		logger:   interfaces.OrNoOp(logger),
		now:      now,
	}
}

// Location returns where the baseline is stored
func (o *BaselineOrchestrator) Location() string {
	return o.repo.Location()
}

// Save overwrites the stored baseline with every finding of the report
func (o *BaselineOrchestrator) Save(ctx context.Context, report *entities.ScanReport) (*entities.BaselineSnapshot, error) {
	snapshot := domainservices.NewBaselineSnapshot(report, o.now())
	if err := o.repo.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save baseline: %w", err)
	}

	if o.signer != nil {
		location := o.repo.Location()
		if err := o.signer.SignFile(location, location+SignatureSuffix); err != nil {
			return nil, fmt.Errorf("failed to sign baseline: %w", err)
		}
	}

	o.logger.Info("baseline saved",
		interfaces.F("path", o.repo.Location()),
		interfaces.F("findings", snapshot.Count()))
	return snapshot, nil
}

// Load returns the stored baseline, or nil when it is missing, corrupt or
// fails signature verification
func (o *BaselineOrchestrator) Load(ctx context.Context) *entities.BaselineSnapshot {
	location := o.repo.Location()

	snapshot, err := o.repo.Load(ctx)
	if err != nil {
		o.logger.Warn("baseline unreadable, treating as absent",
			interfaces.F("path", location), interfaces.Err(err))
		return nil
	}
	if snapshot == nil || o.verifier == nil {
		return snapshot
	}

	if err := o.verifier.VerifyFile(location, location+SignatureSuffix); err != nil {
		o.logger.Warn("baseline signature check failed, ignoring baseline",
			interfaces.F("path", location), interfaces.Err(err))
		return nil
	}
	return snapshot
}

// Diff reduces findings to those new or changed since the snapshot
func (o *BaselineOrchestrator) Diff(findings []entities.Finding, snapshot *entities.BaselineSnapshot) []entities.Finding {
	return o.differ.Diff(findings, snapshot)
}

// DiffReport loads the stored baseline and returns the report reduced to new or
// changed findings. The loaded snapshot is nil when there was none to compare.
func (o *BaselineOrchestrator) DiffReport(ctx context.Context, report *entities.ScanReport) (*entities.ScanReport, *entities.BaselineSnapshot) {
	snapshot := o.Load(ctx)
	if snapshot == nil {
		return report, nil
	}
	return report.WithFindings(o.Diff(report.Findings, snapshot)), snapshot
}

// RecordHistory updates the finding lifecycle store. It is a no-op without one.
func (o *BaselineOrchestrator) RecordHistory(ctx context.Context, findings []entities.Finding) (*entities.HistorySummary, error) {
	if o.history == nil {
		return nil, nil
	}
	summary, err := o.history.Record(ctx, findings)
	if err != nil {
		return nil, fmt.Errorf("failed to record history: %w", err)
	}
	o.logger.Debug("history recorded",
		interfaces.F("new", summary.New),
		interfaces.F("reopened", summary.Reopened),
		interfaces.F("resolved", summary.Resolved))
	return summary, nil
}
