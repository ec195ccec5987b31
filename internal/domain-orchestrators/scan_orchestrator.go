// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/domain/interfaces"
	"github.com/ochairo/trustscan/internal/domain/interfaces/gateways"
	"github.com/ochairo/trustscan/internal/domain/interfaces/services"
	domainservices "github.com/ochairo/trustscan/internal/domain/services"
)

// ErrAllInventoriesFailed is returned when no artifact category could be enumerated
var ErrAllInventoriesFailed = errors.New("all inventories failed")

// DefaultWorkers bounds the per-category worker pool in parallel mode
const DefaultWorkers = 8

// ScanMode selects sequential or bounded-parallel artifact processing
type ScanMode int

// Scan modes
const (
	ModeSequential ScanMode = iota
	ModeParallel
)

// ArtifactState tracks how far one artifact got through the audit
type ArtifactState int

// Artifact states, in order
const (
	StateDiscovered ArtifactState = iota
	StateCollectorsInvoked
	StateRuleEvaluated
	StateDone
)

func (s ArtifactState) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateCollectorsInvoked:
		return "collectors_invoked"
	case StateRuleEvaluated:
		return "rule_evaluated"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ArtifactOutcome is the result of auditing one artifact.
// State is always StateDone once returned; FailedAt records the last state
// reached before Err occurred.
type ArtifactOutcome struct {
	Artifact entities.Artifact
	State    ArtifactState
	FailedAt ArtifactState
	Findings []entities.Finding
	Err      error
}

// ScanResult contains the report and bookkeeping of one scan
type ScanResult struct {
	Report   *entities.ScanReport
	Stats    entities.ScanStats
	Outcomes []ArtifactOutcome
}

// ScanOrchestratorConfig holds optional settings for the orchestrator
type ScanOrchestratorConfig struct {
	Workers int              // parallel pool size, DefaultWorkers when zero
	Now     func() time.Time // report clock, time.Now when nil
}

// ScanOrchestrator drives inventory, collectors and the rule engine over every artifact
type ScanOrchestrator struct {
	inventory  gateways.InventoryGateway
	collectors gateways.CollectorGateway
	files      gateways.FileInfoGateway
	host       gateways.HostInfoProvider
	trust      services.TrustContextFactory
	engine     services.RuleEngine
	logger     interfaces.Logger
	workers    int
	now        func() time.Time
}

// NewScanOrchestrator creates a new scan orchestrator
func NewScanOrchestrator(
	inventory gateways.InventoryGateway,
	collectors gateways.CollectorGateway,
	files gateways.FileInfoGateway,
	host gateways.HostInfoProvider,
	trust services.TrustContextFactory,
	engine services.RuleEngine,
	logger interfaces.Logger,
	config ScanOrchestratorConfig,
) *ScanOrchestrator {
	workers := config.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &ScanOrchestrator{
		inventory:  inventory,
		collectors: collectors,
		files:      files,
		host:       host,
		trust:      trust,
		engine:     engine,
		logger:     interfaces.OrNoOp(logger),
		workers:    workers,
		now:        now,
	}
}

type inventoryStep struct {
	category entities.Category
	list     func(ctx context.Context) ([]entities.Artifact, error)
}

func (o *ScanOrchestrator) inventorySteps() []inventoryStep {
	return []inventoryStep{
		{entities.CategoryApp, func(ctx context.Context) ([]entities.Artifact, error) {
			items, err := o.inventory.Applications(ctx)
			return toArtifacts(items), err
		}},
		{entities.CategoryPersistence, func(ctx context.Context) ([]entities.Artifact, error) {
			items, err := o.inventory.PersistenceItems(ctx)
			return toArtifacts(items), err
		}},
		{entities.CategoryKext, func(ctx context.Context) ([]entities.Artifact, error) {
			items, err := o.inventory.KernelExtensions(ctx)
			return toArtifacts(items), err
		}},
		{entities.CategoryBrowserExtension, func(ctx context.Context) ([]entities.Artifact, error) {
			items, err := o.inventory.BrowserExtensions(ctx)
			return toArtifacts(items), err
		}},
	}
}

func toArtifacts[T entities.Artifact](items []T) []entities.Artifact {
	out := make([]entities.Artifact, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

// Scan audits every artifact category and returns a sorted, filtered report.
// An invalid config or a failure of every inventory is fatal; everything else degrades per artifact.
func (o *ScanOrchestrator) Scan(ctx context.Context, cfg *entities.Config, mode ScanMode) (*ScanResult, error) {
	startTime := o.now()
	if cfg == nil {
		cfg = entities.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var host entities.HostInfo
	if o.host != nil {
		info, err := o.host.HostInfo(ctx)
		if err != nil {
			o.logger.Warn("host info unavailable", interfaces.Err(err))
		}
		host = info
	}

	stats := entities.ScanStats{
		Artifacts:       make(map[entities.Category]int),
		FailedArtifacts: make(map[entities.Category]int),
	}

	builder := o.trust.NewScan(ctx, cfg)
	steps := o.inventorySteps()

	var outcomes []ArtifactOutcome
	for _, step := range steps {
		artifacts, err := step.list(ctx)
		if err != nil {
			o.logger.Warn("inventory failed", interfaces.F("category", step.category), interfaces.Err(err))
			stats.FailedInventory = append(stats.FailedInventory, step.category)
			continue
		}
		stats.Artifacts[step.category] = len(artifacts)
		o.logger.Info("inventory complete", interfaces.F("category", step.category), interfaces.F("count", len(artifacts)))

		categoryOutcomes, err := o.auditAll(ctx, artifacts, builder, cfg, mode)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", step.category, err)
		}
		for _, outcome := range categoryOutcomes {
			if outcome.Err != nil {
				stats.FailedArtifacts[step.category]++
				o.logger.Debug("artifact audit degraded",
					interfaces.F("subject", outcome.Artifact.SubjectKey()),
					interfaces.F("failed_at", outcome.FailedAt.String()),
					interfaces.Err(outcome.Err))
			}
		}
		outcomes = append(outcomes, categoryOutcomes...)
	}

	if len(stats.FailedInventory) == len(steps) {
		return nil, ErrAllInventoriesFailed
	}

	var findings []entities.Finding
	for _, outcome := range outcomes {
		findings = append(findings, outcome.Findings...)
	}
	findings = domainservices.FilterFindings(findings, cfg)

	stats.Duration = o.now().Sub(startTime)
	return &ScanResult{
		Report:   entities.NewScanReport(host, startTime, findings),
		Stats:    stats,
		Outcomes: outcomes,
	}, nil
}

// auditAll runs one category through a bounded pool. Each worker owns one
// slot of the pre-sized result slice, so execution order never leaks into output.
func (o *ScanOrchestrator) auditAll(ctx context.Context, artifacts []entities.Artifact, builder services.TrustContextBuilder, cfg *entities.Config, mode ScanMode) ([]ArtifactOutcome, error) {
	results := make([]ArtifactOutcome, len(artifacts))

	var g errgroup.Group
	if mode == ModeParallel {
		g.SetLimit(o.workers)
	} else {
		g.SetLimit(1)
	}

	for i, artifact := range artifacts {
		g.Go(func() error {
			results[i] = o.auditArtifact(ctx, artifact, builder, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// auditArtifact walks one artifact through collectors, trust context and rules.
// A panic anywhere ends the artifact with whatever findings it already had.
func (o *ScanOrchestrator) auditArtifact(ctx context.Context, artifact entities.Artifact, builder services.TrustContextBuilder, cfg *entities.Config) (outcome ArtifactOutcome) {
	outcome.Artifact = artifact
	outcome.State = StateDiscovered
	defer func() {
		if r := recover(); r != nil {
			outcome.FailedAt = outcome.State
			outcome.Err = errors.Join(outcome.Err, fmt.Errorf("audit %s panicked: %v", artifact.SubjectKey(), r))
		}
		outcome.State = StateDone
	}()

	signals, collectErr := o.collect(ctx, artifact)
	outcome.State = StateCollectorsInvoked
	if collectErr != nil {
		outcome.FailedAt = StateDiscovered
		outcome.Err = collectErr
	}

	trust := builder.Build(artifact, signals)
	outcome.Findings = o.engine.Evaluate(artifact, signals, trust, cfg)
	outcome.State = StateRuleEvaluated
	return outcome
}

// collect runs each applicable collector in isolation. A failing collector
// leaves its signal nil and never stops its siblings.
func (o *ScanOrchestrator) collect(ctx context.Context, artifact entities.Artifact) (entities.Signals, error) {
	var signals entities.Signals
	path := artifact.ExecutablePath()
	if !o.inspectable(path) {
		return signals, nil
	}

	var errs []error
	switch a := artifact.(type) {
	case *entities.Application:
		signals.Signature, errs = collectSafely(errs, "codesign", func() *entities.SignatureResult { return o.collectors.VerifySignature(ctx, path) })
		signals.Gatekeeper, errs = collectSafely(errs, "spctl", func() *entities.GatekeeperResult { return o.collectors.AssessGatekeeper(ctx, path) })
		signals.Quarantine, errs = collectSafely(errs, "quarantine", func() *entities.QuarantineResult { return o.collectors.ReadQuarantine(ctx, path) })
		signals.Entitlements, errs = collectSafely(errs, "entitlements", func() *entities.EntitlementsResult { return o.collectors.ReadEntitlements(ctx, path) })
	case *entities.PersistenceItem:
		signals.Signature, errs = collectSafely(errs, "codesign", func() *entities.SignatureResult { return o.collectors.VerifySignature(ctx, path) })
		signals.Gatekeeper, errs = collectSafely(errs, "spctl", func() *entities.GatekeeperResult { return o.collectors.AssessGatekeeper(ctx, path) })
		signals.Quarantine, errs = collectSafely(errs, "quarantine", func() *entities.QuarantineResult { return o.collectors.ReadQuarantine(ctx, path) })
	case *entities.KernelExtension:
		if a.UnderSystemDirectory() {
			return signals, nil
		}
		signals.Signature, errs = collectSafely(errs, "codesign", func() *entities.SignatureResult { return o.collectors.VerifySignature(ctx, path) })
	}
	return signals, errors.Join(errs...)
}

// inspectable reports whether collectors have something to look at
func (o *ScanOrchestrator) inspectable(path string) bool {
	if path == "" {
		return false
	}
	if o.files == nil {
		return true
	}
	return o.files.Exists(path)
}

func collectSafely[T any](errs []error, name string, fn func() *T) (result *T, out []error) {
	out = errs
	defer func() {
		if r := recover(); r != nil {
			result = nil
			out = append(out, fmt.Errorf("%s collector panicked: %v", name, r))
		}
	}()
	result = fn()
	return result, out
}
