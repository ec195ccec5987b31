// Package services defines interfaces for domain service contracts.
package services

import (
	"context"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// RuleEngine classifies one artifact's signals into findings.
// Implementations are pure: no I/O and no panics escaping Evaluate.
type RuleEngine interface {
	Evaluate(artifact entities.Artifact, signals entities.Signals, trust entities.TrustContext, cfg *entities.Config) []entities.Finding
}

// TrustContextBuilder derives per-artifact trust facts.
// One builder serves exactly one scan.
type TrustContextBuilder interface {
	Build(artifact entities.Artifact, signals entities.Signals) entities.TrustContext
}

// TrustContextFactory creates a fresh scan-scoped builder
type TrustContextFactory interface {
	NewScan(ctx context.Context, cfg *entities.Config) TrustContextBuilder
}

// BaselineDiffer reduces a finding set to what changed since a snapshot
type BaselineDiffer interface {
	Diff(findings []entities.Finding, snapshot *entities.BaselineSnapshot) []entities.Finding
}
