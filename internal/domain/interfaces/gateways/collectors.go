// Package gateways defines the contracts for OS-facing adapters.
package gateways

import (
	"context"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// SignatureCollector verifies code signatures.
// Implementations report failures as SignatureUnknown rather than errors.
type SignatureCollector interface {
	VerifySignature(ctx context.Context, path string) *entities.SignatureResult
}

// GatekeeperCollector asks the OS whether a path may execute
type GatekeeperCollector interface {
	AssessGatekeeper(ctx context.Context, path string) *entities.GatekeeperResult
}

// QuarantineCollector reads the download-quarantine marker
type QuarantineCollector interface {
	ReadQuarantine(ctx context.Context, path string) *entities.QuarantineResult
}

// EntitlementsCollector extracts declared entitlements
type EntitlementsCollector interface {
	ReadEntitlements(ctx context.Context, path string) *entities.EntitlementsResult
}

// CollectorGateway bundles every per-artifact signal collector
type CollectorGateway interface {
	SignatureCollector
	GatekeeperCollector
	QuarantineCollector
	EntitlementsCollector
}
