package gateways

import (
	"context"

	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/domain/interfaces/gateways"
)

// compositeCollectorGateway implements the CollectorGateway interface by composing
// the individual signal collectors together
type compositeCollectorGateway struct {
	codesign     *codesignCollector
	spctl        *spctlCollector
	quarantine   *quarantineCollector
	entitlements *entitlementsCollector
}

// NewCompositeCollectorGateway creates a collector gateway whose collectors share one runner
func NewCompositeCollectorGateway(runner CommandRunner) gateways.CollectorGateway {
	return &compositeCollectorGateway{
		codesign:     NewCodesignCollector(runner),
		spctl:        NewSpctlCollector(runner),
		quarantine:   NewQuarantineCollector(runner),
		entitlements: NewEntitlementsCollector(runner),
	}
}

// NewCompositeCollectorGatewayWithDeps creates a composite gateway with custom collectors
func NewCompositeCollectorGatewayWithDeps(
	codesign *codesignCollector,
	spctl *spctlCollector,
	quarantine *quarantineCollector,
	entitlements *entitlementsCollector,
) gateways.CollectorGateway {
	return &compositeCollectorGateway{
		codesign:     codesign,
		spctl:        spctl,
		quarantine:   quarantine,
		entitlements: entitlements,
	}
}

// VerifySignature delegates to codesign
func (c *compositeCollectorGateway) VerifySignature(ctx context.Context, path string) *entities.SignatureResult {
	return c.codesign.VerifySignature(ctx, path)
}

// AssessGatekeeper delegates to spctl
func (c *compositeCollectorGateway) AssessGatekeeper(ctx context.Context, path string) *entities.GatekeeperResult {
	return c.spctl.AssessGatekeeper(ctx, path)
}

// ReadQuarantine delegates to xattr
func (c *compositeCollectorGateway) ReadQuarantine(ctx context.Context, path string) *entities.QuarantineResult {
	return c.quarantine.ReadQuarantine(ctx, path)
}

// ReadEntitlements delegates to codesign's entitlement dump
func (c *compositeCollectorGateway) ReadEntitlements(ctx context.Context, path string) *entities.EntitlementsResult {
	return c.entitlements.ReadEntitlements(ctx, path)
}
