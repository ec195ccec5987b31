package services

import (
	"fmt"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

const minSensitiveEntitlements = 3

func appRules(app *entities.Application) []rule {
	return []rule{
		{name: "codesign_fail", eval: func(in ruleInput) *entities.Finding { return appCodesignFail(app, in) }},
		{name: "spctl_rejected", eval: func(in ruleInput) *entities.Finding { return appGatekeeperRejected(app, in) }},
		{name: "quarantined", eval: func(in ruleInput) *entities.Finding { return appQuarantined(app, in) }},
		{name: "verified", eval: func(in ruleInput) *entities.Finding { return appVerified(app, in) }},
		{name: "high_risk_entitlements", eval: func(in ruleInput) *entities.Finding { return appHighRiskEntitlements(app, in) }},
		{name: "sensitive_entitlements", eval: func(in ruleInput) *entities.Finding { return appSensitiveEntitlements(app, in) }},
	}
}

func appCodesignFail(app *entities.Application, in ruleInput) *entities.Finding {
	sig := in.signals.Signature
	if sig == nil || sig.Status != entities.SignatureFail {
		return nil
	}
	name := app.DisplayName()
	return &entities.Finding{
		ID:       entities.FindingID(entities.CategoryApp, app.SubjectKey(), "codesign_fail"),
		Category: entities.CategoryApp,
		Severity: signatureFailSeverity(in, true),
		Title:    "Invalid code signature: " + name,
		Details: fmt.Sprintf("Code signature verification failed for %s. "+
			"This could indicate tampering, corruption, or an unsigned binary.", name),
		Recommendation: codesignRecommendation(sig.TeamID),
		Path:           app.Location(),
		Evidence: mergeEvidence(signatureEvidence{
			Status: string(sig.Status), TeamID: sig.TeamID, Raw: sig.Raw,
		}),
	}
}

func appGatekeeperRejected(app *entities.Application, in ruleInput) *entities.Finding {
	gk := in.signals.Gatekeeper
	if gk == nil || gk.Status != entities.GatekeeperRejected {
		return nil
	}
	name := app.DisplayName()
	path := app.Location()
	teamID := in.signals.TeamID()
	return &entities.Finding{
		ID:       entities.FindingID(entities.CategoryApp, app.SubjectKey(), "spctl_rejected"),
		Category: entities.CategoryApp,
		Severity: gatekeeperRejectedSeverity(in),
		Title:    "Gatekeeper blocked: " + name,
		Details: fmt.Sprintf("macOS Gatekeeper has rejected %s. "+
			"This item does not meet Apple's security requirements for execution.", name),
		Recommendation: gatekeeperRecommendation(teamID, path),
		Path:           path,
		Evidence: mergeEvidence(gatekeeperEvidence{
			Status: string(gk.Status), Source: gk.Source, TeamID: teamID, Raw: gk.Raw,
		}),
	}
}

func appQuarantined(app *entities.Application, in ruleInput) *entities.Finding {
	if !in.signals.Quarantined() || quarantineSuppressed(in) {
		return nil
	}
	name := app.DisplayName()
	return &entities.Finding{
		ID:       entities.FindingID(entities.CategoryApp, app.SubjectKey(), "quarantined"),
		Category: entities.CategoryApp,
		Severity: entities.SeverityLow,
		Title:    "Quarantined application: " + name,
		Details: fmt.Sprintf("Application '%s' has the quarantine attribute set. This typically indicates "+
			"it was downloaded and hasn't been explicitly approved for execution yet.", name),
		Recommendation: "Review this application. If it's legitimate software you downloaded, " +
			"you can remove the quarantine attribute by running it or using: xattr -d com.apple.quarantine",
		Path: app.Location(),
		Evidence: mergeEvidence(quarantineEvidence{
			Value: in.signals.Quarantine.Value, Source: in.trust.QuarantineSource,
		}),
	}
}

func appVerified(app *entities.Application, in ruleInput) *entities.Finding {
	gk := in.signals.Gatekeeper
	if !in.signals.Signed() || !in.trust.KnownPublisher || gk == nil || gk.Status != entities.GatekeeperAccepted {
		return nil
	}
	name := app.DisplayName()
	teamID := in.signals.TeamID()
	vendor := VendorName(teamID)
	if vendor == "" {
		vendor = "Unknown"
	}
	return &entities.Finding{
		ID:       entities.FindingID(entities.CategoryApp, app.SubjectKey(), "verified"),
		Category: entities.CategoryApp,
		Severity: entities.SeverityInfo,
		Title:    "Verified application: " + name,
		Details: fmt.Sprintf("Application '%s' is properly signed by %s and passes all "+
			"macOS security requirements including Gatekeeper.", name, vendor),
		Recommendation: "This application is fully verified and trusted. No action needed.",
		Path:           app.Location(),
		Evidence: mergeEvidence(
			verdictEvidence{Signature: string(entities.SignatureOK), Gatekeeper: string(entities.GatekeeperAccepted)},
			vendorEvidence{TeamID: teamID, Vendor: vendor},
		),
	}
}

func appHighRiskEntitlements(app *entities.Application, in ruleInput) *entities.Finding {
	ent := in.signals.Entitlements
	if ent == nil || ent.Status != entities.EntitlementsOK || len(ent.HighRisk) == 0 {
		return nil
	}
	signed := in.signals.Signed()
	sev := entities.SeverityHigh
	if signed {
		sev = entities.SeverityMed
	}
	name := app.DisplayName()
	return &entities.Finding{
		ID:       entities.FindingID(entities.CategoryApp, app.SubjectKey(), "high_risk_entitlements"),
		Category: entities.CategoryApp,
		Severity: sev,
		Title:    "High-risk entitlements: " + name,
		Details: fmt.Sprintf("Application '%s' declares %d high-risk entitlement(s) that weaken "+
			"runtime protections such as library validation, the sandbox, or SIP.", name, len(ent.HighRisk)),
		Recommendation: "Confirm the publisher requires these capabilities. Debug or injection-enabling " +
			"entitlements in shipped software deserve scrutiny even from trusted vendors.",
		Path: app.Location(),
		Evidence: mergeEvidence(
			entitlementsEvidence{HighRisk: ent.HighRisk, Signed: signed},
			vendorEvidence{TeamID: in.signals.TeamID(), Vendor: in.trust.VendorName},
		),
	}
}

func appSensitiveEntitlements(app *entities.Application, in ruleInput) *entities.Finding {
	ent := in.signals.Entitlements
	if ent == nil || ent.Status != entities.EntitlementsOK || len(ent.Sensitive) < minSensitiveEntitlements {
		return nil
	}
	name := app.DisplayName()
	return &entities.Finding{
		ID:       entities.FindingID(entities.CategoryApp, app.SubjectKey(), "sensitive_entitlements"),
		Category: entities.CategoryApp,
		Severity: entities.SeverityInfo,
		Title:    "Sensitive entitlements: " + name,
		Details: fmt.Sprintf("Application '%s' requests %d sensitive capabilities.",
			name, len(ent.Sensitive)),
		Recommendation: "Review whether this application needs access to these resources.",
		Path:           app.Location(),
		Evidence: mergeEvidence(entitlementsEvidence{
			Sensitive: ent.Sensitive, Signed: in.signals.Signed(),
		}),
	}
}

func codesignRecommendation(teamID string) string {
	if IsKnownVendor(teamID) {
		vendor := VendorName(teamID)
		return fmt.Sprintf("This item is signed by %s (Team ID: %s), but the signature is invalid. "+
			"This could indicate corruption or tampering. Reinstall from official %s sources.", vendor, teamID, vendor)
	}
	return "Verify the source of this item. Remove if untrusted. Re-download from official sources if legitimate."
}

func gatekeeperRecommendation(teamID, path string) string {
	if !IsKnownVendor(teamID) {
		return "Do not run this item unless you explicitly trust the source. " +
			"Verify authenticity and consider obtaining from App Store or notarized sources."
	}
	vendor := VendorName(teamID)
	if IsSystemHelperPath(path) {
		return fmt.Sprintf("This is a %s system helper (Team ID: %s). "+
			"Helper utilities commonly fail Gatekeeper checks but may be safe if part of a verified %s installation. "+
			"Verify the main %s application is properly installed and up to date.", vendor, teamID, vendor, vendor)
	}
	return fmt.Sprintf("This item is signed by %s (Team ID: %s) but rejected by Gatekeeper. "+
		"This may be a helper utility or older version. Verify with official %s documentation.", vendor, teamID, vendor)
}
