package services

import (
	"fmt"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

func persistenceRules(item *entities.PersistenceItem) []rule {
	return []rule{
		{name: "codesign_fail", eval: func(in ruleInput) *entities.Finding { return persistenceCodesignFail(item, in) }},
		{name: "spctl_rejected", eval: func(in ruleInput) *entities.Finding { return persistenceGatekeeperRejected(item, in) }},
		{name: "user_writable", eval: func(in ruleInput) *entities.Finding { return persistenceUserWritable(item, in) }},
		{name: "quarantined", eval: func(in ruleInput) *entities.Finding { return persistenceQuarantined(item, in) }},
	}
}

// persistenceLocation prefers the plist path, falling back to the program
func persistenceLocation(item *entities.PersistenceItem) string {
	if item.PlistPath != "" {
		return item.PlistPath
	}
	return item.Program
}

func persistenceCodesignFail(item *entities.PersistenceItem, in ruleInput) *entities.Finding {
	sig := in.signals.Signature
	if sig == nil || sig.Status != entities.SignatureFail {
		return nil
	}
	name := item.DisplayName()
	return &entities.Finding{
		ID:       entities.FindingID(entities.CategoryPersistence, item.SubjectKey(), "codesign_fail"),
		Category: entities.CategoryPersistence,
		Severity: signatureFailSeverity(in, false),
		Title:    "Invalid code signature: " + name,
		Details: fmt.Sprintf("Code signature verification failed for %s. "+
			"This could indicate tampering, corruption, or an unsigned binary.", name),
		Recommendation: codesignRecommendation(sig.TeamID),
		Path:           persistenceLocation(item),
		Evidence: mergeEvidence(signatureEvidence{
			Status: string(sig.Status), TeamID: sig.TeamID, Raw: sig.Raw,
		}),
	}
}

func persistenceGatekeeperRejected(item *entities.PersistenceItem, in ruleInput) *entities.Finding {
	gk := in.signals.Gatekeeper
	if gk == nil || gk.Status != entities.GatekeeperRejected {
		return nil
	}
	// helper paths land on the same MED floor as any signed known publisher
	sev := gatekeeperRejectedSeverity(in)
	if in.trust.SystemHelperPath && in.signals.Signed() && in.trust.KnownPublisher {
		sev = entities.SeverityMed
	}
	name := item.DisplayName()
	path := persistenceLocation(item)
	teamID := in.signals.TeamID()
	return &entities.Finding{
		ID:       entities.FindingID(entities.CategoryPersistence, item.SubjectKey(), "spctl_rejected"),
		Category: entities.CategoryPersistence,
		Severity: sev,
		Title:    "Gatekeeper blocked: " + name,
		Details: fmt.Sprintf("macOS Gatekeeper has rejected %s. "+
			"This item does not meet Apple's security requirements for execution.", name),
		Recommendation: gatekeeperRecommendation(teamID, item.Program),
		Path:           path,
		Evidence: mergeEvidence(gatekeeperEvidence{
			Status: string(gk.Status), Source: gk.Source, TeamID: teamID, Raw: gk.Raw,
		}),
	}
}

func persistenceUserWritable(item *entities.PersistenceItem, in ruleInput) *entities.Finding {
	if item.Scope != entities.ScopeDaemon || !(in.trust.UserWritablePath || IsUserWritablePath(item.Program)) {
		return nil
	}
	label := item.DisplayName()
	return &entities.Finding{
		ID:       entities.FindingID(entities.CategoryPersistence, item.SubjectKey(), "user_writable"),
		Category: entities.CategoryPersistence,
		Severity: entities.SeverityHigh,
		Title:    "System daemon uses user-writable path: " + label,
		Details: fmt.Sprintf("System daemon '%s' executes a program from a user-writable location (%s). "+
			"The daemon runs with elevated privileges but its binary could be modified by unprivileged users, "+
			"which is a privilege escalation risk.", label, item.Program),
		Recommendation: "Move the program to a system-protected location (e.g., /usr/local/bin) with appropriate " +
			"permissions, or remove this launch daemon if it's not needed.",
		Path: item.PlistPath,
		Evidence: mergeEvidence(launchEvidence{
			Scope: string(entities.ScopeDaemon), Program: item.Program, Label: label,
		}),
	}
}

func persistenceQuarantined(item *entities.PersistenceItem, in ruleInput) *entities.Finding {
	if !in.signals.Quarantined() || quarantineSuppressed(in) {
		return nil
	}
	label := item.DisplayName()
	scope := string(item.Scope)
	runAtLoad := item.RunAtLoad

	f := &entities.Finding{
		Category: entities.CategoryPersistence,
		Path:     item.PlistPath,
		Evidence: mergeEvidence(
			launchEvidence{Scope: scope, Program: item.Program, Label: label},
			quarantineEvidence{Value: in.signals.Quarantine.Value, Source: in.trust.QuarantineSource, RunAtLoad: &runAtLoad},
		),
	}
	if runAtLoad {
		f.ID = entities.FindingID(entities.CategoryPersistence, item.SubjectKey(), "quarantined")
		f.Severity = entities.SeverityMed
		f.Title = "Quarantined persistence item (auto-run): " + label
		f.Details = fmt.Sprintf("Launch %s '%s' has the quarantine attribute set and is configured to run at load. "+
			"Quarantined items are typically downloads that haven't been explicitly approved by the user.", scope, label)
		f.Recommendation = "Review this persistence item. If legitimate, remove the quarantine attribute. " +
			"If untrusted, remove the launch agent/daemon entirely."
		return f
	}

	f.ID = entities.FindingID(entities.CategoryPersistence, item.SubjectKey(), "quarantined_only")
	f.Severity = entities.SeverityLow
	f.Title = "Quarantined persistence item: " + label
	f.Details = fmt.Sprintf("Launch %s '%s' has the quarantine attribute set but is not configured for auto-start. "+
		"This is typically from a downloaded item that hasn't been user-approved yet.", scope, label)
	f.Recommendation = "Review this item. It does not auto-execute, so the risk is lower. " +
		"Remove the quarantine if legitimate or delete it if unwanted."
	return f
}
