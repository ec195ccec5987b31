package services

import (
	"fmt"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

func kextRules(ext *entities.KernelExtension) []rule {
	// extensions shipped inside the OS tree are implicitly trusted
	if ext.UnderSystemDirectory() {
		return nil
	}
	return []rule{
		{name: "unsigned", eval: func(in ruleInput) *entities.Finding { return kextUnsigned(ext, in) }},
		{name: "invalid_signature", eval: func(in ruleInput) *entities.Finding { return kextInvalidSignature(ext, in) }},
	}
}

func kextUnsigned(ext *entities.KernelExtension, in ruleInput) *entities.Finding {
	sig := in.signals.Signature
	if sig == nil || sig.Status != entities.SignatureFail || len(sig.Authorities) > 0 {
		return nil
	}
	name := ext.DisplayName()
	return &entities.Finding{
		ID:       entities.FindingID(entities.CategoryKext, ext.SubjectKey(), "unsigned"),
		Category: entities.CategoryKext,
		Severity: entities.SeverityHigh,
		Title:    "Unsigned kernel extension: " + name,
		Details: fmt.Sprintf("%s at %s carries no code signature. Unsigned extensions run with "+
			"kernel or system privileges and cannot be attributed to a publisher.", extensionNoun(ext), ext.BundlePath),
		Recommendation: "Identify which software installed this extension. Remove it unless it comes from a vendor you trust.",
		Path:           ext.BundlePath,
		Evidence:       mergeEvidence(kextEvidenceFor(ext, sig)),
	}
}

func kextInvalidSignature(ext *entities.KernelExtension, in ruleInput) *entities.Finding {
	sig := in.signals.Signature
	if sig == nil || sig.Status != entities.SignatureFail || len(sig.Authorities) == 0 {
		return nil
	}
	name := ext.DisplayName()
	return &entities.Finding{
		ID:       entities.FindingID(entities.CategoryKext, ext.SubjectKey(), "invalid_signature"),
		Category: entities.CategoryKext,
		Severity: entities.SeverityHigh,
		Title:    "Invalid kernel extension signature: " + name,
		Details: fmt.Sprintf("%s at %s is signed but its signature does not verify. "+
			"The bundle may have been modified after signing.", extensionNoun(ext), ext.BundlePath),
		Recommendation: codesignRecommendation(sig.TeamID),
		Path:           ext.BundlePath,
		Evidence: mergeEvidence(
			kextEvidenceFor(ext, sig),
			signatureEvidence{Status: string(sig.Status), TeamID: sig.TeamID, Raw: sig.Raw},
		),
	}
}

func kextEvidenceFor(ext *entities.KernelExtension, sig *entities.SignatureResult) kextEvidence {
	return kextEvidence{
		BundleID:    ext.BundleID,
		Kind:        ext.Kind,
		Location:    ext.Location,
		Loaded:      ext.Loaded,
		Status:      string(sig.Status),
		Authorities: sig.Authorities,
	}
}

func extensionNoun(ext *entities.KernelExtension) string {
	if ext.Kind == entities.KindSystemExtension {
		return "System extension"
	}
	return "Kernel extension"
}
