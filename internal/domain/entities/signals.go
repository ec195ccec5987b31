package entities

// SignatureStatus is the outcome of code-signature verification
type SignatureStatus string

// Signature statuses
const (
	SignatureOK      SignatureStatus = "ok"
	SignatureFail    SignatureStatus = "fail"
	SignatureUnknown SignatureStatus = "unknown"
)

// SignatureResult is the codesign signal for one path
type SignatureResult struct {
	Status      SignatureStatus
	TeamID      string
	Authorities []string
	Raw         string
}

// GatekeeperStatus is the OS execution-permission verdict
type GatekeeperStatus string

// Gatekeeper statuses
const (
	GatekeeperAccepted GatekeeperStatus = "accepted"
	GatekeeperRejected GatekeeperStatus = "rejected"
	GatekeeperUnknown  GatekeeperStatus = "unknown"
)

// GatekeeperResult is the spctl signal for one path
type GatekeeperResult struct {
	Status GatekeeperStatus
	Source string
	Raw    string
}

// QuarantineState is tri-state: the attribute may be present, absent, or unreadable
type QuarantineState string

// Quarantine states
const (
	QuarantinePresent QuarantineState = "true"
	QuarantineAbsent  QuarantineState = "false"
	QuarantineUnknown QuarantineState = "unknown"
)

// QuarantineResult is the com.apple.quarantine signal for one path
type QuarantineResult struct {
	State QuarantineState
	Value string
}

// EntitlementsStatus describes whether entitlements could be read
type EntitlementsStatus string

// Entitlement statuses
const (
	EntitlementsOK    EntitlementsStatus = "ok"
	EntitlementsNone  EntitlementsStatus = "none"
	EntitlementsError EntitlementsStatus = "error"
)

// EntitlementsResult lists the notable entitlements an executable declares.
// Both lists hold sorted human-readable labels; Sensitive excludes anything in HighRisk.
type EntitlementsResult struct {
	Status    EntitlementsStatus
	Sensitive []string
	HighRisk  []string
}

// Signals bundles every collector result for one artifact.
// A nil field means the collector did not run or failed.
type Signals struct {
	Signature    *SignatureResult
	Gatekeeper   *GatekeeperResult
	Quarantine   *QuarantineResult
	Entitlements *EntitlementsResult
}

// Signed reports whether the signature signal is a definite pass
func (s Signals) Signed() bool {
	return s.Signature != nil && s.Signature.Status == SignatureOK
}

// TeamID returns the signing team id, or ""
func (s Signals) TeamID() string {
	if s.Signature == nil {
		return ""
	}
	return s.Signature.TeamID
}

// Quarantined reports whether the quarantine marker is definitely present
func (s Signals) Quarantined() bool {
	return s.Quarantine != nil && s.Quarantine.State == QuarantinePresent
}
