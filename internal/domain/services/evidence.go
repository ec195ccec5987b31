package services

import (
	"strconv"
	"strings"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

const (
	rawEvidenceLimit        = 200
	quarantineEvidenceLimit = 100
)

// evidence is a typed evidence record that flattens into the finding map
type evidence interface {
	fields() map[string]string
}

type signatureEvidence struct {
	Status string
	TeamID string
	Raw    string
}

func (e signatureEvidence) fields() map[string]string {
	return map[string]string{
		"codesign_status":  e.Status,
		"codesign_team_id": e.TeamID,
		"codesign_raw":     truncate(e.Raw, rawEvidenceLimit),
	}
}

type gatekeeperEvidence struct {
	Status string
	Source string
	TeamID string
	Raw    string
}

func (e gatekeeperEvidence) fields() map[string]string {
	return map[string]string{
		"spctl_status":  e.Status,
		"spctl_source":  e.Source,
		"spctl_team_id": e.TeamID,
		"spctl_raw":     truncate(e.Raw, rawEvidenceLimit),
	}
}

type launchEvidence struct {
	Scope   string
	Program string
	Label   string
}

func (e launchEvidence) fields() map[string]string {
	return map[string]string{
		"scope":   e.Scope,
		"program": e.Program,
		"label":   e.Label,
	}
}

type quarantineEvidence struct {
	Value     string
	Source    string
	RunAtLoad *bool
}

func (e quarantineEvidence) fields() map[string]string {
	m := map[string]string{
		"quarantine_value": truncate(e.Value, quarantineEvidenceLimit),
	}
	if e.Source != "" {
		m["quarantine_source"] = e.Source
	}
	if e.RunAtLoad != nil {
		m["run_at_load"] = strconv.FormatBool(*e.RunAtLoad)
	}
	return m
}

type vendorEvidence struct {
	TeamID string
	Vendor string
}

func (e vendorEvidence) fields() map[string]string {
	return map[string]string{
		"team_id": e.TeamID,
		"vendor":  e.Vendor,
	}
}

type verdictEvidence struct {
	Signature  string
	Gatekeeper string
}

func (e verdictEvidence) fields() map[string]string {
	return map[string]string{
		"codesign_status": e.Signature,
		"spctl_status":    e.Gatekeeper,
	}
}

type entitlementsEvidence struct {
	HighRisk  []string
	Sensitive []string
	Signed    bool
}

func (e entitlementsEvidence) fields() map[string]string {
	m := map[string]string{
		"signed": strconv.FormatBool(e.Signed),
	}
	if len(e.HighRisk) > 0 {
		m["high_risk_entitlements"] = strings.Join(e.HighRisk, ", ")
	}
	if len(e.Sensitive) > 0 {
		m["sensitive_entitlements"] = strings.Join(e.Sensitive, ", ")
	}
	return m
}

type kextEvidence struct {
	BundleID    string
	Kind        entities.ExtensionKind
	Location    entities.ExtensionLocation
	Loaded      bool
	Status      string
	Authorities []string
}

func (e kextEvidence) fields() map[string]string {
	return map[string]string{
		"bundle_id":       e.BundleID,
		"kind":            string(e.Kind),
		"location":        string(e.Location),
		"loaded":          strconv.FormatBool(e.Loaded),
		"codesign_status": e.Status,
		"authorities":     strings.Join(e.Authorities, " | "),
	}
}

type browserEvidence struct {
	Browser     entities.Browser
	ExtensionID string
	Version     string
	Matched     []string
	Hosts       []string
}

func (e browserEvidence) fields() map[string]string {
	m := map[string]string{
		"browser":      string(e.Browser),
		"extension_id": e.ExtensionID,
	}
	if e.Version != "" {
		m["version"] = e.Version
	}
	if len(e.Matched) > 0 {
		m["permissions"] = strings.Join(e.Matched, ", ")
	}
	if len(e.Hosts) > 0 {
		m["host_permissions"] = strings.Join(e.Hosts, ", ")
	}
	return m
}

// mergeEvidence flattens evidence records; later records win on key collisions
func mergeEvidence(records ...evidence) map[string]string {
	out := make(map[string]string)
	for _, r := range records {
		for k, v := range r.fields() {
			out[k] = v
		}
	}
	return out
}
