package services

import (
	"fmt"

	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/domain/interfaces/services"
)

// RuleOutcome is the result of evaluating one rule against one artifact
type RuleOutcome struct {
	Rule    string
	Fired   bool
	Finding entities.Finding
	Err     error // set when the rule panicked; the rule is treated as not fired
}

// ruleInput is everything a rule may look at
type ruleInput struct {
	signals entities.Signals
	trust   entities.TrustContext
	cfg     *entities.Config
}

// rule returns nil when it does not fire
type rule struct {
	name string
	eval func(in ruleInput) *entities.Finding
}

// ruleEngine implements RuleEngine with a fixed rule table per category
type ruleEngine struct{}

// NewRuleEngine creates the rule engine
func NewRuleEngine() services.RuleEngine {
	return &ruleEngine{}
}

// Evaluate runs every rule for the artifact's category and returns the findings that fired
func (e *ruleEngine) Evaluate(artifact entities.Artifact, signals entities.Signals, trust entities.TrustContext, cfg *entities.Config) []entities.Finding {
	outcomes := EvaluateRules(artifact, signals, trust, cfg)
	findings := make([]entities.Finding, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Fired {
			findings = append(findings, o.Finding)
		}
	}
	return findings
}

// EvaluateRules evaluates each rule in isolation and reports every outcome,
// including rules that did not fire or failed
func EvaluateRules(artifact entities.Artifact, signals entities.Signals, trust entities.TrustContext, cfg *entities.Config) []RuleOutcome {
	if cfg == nil {
		cfg = entities.DefaultConfig()
	}
	in := ruleInput{signals: signals, trust: trust, cfg: cfg}

	rules := rulesFor(artifact)
	outcomes := make([]RuleOutcome, 0, len(rules))
	for _, r := range rules {
		outcomes = append(outcomes, runRule(r, in))
	}
	return outcomes
}

func rulesFor(artifact entities.Artifact) []rule {
	switch a := artifact.(type) {
	case *entities.Application:
		if a == nil {
			return nil
		}
		return appRules(a)
	case *entities.PersistenceItem:
		if a == nil {
			return nil
		}
		return persistenceRules(a)
	case *entities.KernelExtension:
		if a == nil {
			return nil
		}
		return kextRules(a)
	case *entities.BrowserExtension:
		if a == nil {
			return nil
		}
		return browserRules(a)
	default:
		return nil
	}
}

func runRule(r rule, in ruleInput) (outcome RuleOutcome) {
	outcome.Rule = r.name
	defer func() {
		if rec := recover(); rec != nil {
			outcome = RuleOutcome{Rule: r.name, Err: fmt.Errorf("rule %s panicked: %v", r.name, rec)}
		}
	}()

	if f := r.eval(in); f != nil {
		outcome.Fired = true
		outcome.Finding = *f
	}
	return outcome
}

// signatureFailSeverity applies the shared downgrade policy for invalid signatures
func signatureFailSeverity(in ruleInput, appStoreEligible bool) entities.Severity {
	sev := entities.SeverityHigh
	if in.trust.KnownPublisher {
		sev = entities.SeverityMed
	}
	if appStoreEligible && in.trust.AppStore && in.cfg.TrustAppStore {
		sev = entities.SeverityMed
	}
	if in.trust.KnownPublisher && in.cfg.TrustOldApps &&
		in.trust.AgeDays >= 0 && in.trust.AgeDays >= in.cfg.OldAppDays {
		sev = entities.SeverityLow
	}
	return sev
}

// gatekeeperRejectedSeverity applies the shared downgrade policy for Gatekeeper rejections
func gatekeeperRejectedSeverity(in ruleInput) entities.Severity {
	if in.signals.Signed() && in.trust.KnownPublisher {
		return entities.SeverityMed
	}
	return entities.SeverityHigh
}

// quarantineSuppressed reports whether the quarantine marker came from a trusted package manager
func quarantineSuppressed(in ruleInput) bool {
	return in.cfg.TrustHomebrewCask && in.trust.HomebrewSource
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
