package decision

import (
	"fmt"
	"strings"
	"time"

	"overseer/internal/config"
)

// Language tables for the text-sensitive criteria. Matching is lowercase
// substring over the action's name, text, and steps.
var (
	hypeTerms = []string{
		"guaranteed", "revolutionary", "breakthrough", "10x",
		"skyrocket", "explosive growth", "secret method", "growth hack",
	}
	guaranteeTerms = []string{
		"guarantee", "promise", "definitely will", "certain to",
		"risk-free", "no risk", "can't fail", "assured outcome",
	}
	skipStageTerms = []string{
		"skip", "bypass", "reorder", "jump straight", "shortcut",
		"fast-track past", "out of order",
	}
	exploratoryTerms = []string{
		"experiment", "exploratory", "try out", "see what happens",
		"test the waters", "speculative",
	}
)

func actionText(a ProposedAction) string {
	parts := append([]string{a.Name, a.Text}, a.Steps...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

func containsAny(text string, terms []string) (string, bool) {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}

// evaluator computes the six criterion results against the rubric
// constants. Stateless; one evaluator per framework.
type evaluator struct {
	cfg config.DecisionConfig
}

// Evaluate runs all six criteria independently. Every criterion is
// mandatory; the verdict rule decides what a given failure pattern means.
func (ev evaluator) Evaluate(brief DiagnosticBrief) Evaluation {
	return Evaluation{
		Results: []CriterionResult{
			ev.protection(brief),
			ev.integrity(brief),
			ev.defensibility(brief),
			ev.process(brief),
			ev.stability(brief),
			ev.restorative(brief),
		},
		EvaluatedAt: time.Now(),
	}
}

// protection: the protected methodology must be intact and the action must
// not lean on inflation or hype language.
func (ev evaluator) protection(brief DiagnosticBrief) CriterionResult {
	r := CriterionResult{Name: CriterionProtection, MustPass: true, Passed: true}
	if !brief.Safety.MethodologyIntact {
		r.Passed = false
		r.ViolationReason = "brief reports the protected methodology compromised"
		return r
	}
	if term, hit := containsAny(actionText(brief.Action), hypeTerms); hit {
		r.Passed = false
		r.ViolationReason = fmt.Sprintf("action uses inflation language (%q)", term)
		return r
	}
	r.Evidence = "methodology intact, no inflation language"
	return r
}

// integrity: the projected outcome must strictly improve on the current one
// and the action's own risk estimate must not be high.
func (ev evaluator) integrity(brief DiagnosticBrief) CriterionResult {
	r := CriterionResult{Name: CriterionIntegrity, MustPass: true, Passed: true}
	p := brief.Projection
	if p.ProjectedValue <= p.CurrentValue {
		r.Passed = false
		r.ViolationReason = fmt.Sprintf("projected %.2f does not improve on current %.2f", p.ProjectedValue, p.CurrentValue)
		return r
	}
	if strings.EqualFold(brief.Action.RiskLevel, "high") {
		r.Passed = false
		r.ViolationReason = "action self-assessed as high risk"
		return r
	}
	r.Evidence = fmt.Sprintf("projected %.2f > current %.2f at %s risk", p.ProjectedValue, p.CurrentValue, brief.Action.RiskLevel)
	return r
}

// defensibility: no speculative or guarantee wording anywhere in the action
// or its execution steps.
func (ev evaluator) defensibility(brief DiagnosticBrief) CriterionResult {
	r := CriterionResult{Name: CriterionDefensibility, MustPass: true, Passed: true}
	if term, hit := containsAny(actionText(brief.Action), guaranteeTerms); hit {
		r.Passed = false
		r.ViolationReason = fmt.Sprintf("action contains guarantee wording (%q)", term)
		return r
	}
	for i, step := range brief.Action.Steps {
		if term, hit := containsAny(strings.ToLower(step), guaranteeTerms); hit {
			r.Passed = false
			r.ViolationReason = fmt.Sprintf("step %d contains claim wording (%q)", i+1, term)
			return r
		}
	}
	r.Evidence = "no speculative or guarantee wording"
	return r
}

// process: the offer ladder must be locked and the action must not request
// skipping or reordering stages.
func (ev evaluator) process(brief DiagnosticBrief) CriterionResult {
	r := CriterionResult{Name: CriterionProcess, MustPass: true, Passed: true}
	if !brief.Safety.LadderLocked {
		r.Passed = false
		r.ViolationReason = "offer ladder lock not asserted"
		return r
	}
	if term, hit := containsAny(actionText(brief.Action), skipStageTerms); hit {
		r.Passed = false
		r.ViolationReason = fmt.Sprintf("action requests stage manipulation (%q)", term)
		return r
	}
	r.Evidence = "ladder locked, stage order preserved"
	return r
}

// stability: no elevated autonomy, no worker mutation, nothing exploratory.
func (ev evaluator) stability(brief DiagnosticBrief) CriterionResult {
	r := CriterionResult{Name: CriterionStability, MustPass: true, Passed: true}
	switch {
	case brief.Action.RequestsElevatedAutonomy:
		r.Passed = false
		r.ViolationReason = "action requests elevated autonomy"
	case brief.Action.MutatesWorkers:
		r.Passed = false
		r.ViolationReason = "action mutates autonomous workers"
	default:
		if term, hit := containsAny(actionText(brief.Action), exploratoryTerms); hit {
			r.Passed = false
			r.ViolationReason = fmt.Sprintf("action is exploratory (%q)", term)
		} else {
			r.Evidence = "no autonomy escalation, no worker mutation, not exploratory"
		}
	}
	return r
}

// restorative: the projection must clear the recovery threshold with enough
// confidence inside the recovery window.
func (ev evaluator) restorative(brief DiagnosticBrief) CriterionResult {
	r := CriterionResult{Name: CriterionRestorative, MustPass: true, Passed: true}
	p := brief.Projection
	switch {
	case p.ProjectedValue < ev.cfg.RecoveryThreshold:
		r.Passed = false
		r.ViolationReason = fmt.Sprintf("projected %.2f below recovery threshold %.2f", p.ProjectedValue, ev.cfg.RecoveryThreshold)
	case p.Confidence < ev.cfg.MinProjectionConfidence:
		r.Passed = false
		r.ViolationReason = fmt.Sprintf("confidence %.2f below minimum %.2f", p.Confidence, ev.cfg.MinProjectionConfidence)
	case p.TimeToEffectHours > ev.cfg.RecoveryWindowHours:
		r.Passed = false
		r.ViolationReason = fmt.Sprintf("time to effect %dh exceeds the %dh recovery window", p.TimeToEffectHours, ev.cfg.RecoveryWindowHours)
	default:
		r.Evidence = fmt.Sprintf("projected %.2f at %.2f confidence within %dh", p.ProjectedValue, p.Confidence, p.TimeToEffectHours)
	}
	return r
}
