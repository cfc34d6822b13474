package directive

import (
	"sort"
	"strings"
	"time"

	"overseer/internal/authority"
	"overseer/internal/config"
	"overseer/internal/logging"
)

// Gate evaluates directives against a loaded, read-only policy
// configuration. It holds no mutable state; one Gate may serve concurrent
// callers.
type Gate struct {
	policy config.PolicyConfig
}

// NewGate builds a gate over the given policy thresholds.
func NewGate(policy config.PolicyConfig) *Gate {
	return &Gate{policy: policy}
}

// gateResult is the outcome of one independent gate check.
type gateResult struct {
	triggered bool
	approvers []authority.Role
	blocked   bool
	reason    string
	required  string
}

// Assess evaluates every gate against one directive and resolves the
// approval route. All gates run; results accumulate rather than
// short-circuit, so the assessment lists every triggered gate even when
// one of them blocks the directive.
func (g *Gate) Assess(d Directive) (Assessment, error) {
	if err := validate(d); err != nil {
		return Assessment{}, err
	}

	a := Assessment{
		Directive:  d,
		AssessedAt: time.Now(),
	}

	checks := []struct {
		name GateName
		run  func(Directive) gateResult
	}{
		{GateSpendPerDay, g.spendGate},
		{GateRiskIncrease, g.riskGate},
		{GatePublicClaim, g.publicClaimGate},
		{GateNewVendor, g.newVendorGate},
		{GateEmergencyPriority, g.emergencyPriorityGate},
	}

	var approvers []authority.Role
	blocked := false
	for _, check := range checks {
		res := check.run(d)
		if !res.triggered {
			continue
		}
		a.GatesTriggered = append(a.GatesTriggered, check.name)
		approvers = append(approvers, res.approvers...)
		if res.blocked {
			blocked = true
			a.BlockReason = res.reason
			a.RequiredMitigation = res.required
		}
	}

	a.Approvers = dedupeRoles(approvers)

	switch {
	case blocked:
		a.Status = StatusBlocked
	case len(a.Approvers) == 0:
		a.Status = StatusApproved
	default:
		a.Status = resolveApprovalStatus(a.Approvers)
	}

	logging.Policy("assessed directive from %s: status=%s gates=%v", d.Agent, a.Status, a.GatesTriggered)
	return a, nil
}

// AssessAll evaluates a batch in submission order.
func (g *Gate) AssessAll(directives []Directive) ([]Assessment, error) {
	out := make([]Assessment, 0, len(directives))
	for _, d := range directives {
		a, err := g.Assess(d)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Summarize counts outcomes and gate-hit frequency across a batch.
func Summarize(assessments []Assessment) Summary {
	s := Summary{
		Total:    len(assessments),
		GateHits: map[GateName]int{},
	}
	for _, a := range assessments {
		switch a.Status {
		case StatusApproved:
			s.Approved++
		case StatusBlocked:
			s.Blocked++
		default:
			s.NeedsApproval++
		}
		for _, gate := range a.GatesTriggered {
			s.GateHits[gate]++
		}
	}
	return s
}

// =============================================================================
// INDIVIDUAL GATES
// =============================================================================

// spendGate requires top-authority approval when the projected daily cost
// exceeds the policy ceiling.
func (g *Gate) spendGate(d Directive) gateResult {
	if d.CostPerDay <= g.policy.MaxSpendPerDay {
		return gateResult{}
	}
	return gateResult{triggered: true, approvers: []authority.Role{authority.RoleCEO}}
}

// riskGate handles directives that raise risk. With mitigation language
// present the directive can still pass via top-authority approval; without
// it the directive is blocked outright and must be resubmitted.
func (g *Gate) riskGate(d Directive) gateResult {
	if d.RiskDelta <= 0 || g.policy.AllowRiskIncrease {
		return gateResult{}
	}
	if !HasMitigationLanguage(d) {
		return gateResult{
			triggered: true,
			blocked:   true,
			reason:    "directive raises risk with no mitigation plan",
			required:  "add explicit mitigation language (rollback, safeguard, contingency) and resubmit",
		}
	}
	return gateResult{triggered: true, approvers: []authority.Role{authority.RoleCEO}}
}

// publicClaimGate routes outward-facing communication through the
// communications authority.
func (g *Gate) publicClaimGate(d Directive) gateResult {
	if !MakesPublicClaim(d) {
		return gateResult{}
	}
	return gateResult{triggered: true, approvers: []authority.Role{authority.RoleCCO}}
}

// newVendorGate requires every vendor approver the policy names.
func (g *Gate) newVendorGate(d Directive) gateResult {
	if !IntroducesVendor(d) {
		return gateResult{}
	}
	approvers := make([]authority.Role, 0, len(g.policy.VendorApprovers))
	for _, name := range g.policy.VendorApprovers {
		approvers = append(approvers, authority.Role(name))
	}
	return gateResult{triggered: true, approvers: approvers}
}

// emergencyPriorityGate escalates the highest priority tier to the top
// authority.
func (g *Gate) emergencyPriorityGate(d Directive) gateResult {
	if d.Priority != PriorityEmergency {
		return gateResult{}
	}
	return gateResult{triggered: true, approvers: []authority.Role{authority.RoleCEO}}
}

// =============================================================================
// RESOLUTION HELPERS
// =============================================================================

func validate(d Directive) error {
	if strings.TrimSpace(d.Agent) == "" {
		return &ValidationError{Field: "agent", Constraint: "must not be empty"}
	}
	if strings.TrimSpace(d.Action) == "" {
		return &ValidationError{Field: "action", Constraint: "must not be empty"}
	}
	if d.CostPerDay < 0 {
		return &ValidationError{Field: "cost_per_day", Constraint: "must not be negative"}
	}
	return nil
}

func dedupeRoles(roles []authority.Role) []authority.Role {
	seen := make(map[authority.Role]struct{}, len(roles))
	out := make([]authority.Role, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// resolveApprovalStatus maps a de-duplicated approver set to a status.
// The {cco, coo} pair has its own route because it is the standing
// communications+operations review in this organization.
func resolveApprovalStatus(approvers []authority.Role) Status {
	if len(approvers) == 1 {
		switch approvers[0] {
		case authority.RoleCEO:
			return StatusNeedsCEO
		case authority.RoleCOO:
			return StatusNeedsCOO
		case authority.RoleCCO:
			return StatusNeedsCCO
		case authority.RoleCMO:
			return StatusNeedsCMO
		case authority.RoleCRO:
			return StatusNeedsCRO
		default:
			return StatusMulti
		}
	}
	if len(approvers) == 2 && approvers[0] == authority.RoleCCO && approvers[1] == authority.RoleCOO {
		return StatusCCOAndCOO
	}
	return StatusMulti
}
