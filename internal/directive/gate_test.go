package directive

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"overseer/internal/authority"
	"overseer/internal/config"
)

func testPolicy() config.PolicyConfig {
	return config.PolicyConfig{
		MaxSpendPerDay:    300,
		AllowRiskIncrease: false,
		VendorApprovers:   []string{"coo", "cco"},
	}
}

func baseDirective() Directive {
	return Directive{
		Agent:     "cmo",
		Action:    "refresh the weekly status ledger",
		Rationale: "keep numbers current",
		Priority:  PriorityRoutine,
	}
}

func TestAssessCleanDirectiveApproved(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	a, err := g.Assess(baseDirective())
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	if a.Status != StatusApproved {
		t.Fatalf("status = %s, want %s", a.Status, StatusApproved)
	}
	if len(a.GatesTriggered) != 0 {
		t.Errorf("gates triggered = %v, want none", a.GatesTriggered)
	}
	if len(a.Approvers) != 0 {
		t.Errorf("approvers = %v, want none", a.Approvers)
	}
}

func TestAssessSpendOverLimitNeedsCEO(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	d := baseDirective()
	d.CostPerDay = 500

	a, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	if a.Status != StatusNeedsCEO {
		t.Errorf("status = %s, want %s", a.Status, StatusNeedsCEO)
	}
	if diff := cmp.Diff([]GateName{GateSpendPerDay}, a.GatesTriggered); diff != "" {
		t.Errorf("gates mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]authority.Role{authority.RoleCEO}, a.Approvers); diff != "" {
		t.Errorf("approvers mismatch (-want +got):\n%s", diff)
	}
}

func TestAssessSpendAtLimitPasses(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	d := baseDirective()
	d.CostPerDay = 300

	a, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	if a.Status != StatusApproved {
		t.Errorf("cost exactly at the ceiling should pass, got %s", a.Status)
	}
}

func TestAssessRiskWithoutMitigationBlocks(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	d := baseDirective()
	d.RiskDelta = 0.2
	d.CostPerDay = 900 // spend gate fires too, but block wins

	a, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	if a.Status != StatusBlocked {
		t.Fatalf("status = %s, want %s", a.Status, StatusBlocked)
	}
	if a.BlockReason == "" || a.RequiredMitigation == "" {
		t.Error("blocked assessment must carry a reason and a required mitigation")
	}
	// Block is terminal but every triggered gate is still reported.
	if diff := cmp.Diff([]GateName{GateSpendPerDay, GateRiskIncrease}, a.GatesTriggered); diff != "" {
		t.Errorf("gates mismatch (-want +got):\n%s", diff)
	}
}

func TestAssessRiskWithMitigationNeedsCEO(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	d := baseDirective()
	d.RiskDelta = 0.1
	d.Rationale = "ship behind a feature flag with an immediate rollback path"

	a, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	if a.Status != StatusNeedsCEO {
		t.Errorf("status = %s, want %s", a.Status, StatusNeedsCEO)
	}
	if a.BlockReason != "" {
		t.Errorf("mitigated risk must not block, got reason %q", a.BlockReason)
	}
}

func TestAssessRiskAllowedByPolicy(t *testing.T) {
	t.Parallel()

	p := testPolicy()
	p.AllowRiskIncrease = true
	g := NewGate(p)
	d := baseDirective()
	d.RiskDelta = 0.5

	a, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	if a.Status != StatusApproved {
		t.Errorf("policy allows risk increases, got %s", a.Status)
	}
}

func TestAssessPublicClaimNeedsCCO(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	d := baseDirective()
	d.Action = "publish the launch announcement to the newsletter"

	a, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	if a.Status != StatusNeedsCCO {
		t.Errorf("status = %s, want %s", a.Status, StatusNeedsCCO)
	}
}

func TestAssessVendorNeedsCCOAndCOO(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	d := baseDirective()
	d.Action = "onboard a new analytics vendor via their saas api"

	a, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	if a.Status != StatusCCOAndCOO {
		t.Errorf("status = %s, want %s", a.Status, StatusCCOAndCOO)
	}
	if diff := cmp.Diff([]authority.Role{authority.RoleCCO, authority.RoleCOO}, a.Approvers); diff != "" {
		t.Errorf("approvers mismatch (-want +got):\n%s", diff)
	}
}

func TestAssessEmergencyPriorityNeedsCEO(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	d := baseDirective()
	d.Priority = PriorityEmergency

	a, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	if a.Status != StatusNeedsCEO {
		t.Errorf("status = %s, want %s", a.Status, StatusNeedsCEO)
	}
	if diff := cmp.Diff([]GateName{GateEmergencyPriority}, a.GatesTriggered); diff != "" {
		t.Errorf("gates mismatch (-want +got):\n%s", diff)
	}
}

func TestAssessMixedApproverSetNeedsMulti(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	d := baseDirective()
	d.Priority = PriorityEmergency
	d.Action = "emergency marketing campaign to publish a retraction"

	a, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	// ceo (emergency) + cco (public claim) is not one of the named routes.
	if a.Status != StatusMulti {
		t.Errorf("status = %s, want %s", a.Status, StatusMulti)
	}
	if len(a.Approvers) != 2 {
		t.Errorf("approvers = %v, want two distinct roles", a.Approvers)
	}
}

func TestAssessDeduplicatesApprovers(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	d := baseDirective()
	d.CostPerDay = 999
	d.Priority = PriorityEmergency // both gates route to ceo

	a, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	if diff := cmp.Diff([]authority.Role{authority.RoleCEO}, a.Approvers); diff != "" {
		t.Errorf("approvers mismatch (-want +got):\n%s", diff)
	}
	if a.Status != StatusNeedsCEO {
		t.Errorf("status = %s, want %s", a.Status, StatusNeedsCEO)
	}
}

func TestAssessIsIdempotent(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	d := baseDirective()
	d.CostPerDay = 500
	d.Action = "run a marketing campaign with a new vendor"

	first, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}
	second, err := g.Assess(d)
	if err != nil {
		t.Fatalf("Assess error: %v", err)
	}

	ignoreTime := cmpopts.IgnoreFields(Assessment{}, "AssessedAt")
	if diff := cmp.Diff(first, second, ignoreTime); diff != "" {
		t.Errorf("re-assessment differs (-first +second):\n%s", diff)
	}
}

func TestAssessValidation(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())

	cases := []struct {
		name  string
		mut   func(*Directive)
		field string
	}{
		{"empty agent", func(d *Directive) { d.Agent = " " }, "agent"},
		{"empty action", func(d *Directive) { d.Action = "" }, "action"},
		{"negative cost", func(d *Directive) { d.CostPerDay = -1 }, "cost_per_day"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := baseDirective()
			tc.mut(&d)
			_, err := g.Assess(d)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %q, want %q", ve.Field, tc.field)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	g := NewGate(testPolicy())
	blocked := baseDirective()
	blocked.RiskDelta = 0.3
	over := baseDirective()
	over.CostPerDay = 400

	batch, err := g.AssessAll([]Directive{baseDirective(), blocked, over})
	if err != nil {
		t.Fatalf("AssessAll error: %v", err)
	}

	s := Summarize(batch)
	if s.Total != 3 || s.Approved != 1 || s.Blocked != 1 || s.NeedsApproval != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.GateHits[GateSpendPerDay] != 1 || s.GateHits[GateRiskIncrease] != 1 {
		t.Errorf("gate hits = %v", s.GateHits)
	}
}
