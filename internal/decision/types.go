// Package decision implements the failure classifier and the decision
// framework: given a diagnostic brief describing a failure and a proposed
// corrective action, it classifies the failure into one of five fixed
// classes and renders an approved/modified/rejected verdict against six
// mandatory criteria.
package decision

import (
	"fmt"
	"time"

	"overseer/internal/authority"
)

// FailureClass is one of the five fixed failure classes.
type FailureClass string

const (
	ClassDataIntegrity       FailureClass = "data_integrity"
	ClassPipelineBlockage    FailureClass = "pipeline_blockage"
	ClassStakeholderFriction FailureClass = "stakeholder_friction"
	ClassExternalDisruption  FailureClass = "external_disruption"
	ClassInternalDrift       FailureClass = "internal_drift"
)

// Urgency orders failure classes by how fast correction must land.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// CorrectionType names the remedial playbook a failure class maps to.
type CorrectionType string

const (
	CorrectionLedgerRestoration  CorrectionType = "ledger_restoration"
	CorrectionPipelineUnclogging CorrectionType = "pipeline_unclogging"
	CorrectionTrustRepair        CorrectionType = "trust_repair"
	CorrectionMarketAdaptation   CorrectionType = "market_adaptation"
	CorrectionAgentRealignment   CorrectionType = "agent_realignment"
)

// FailureClassification is the derived, stateless result of classifying a
// diagnostic brief. Recomputed per brief, never stored as source of truth.
type FailureClassification struct {
	Class          FailureClass   `json:"class"`
	Urgency        Urgency        `json:"urgency"`
	CorrectionType CorrectionType `json:"correction_type"`
	Symptoms       []string       `json:"symptoms"`
	Meaning        string         `json:"meaning"`
}

// RootCause is the analyzer's conclusion about what went wrong.
type RootCause struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

// ProposedAction is the corrective action under evaluation.
type ProposedAction struct {
	Name  string   `json:"name"`
	Text  string   `json:"text"`
	Steps []string `json:"steps"`

	// RiskLevel is the analyzer's own risk estimate: low, medium, high.
	RiskLevel string `json:"risk_level"`

	// RequestsElevatedAutonomy and MutatesWorkers fail the stability
	// criterion when set.
	RequestsElevatedAutonomy bool `json:"requests_elevated_autonomy"`
	MutatesWorkers           bool `json:"mutates_workers"`
}

// Projection is the analyzer's forecast of the action's effect.
type Projection struct {
	CurrentValue      float64 `json:"current_value"`
	ProjectedValue    float64 `json:"projected_value"`
	Confidence        float64 `json:"confidence"`
	TimeToEffectHours int     `json:"time_to_effect_hours"`
}

// SafetyFlags are the upstream assertions the protection criteria rest on.
type SafetyFlags struct {
	MethodologyIntact bool `json:"methodology_intact"`
	LadderLocked      bool `json:"ladder_locked"`
}

// DiagnosticBrief is the full input to the decision framework: root cause,
// proposed corrective action, projection, and safety flags.
type DiagnosticBrief struct {
	RootCause  RootCause      `json:"root_cause"`
	Action     ProposedAction `json:"action"`
	Projection Projection     `json:"projection"`
	Safety     SafetyFlags    `json:"safety"`
}

// Criterion names, fixed.
const (
	CriterionProtection    = "methodology_protection"
	CriterionIntegrity     = "revenue_integrity"
	CriterionDefensibility = "audit_defensibility"
	CriterionProcess       = "process_integrity"
	CriterionStability     = "system_stability"
	CriterionRestorative   = "restorative_power"
)

// CriterionResult is the outcome of one mandatory criterion.
type CriterionResult struct {
	Name            string `json:"name"`
	MustPass        bool   `json:"must_pass"`
	Passed          bool   `json:"passed"`
	Evidence        string `json:"evidence"`
	ViolationReason string `json:"violation_reason,omitempty"`
}

// Evaluation composes the six criterion results.
type Evaluation struct {
	Results     []CriterionResult `json:"results"`
	EvaluatedAt time.Time         `json:"evaluated_at"`
}

// AllPassed reports whether every criterion passed.
func (e Evaluation) AllPassed() bool {
	for _, r := range e.Results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// FailedNames returns the names of failing criteria in evaluation order.
func (e Evaluation) FailedNames() []string {
	var names []string
	for _, r := range e.Results {
		if !r.Passed {
			names = append(names, r.Name)
		}
	}
	return names
}

// Failed reports whether the named criterion is among the failures.
func (e Evaluation) Failed(name string) bool {
	for _, r := range e.Results {
		if r.Name == name && !r.Passed {
			return true
		}
	}
	return false
}

// VerdictType is the framework's terminal outcome for one brief.
type VerdictType string

const (
	VerdictApproved VerdictType = "approved"
	VerdictModified VerdictType = "modified"
	VerdictRejected VerdictType = "rejected"
)

// ExecutionDirective is the enforcement order attached to an approval.
type ExecutionDirective struct {
	Command          string           `json:"command"`
	EnforcingRole    authority.Role   `json:"enforcing_role"`
	Implementers     []authority.Role `json:"implementers"`
	Deadline         time.Time        `json:"deadline"`
	FollowUpRequired bool             `json:"follow_up_required"`
	FollowUpAt       time.Time        `json:"follow_up_at,omitempty"`
}

// Verdict is one rendered decision. Immutable once rendered; appended to
// the framework's history.
type Verdict struct {
	ID             string                `json:"id"`
	Timestamp      time.Time             `json:"timestamp"`
	Brief          DiagnosticBrief       `json:"brief"`
	Classification FailureClassification `json:"classification"`
	Evaluation     Evaluation            `json:"evaluation"`
	Verdict        VerdictType           `json:"verdict"`
	Rationale      string                `json:"rationale"`
	RequiredFixes  []string              `json:"required_fixes,omitempty"`
	Execution      *ExecutionDirective   `json:"execution,omitempty"`
}

// ValidationError reports a malformed diagnostic brief.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid brief: field %q %s", e.Field, e.Constraint)
}
