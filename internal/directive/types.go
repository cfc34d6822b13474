// Package directive implements the policy gate: the pure evaluator that
// screens proposed autonomous actions against business and safety policy
// before anything executes. Assessment is a pure function of one directive
// plus a read-only policy configuration; it is safe to call concurrently.
package directive

import (
	"fmt"
	"time"

	"overseer/internal/authority"
)

// Priority is an ordered urgency tier.
type Priority string

const (
	PriorityRoutine   Priority = "routine"
	PriorityElevated  Priority = "elevated"
	PriorityHigh      Priority = "high"
	PriorityEmergency Priority = "emergency"
)

// Tier returns the numeric order of a priority; unknown priorities sort
// lowest.
func (p Priority) Tier() int {
	switch p {
	case PriorityRoutine:
		return 1
	case PriorityElevated:
		return 2
	case PriorityHigh:
		return 3
	case PriorityEmergency:
		return 4
	}
	return 0
}

// Directive is a proposed autonomous action submitted for policy
// evaluation. Immutable once assessed.
type Directive struct {
	Agent      string    `json:"agent"`
	Action     string    `json:"action"`
	Rationale  string    `json:"rationale"`
	Priority   Priority  `json:"priority"`
	Due        time.Time `json:"due"`
	CostPerDay float64   `json:"cost_per_day"`
	RiskDelta  float64   `json:"risk_delta"`
	Tasks      []string  `json:"tasks"`
}

// Status is the approval route for an assessed directive.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusNeedsCEO  Status = "needs_ceo"
	StatusNeedsCOO  Status = "needs_coo"
	StatusNeedsCCO  Status = "needs_cco"
	StatusNeedsCMO  Status = "needs_cmo"
	StatusNeedsCRO  Status = "needs_cro"
	StatusCCOAndCOO Status = "needs_cco_coo"
	StatusMulti     Status = "needs_multi"
	StatusBlocked   Status = "blocked"
)

// GateName identifies one policy gate.
type GateName string

const (
	GateSpendPerDay       GateName = "spend_per_day"
	GateRiskIncrease      GateName = "risk_increase"
	GatePublicClaim       GateName = "public_claim"
	GateNewVendor         GateName = "new_vendor"
	GateEmergencyPriority GateName = "emergency_priority"
)

// Assessment is the gate's verdict on one directive. Never mutated after
// creation; re-assessment produces a new record.
type Assessment struct {
	Directive          Directive        `json:"directive"`
	Status             Status           `json:"status"`
	GatesTriggered     []GateName       `json:"gates_triggered"`
	BlockReason        string           `json:"block_reason,omitempty"`
	RequiredMitigation string           `json:"required_mitigation,omitempty"`
	Approvers          []authority.Role `json:"approvers"`
	AssessedAt         time.Time        `json:"assessed_at"`
}

// Summary aggregates a batch of assessments for the directive producer.
type Summary struct {
	Total         int              `json:"total"`
	Approved      int              `json:"approved"`
	Blocked       int              `json:"blocked"`
	NeedsApproval int              `json:"needs_approval"`
	GateHits      map[GateName]int `json:"gate_hits"`
}

// ValidationError reports a malformed directive.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid directive: field %q %s", e.Field, e.Constraint)
}
