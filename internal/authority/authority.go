// Package authority enforces the human/operator boundary. Every privileged
// operation names the set of executive roles allowed to invoke it; callers
// outside the set are rejected with a structured Error before any state
// changes.
package authority

import (
	"fmt"
	"sort"
	"strings"

	"overseer/internal/logging"
)

// Role is an executive role in the agent organization.
type Role string

const (
	RoleCEO          Role = "ceo"
	RoleCOO          Role = "coo"
	RoleCCO          Role = "cco"
	RoleCRO          Role = "cro"
	RoleCMO          Role = "cmo"
	RoleChiefOfStaff Role = "chief_of_staff"
)

// Roles returns the full role space, sorted.
func Roles() []Role {
	return []Role{RoleCCO, RoleCEO, RoleCMO, RoleCOO, RoleCRO, RoleChiefOfStaff}
}

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCEO, RoleCOO, RoleCCO, RoleCRO, RoleCMO, RoleChiefOfStaff:
		return true
	}
	return false
}

// Operation names a privileged write operation.
type Operation string

const (
	OpInitializeDiagnostics Operation = "diagnostics.initialize"
	OpTriggerCycle          Operation = "diagnostics.trigger_cycle"
	OpStopDiagnostics       Operation = "diagnostics.stop"
	OpInitializeOversight   Operation = "oversight.initialize"
	OpAdvanceDay            Operation = "oversight.advance_day"
	OpRecordDecision        Operation = "oversight.record_decision"
)

// Error reports a caller lacking the role required for an operation.
type Error struct {
	Operation Operation
	Caller    Role
	Required  []Role
}

func (e *Error) Error() string {
	names := make([]string, len(e.Required))
	for i, r := range e.Required {
		names[i] = string(r)
	}
	return fmt.Sprintf("authority violation: %s may not invoke %s (requires one of: %s)",
		e.Caller, e.Operation, strings.Join(names, ", "))
}

// Guard checks callers against per-operation allowed role sets.
type Guard struct {
	allowed map[Operation][]Role
}

// NewGuard builds the default guard: the operator boundary for the
// diagnostic and oversight engines is held by the CEO and COO.
func NewGuard() *Guard {
	operators := []Role{RoleCEO, RoleCOO}
	return &Guard{
		allowed: map[Operation][]Role{
			OpInitializeDiagnostics: operators,
			OpTriggerCycle:          operators,
			OpStopDiagnostics:       operators,
			OpInitializeOversight:   operators,
			OpAdvanceDay:            operators,
			OpRecordDecision:        operators,
		},
	}
}

// Allow grants additional roles for an operation (test and deployment
// configuration hook).
func (g *Guard) Allow(op Operation, roles ...Role) {
	g.allowed[op] = append(g.allowed[op], roles...)
}

// Check returns nil when caller may invoke op, or an *Error naming the
// required role set.
func (g *Guard) Check(op Operation, caller Role) error {
	required := g.allowed[op]
	for _, r := range required {
		if r == caller {
			return nil
		}
	}

	sorted := append([]Role(nil), required...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	logging.Get(logging.CategoryAuthority).Warn("rejected %s for caller %q", op, caller)
	return &Error{Operation: op, Caller: caller, Required: sorted}
}
