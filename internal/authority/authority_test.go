package authority

import (
	"errors"
	"testing"
)

func TestGuardAllowsOperators(t *testing.T) {
	t.Parallel()

	g := NewGuard()
	for _, caller := range []Role{RoleCEO, RoleCOO} {
		if err := g.Check(OpTriggerCycle, caller); err != nil {
			t.Errorf("Check(%s, %s) = %v, want nil", OpTriggerCycle, caller, err)
		}
	}
}

func TestGuardRejectsOutsiders(t *testing.T) {
	t.Parallel()

	g := NewGuard()
	err := g.Check(OpAdvanceDay, RoleCMO)
	if err == nil {
		t.Fatal("expected authority violation for cmo")
	}

	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if authErr.Operation != OpAdvanceDay {
		t.Errorf("operation = %s, want %s", authErr.Operation, OpAdvanceDay)
	}
	if len(authErr.Required) != 2 {
		t.Errorf("required roles = %v, want the two operator roles", authErr.Required)
	}
}

func TestGuardAllowExtension(t *testing.T) {
	t.Parallel()

	g := NewGuard()
	g.Allow(OpRecordDecision, RoleChiefOfStaff)
	if err := g.Check(OpRecordDecision, RoleChiefOfStaff); err != nil {
		t.Errorf("Check after Allow = %v, want nil", err)
	}
}

func TestRoleValid(t *testing.T) {
	t.Parallel()

	if !RoleCEO.Valid() {
		t.Error("ceo should be valid")
	}
	if Role("intern").Valid() {
		t.Error("unknown role should be invalid")
	}
}
