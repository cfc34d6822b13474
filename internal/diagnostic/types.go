// Package diagnostic implements the recurring diagnostic cycle engine:
// nine named health checks re-evaluated each cycle, violation detection
// with idempotent opening, deterministic corrective actions, a tiered
// alert mode with worker-freezing side effects, and bounded histories.
package diagnostic

import (
	"errors"
	"time"
)

// ErrNotInitialized is returned by mutating operations invoked before
// Initialize. Status getters never return it; they report an inactive
// shape instead.
var ErrNotInitialized = errors.New("diagnostic: engine not initialized")

// CheckStatus is the three-state outcome of one health check.
type CheckStatus string

const (
	StatusPass    CheckStatus = "pass"
	StatusWarning CheckStatus = "warning"
	StatusFail    CheckStatus = "fail"
)

// Severity ranks a violation.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Check is one named health probe, re-evaluated every cycle and mutated
// in place, never deleted.
type Check struct {
	Name        string      `json:"name"`
	Target      string      `json:"target"`
	Value       float64     `json:"value"`
	Status      CheckStatus `json:"status"`
	Escalate    bool        `json:"escalate"`
	Severity    Severity    `json:"severity"`
	LastChecked time.Time   `json:"last_checked"`
	Detail      string      `json:"detail"`
}

// Violation records a check staying in failing state. At most one
// unresolved violation exists per check name at any time.
type Violation struct {
	ID             string     `json:"id"`
	CheckName      string     `json:"check_name"`
	Severity       Severity   `json:"severity"`
	DetectedAt     time.Time  `json:"detected_at"`
	Observed       string     `json:"observed"`
	Expected       string     `json:"expected"`
	AffectedWorker string     `json:"affected_worker,omitempty"`
	Resolved       bool       `json:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// VerificationResult tracks whether a correction took effect.
type VerificationResult string

const (
	VerificationPending VerificationResult = "pending"
	VerificationSuccess VerificationResult = "success"
	VerificationFailed  VerificationResult = "failed"
)

// Correction is one deterministic remedial action, created 1:1 with a
// newly opened violation.
type Correction struct {
	ID           string             `json:"id"`
	ViolationID  string             `json:"violation_id"`
	Action       string             `json:"action"`
	Target       string             `json:"target"`
	AppliedAt    time.Time          `json:"applied_at"`
	Success      bool               `json:"success"`
	Verification VerificationResult `json:"verification"`
	Error        string             `json:"error,omitempty"`
}

// AlertMode is the system-wide escalation level, recomputed every cycle.
type AlertMode string

const (
	AlertNormal   AlertMode = "normal"
	AlertElevated AlertMode = "elevated"
	AlertHigh     AlertMode = "high_alert"
)

// WorkerState is a fleet agent's lifecycle state.
type WorkerState string

const (
	WorkerActive     WorkerState = "active"
	WorkerPaused     WorkerState = "paused"
	WorkerFrozen     WorkerState = "frozen"
	WorkerRestarting WorkerState = "restarting"
)

// WorkerStatus is one fleet agent as the engine sees it. Essential workers
// are never frozen, even in high alert.
type WorkerStatus struct {
	Name           string      `json:"name"`
	State          WorkerState `json:"state"`
	LastActivity   time.Time   `json:"last_activity"`
	IdleMinutes    float64     `json:"idle_minutes"`
	ReviewComplete bool        `json:"review_complete"`
	Essential      bool        `json:"essential"`
}

// CycleSummary is the record of one completed cycle, appended to a
// bounded history.
type CycleSummary struct {
	Cycle               int       `json:"cycle"`
	Timestamp           time.Time `json:"timestamp"`
	PassCount           int       `json:"pass_count"`
	WarningCount        int       `json:"warning_count"`
	FailCount           int       `json:"fail_count"`
	NewViolations       int       `json:"new_violations"`
	CorrectionsApplied  int       `json:"corrections_applied"`
	CorrectionFailures  int       `json:"correction_failures"`
	AlertMode           AlertMode `json:"alert_mode"`
	VerificationTargets []string  `json:"verification_targets"`
}

// Status is the engine's externally visible state. Safe to request at any
// time: before Initialize, Active is false and everything else is zero.
type Status struct {
	Active         bool           `json:"active"`
	Cycle          int            `json:"cycle"`
	AlertMode      AlertMode      `json:"alert_mode"`
	LastCycleAt    time.Time      `json:"last_cycle_at"`
	OpenViolations int            `json:"open_violations"`
	FailingChecks  []string       `json:"failing_checks"`
	Workers        []WorkerStatus `json:"workers"`
}
