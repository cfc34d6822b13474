// Package oversight implements the multi-day oversight map: six tracked
// metrics over a fixed horizon, a day-by-day focus plan, daily cycle
// reports with a weighted health index, operator decisions, and a terminal
// verdict rendered on the final day.
package oversight

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"overseer/internal/metrics"
)

// ErrNotInitialized is returned by mutating operations before Initialize.
var ErrNotInitialized = errors.New("oversight: map not initialized")

// ErrHorizonComplete is returned by AdvanceDay once the terminal verdict
// has been rendered; the map never advances past its horizon.
var ErrHorizonComplete = errors.New("oversight: horizon complete, verdict already rendered")

// Trend is a metric's direction over its recent samples.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendFlat Trend = "flat"
	TrendDown Trend = "down"
)

// Metric is one tracked oversight metric with its bounded rolling history.
type Metric struct {
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Target    float64   `json:"target"`
	Weight    float64   `json:"weight"`
	Current   float64   `json:"current"`
	TargetMet bool      `json:"target_met"`
	Alert     bool      `json:"alert"`
	Trend     Trend     `json:"trend"`
	History   []float64 `json:"history"`
}

// FocusStatus tracks a day's focus through the plan.
type FocusStatus string

const (
	FocusPending   FocusStatus = "pending"
	FocusCurrent   FocusStatus = "current"
	FocusCompleted FocusStatus = "completed"
)

// Focus is one day of the oversight plan.
type Focus struct {
	Day         int         `json:"day"`
	Items       []string    `json:"items"`
	Status      FocusStatus `json:"status"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Findings    []string    `json:"findings,omitempty"`
	Corrections []string    `json:"corrections,omitempty"`
}

// Readiness is the four-band classification of a day's health index.
type Readiness string

const (
	ReadinessImproving Readiness = "improving"
	ReadinessOnTrack   Readiness = "on_track"
	ReadinessAtRisk    Readiness = "at_risk"
	ReadinessStalled   Readiness = "stalled"
)

// DailyCycleReport is the generated record of one oversight day.
type DailyCycleReport struct {
	Day                 int              `json:"day"`
	GeneratedAt         time.Time        `json:"generated_at"`
	Inputs              metrics.Snapshot `json:"inputs"`
	HealthIndex         float64          `json:"health_index"`
	Readiness           Readiness        `json:"readiness"`
	TargetedCorrections []string         `json:"targeted_corrections"`
	Metrics             []Metric         `json:"metrics"`
	Alerts              []string         `json:"alerts"`
}

// DecisionKind is one of the enumerated operator decision kinds.
type DecisionKind string

const (
	DecisionGo            DecisionKind = "go"
	DecisionHold          DecisionKind = "hold"
	DecisionEscalate      DecisionKind = "escalate"
	DecisionCourseCorrect DecisionKind = "course_correct"
	DecisionRollback      DecisionKind = "rollback"
)

// DecisionKinds enumerates the valid decision space.
func DecisionKinds() []DecisionKind {
	return []DecisionKind{DecisionGo, DecisionHold, DecisionEscalate, DecisionCourseCorrect, DecisionRollback}
}

// isCorrectionKind reports whether a decision also lands in the current
// day's focus corrections.
func isCorrectionKind(k DecisionKind) bool {
	return k == DecisionCourseCorrect || k == DecisionRollback
}

func validDecisionKind(k DecisionKind) bool {
	for _, kind := range DecisionKinds() {
		if kind == k {
			return true
		}
	}
	return false
}

// Decision is one recorded operator decision, tagged with the day it was
// made on.
type Decision struct {
	ID        string       `json:"id"`
	Kind      DecisionKind `json:"kind"`
	Day       int          `json:"day"`
	Timestamp time.Time    `json:"timestamp"`
	Reasoning string       `json:"reasoning"`
	Target    string       `json:"target,omitempty"`
}

// TerminalVerdict is the map's end state: pending until the horizon's last
// day, then one of the two terminal values forever.
type TerminalVerdict string

const (
	VerdictPending   TerminalVerdict = "pending"
	VerdictImproving TerminalVerdict = "improving"
	VerdictStalled   TerminalVerdict = "stalled"
)

// MapStatus is the externally visible map state; Active is false before
// Initialize.
type MapStatus struct {
	Active      bool            `json:"active"`
	Day         int             `json:"day"`
	HorizonDays int             `json:"horizon_days"`
	Verdict     TerminalVerdict `json:"verdict"`
	HealthIndex float64         `json:"health_index"`
	Readiness   Readiness       `json:"readiness"`
}

// ValidationError reports invalid oversight input, listing the valid
// values when the domain is enumerable.
type ValidationError struct {
	Field      string
	Constraint string
	Valid      []string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid input: field %q %s", e.Field, e.Constraint)
	if len(e.Valid) > 0 {
		msg += fmt.Sprintf(" (valid: %s)", strings.Join(e.Valid, ", "))
	}
	return msg
}
