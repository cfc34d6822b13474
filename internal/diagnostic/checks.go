package diagnostic

import (
	"fmt"
	"time"

	"overseer/internal/metrics"
)

// checkSpec is one row of the fixed check table: thresholds, escalation
// behavior, and the violation severity a sustained failure carries.
type checkSpec struct {
	name     string
	target   string
	escalate bool
	severity Severity
	expected string
	eval     func(snap metrics.Snapshot) (value float64, status CheckStatus, detail string)
}

// bandHigherWorse classifies a metric where larger values are worse.
func bandHigherWorse(v, passMax, warnMax float64) CheckStatus {
	switch {
	case v <= passMax:
		return StatusPass
	case v <= warnMax:
		return StatusWarning
	default:
		return StatusFail
	}
}

// bandLowerWorse classifies a metric where smaller values are worse.
func bandLowerWorse(v, passMin, warnMin float64) CheckStatus {
	switch {
	case v >= passMin:
		return StatusPass
	case v >= warnMin:
		return StatusWarning
	default:
		return StatusFail
	}
}

var checkTable = []checkSpec{
	{
		name:     "data_freshness",
		target:   "ledger data age",
		escalate: true,
		severity: SeverityHigh,
		expected: "data refreshed within 30 minutes",
		eval: func(snap metrics.Snapshot) (float64, CheckStatus, string) {
			v := snap.Value(metrics.SeriesDataFreshnessMin, 0)
			return v, bandHigherWorse(v, 30, 60), fmt.Sprintf("data is %.0f minutes old", v)
		},
	},
	{
		name:     "projection_confidence",
		target:   "forecast model confidence",
		escalate: true,
		severity: SeverityMedium,
		expected: "confidence at or above 0.80",
		eval: func(snap metrics.Snapshot) (float64, CheckStatus, string) {
			v := snap.Value(metrics.SeriesProjectionConfidence, 1)
			return v, bandLowerWorse(v, 0.80, 0.60), fmt.Sprintf("confidence at %.2f", v)
		},
	},
	{
		name:     "queue_backlog",
		target:   "task queue depth",
		escalate: true,
		severity: SeverityMedium,
		expected: "at most 5 queued items",
		eval: func(snap metrics.Snapshot) (float64, CheckStatus, string) {
			v := snap.Value(metrics.SeriesQueueBacklog, 0)
			return v, bandHigherWorse(v, 5, 10), fmt.Sprintf("%.0f items queued", v)
		},
	},
	{
		name:     "agent_heartbeat",
		target:   "fleet agent activity",
		escalate: true,
		severity: SeverityMedium,
		expected: "agents idle at most 45 minutes",
		eval: func(snap metrics.Snapshot) (float64, CheckStatus, string) {
			v := snap.Value(metrics.SeriesAgentIdleMin, 0)
			return v, bandHigherWorse(v, 45, 90), fmt.Sprintf("longest agent idle %.0f minutes", v)
		},
	},
	{
		name:     "api_error_rate",
		target:   "external api health",
		escalate: true,
		severity: SeverityHigh,
		expected: "error rate at most 1%",
		eval: func(snap metrics.Snapshot) (float64, CheckStatus, string) {
			v := snap.Value(metrics.SeriesAPIErrorRate, 0)
			return v, bandHigherWorse(v, 0.01, 0.05), fmt.Sprintf("error rate %.1f%%", v*100)
		},
	},
	{
		name:     "ledger_integrity",
		target:   "ledger reconciliation",
		escalate: true,
		severity: SeverityCritical,
		expected: "ledger reconciles cleanly",
		eval: func(snap metrics.Snapshot) (float64, CheckStatus, string) {
			if snap.Flag(metrics.FlagLedgerIntact) {
				return 1, StatusPass, "ledger reconciles"
			}
			return 0, StatusFail, "ledger failed reconciliation"
		},
	},
	{
		name:     "spend_burn",
		target:   "daily budget burn",
		escalate: true,
		severity: SeverityHigh,
		expected: "burn at most 80% of daily budget",
		eval: func(snap metrics.Snapshot) (float64, CheckStatus, string) {
			v := snap.Value(metrics.SeriesSpendBurnRatio, 0)
			return v, bandHigherWorse(v, 0.80, 1.00), fmt.Sprintf("burned %.0f%% of daily budget", v*100)
		},
	},
	{
		name:     "content_pipeline",
		target:   "content production flow",
		escalate: false,
		severity: SeverityLow,
		expected: "at most 2 stuck pieces",
		eval: func(snap metrics.Snapshot) (float64, CheckStatus, string) {
			v := snap.Value(metrics.SeriesContentPipelineStuck, 0)
			return v, bandHigherWorse(v, 2, 4), fmt.Sprintf("%.0f pieces stuck", v)
		},
	},
	{
		name:     "brief_delivery",
		target:   "daily operator brief",
		escalate: false,
		severity: SeverityLow,
		expected: "brief delivered on schedule",
		eval: func(snap metrics.Snapshot) (float64, CheckStatus, string) {
			if snap.Flag(metrics.FlagBriefsDeliveredOnTime) {
				return 1, StatusPass, "brief delivered on time"
			}
			return 0, StatusFail, "brief missed its delivery window"
		},
	},
}

// correctionSpec is one row of the fixed check→action table.
type correctionSpec struct {
	action string
	target string
}

var correctionTable = map[string]correctionSpec{
	"data_freshness":        {action: "trigger_resync", target: "data sync pipeline"},
	"projection_confidence": {action: "recalibrate_projections", target: "projection model"},
	"queue_backlog":         {action: "drain_queue", target: "task queue"},
	"agent_heartbeat":       {action: "restart_idle_agent", target: "idle fleet agent"},
	"api_error_rate":        {action: "throttle_api_calls", target: "api client"},
	"ledger_integrity":      {action: "freeze_writes_restore_ledger", target: "ledger"},
	"spend_burn":            {action: "pause_noncritical_spend", target: "spend controls"},
}

// seedChecks builds the initial check set from the table.
func seedChecks(now time.Time) []*Check {
	checks := make([]*Check, 0, len(checkTable))
	for _, spec := range checkTable {
		checks = append(checks, &Check{
			Name:        spec.name,
			Target:      spec.target,
			Status:      StatusPass,
			Escalate:    spec.escalate,
			Severity:    spec.severity,
			LastChecked: now,
		})
	}
	return checks
}

// fleetRoster is the fixed agent fleet. Governance and the chief of staff
// stay active in every alert mode.
var fleetRoster = []struct {
	name      string
	essential bool
}{
	{"coo", false},
	{"cro", false},
	{"cmo", false},
	{"cco", false},
	{"content_manager", false},
	{"market_intel", false},
	{"governance", true},
	{"chief_of_staff", true},
}

func seedFleet(now time.Time) []WorkerStatus {
	fleet := make([]WorkerStatus, 0, len(fleetRoster))
	for _, w := range fleetRoster {
		fleet = append(fleet, WorkerStatus{
			Name:         w.name,
			State:        WorkerActive,
			LastActivity: now,
			Essential:    w.essential,
		})
	}
	return fleet
}
