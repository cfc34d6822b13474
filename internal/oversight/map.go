package oversight

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"overseer/internal/authority"
	"overseer/internal/config"
	"overseer/internal/logging"
	"overseer/internal/metrics"
	"overseer/internal/store"
)

// mapKey is the repository record holding the oversight map state.
const mapKey = "oversight_map"

// Metric names, fixed.
const (
	MetricLeadConfidence   = "lead_confidence"
	MetricStabilityWeeks   = "stability_weeks"
	MetricBacklogClearance = "backlog_clearance"
	MetricDataFreshness    = "data_freshness"
	MetricContentVolume    = "content_volume"
	MetricSystemUptime     = "system_uptime"
)

// focusPlan is the standing 7-day focus sequence. Horizons shorter than
// the plan use a prefix; longer ones repeat the final consolidation day.
var focusPlan = [][]string{
	{"verify ledger integrity and data freshness baselines"},
	{"clear queue backlog", "confirm agent heartbeats"},
	{"recalibrate projections against fresh data"},
	{"review spend burn and api error trends"},
	{"unblock content pipeline", "audit brief delivery"},
	{"stress-test corrections applied this week"},
	{"consolidate findings", "prepare terminal assessment"},
}

// Map is the oversight service: one instance per horizon, advanced
// explicitly day by day by an operator, never by wall clock.
type Map struct {
	cfg      config.OversightConfig
	guard    *authority.Guard
	provider metrics.Provider
	repo     store.Repository
	archive  *store.Archive

	mu    sync.Mutex
	state *mapState
}

type mapState struct {
	Active    bool               `json:"active"`
	Day       int                `json:"day"`
	StartedAt time.Time          `json:"started_at"`
	Metrics   []Metric           `json:"metrics"`
	Focus     []Focus            `json:"focus"`
	Reports   []DailyCycleReport `json:"reports"`
	Decisions []Decision         `json:"decisions"`
	Verdict   TerminalVerdict    `json:"verdict"`
}

// NewMap builds an oversight map and rehydrates any persisted horizon, so
// a restarted process resumes at the correct day.
func NewMap(cfg config.OversightConfig, guard *authority.Guard, provider metrics.Provider, repo store.Repository, archive *store.Archive) (*Map, error) {
	m := &Map{cfg: cfg, guard: guard, provider: provider, repo: repo, archive: archive}
	if repo != nil {
		var s mapState
		switch err := repo.Load(mapKey, &s); err {
		case nil:
			m.state = &s
			logging.Oversight("rehydrated map at day %d/%d (verdict %s)", s.Day, cfg.HorizonDays, s.Verdict)
		case store.ErrNotFound:
			// first run
		default:
			return nil, fmt.Errorf("failed to rehydrate oversight map: %w", err)
		}
	}
	return m, nil
}

// Initialize seeds the metrics and focus plan, sets day 1 current, and
// generates the first daily report. Requires operator authority.
func (m *Map) Initialize(ctx context.Context, caller authority.Role) error {
	if err := m.guard.Check(authority.OpInitializeOversight, caller); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	s := &mapState{
		Active:    true,
		Day:       1,
		StartedAt: now,
		Metrics:   seedMetrics(m.cfg),
		Focus:     seedFocus(m.cfg.HorizonDays),
		Verdict:   VerdictPending,
	}
	s.Focus[0].Status = FocusCurrent
	m.state = s

	if _, err := m.generateReportLocked(ctx); err != nil {
		m.state = nil
		return err
	}
	m.persistLocked()
	logging.Oversight("map initialized by %s: %d-day horizon, %d metrics", caller, m.cfg.HorizonDays, len(s.Metrics))
	return nil
}

// AdvanceDay completes the current day's focus and either moves to the
// next day (regenerating the daily report) or, on the final day, renders
// the terminal verdict. Never advances past the horizon.
func (m *Map) AdvanceDay(ctx context.Context, caller authority.Role) error {
	if err := m.guard.Check(authority.OpAdvanceDay, caller); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	if s == nil || !s.Active {
		return fmt.Errorf("advance day: %w", ErrNotInitialized)
	}
	if s.Verdict != VerdictPending {
		return ErrHorizonComplete
	}

	now := time.Now()
	current := &s.Focus[s.Day-1]
	current.Status = FocusCompleted
	current.CompletedAt = &now

	if s.Day < m.cfg.HorizonDays {
		s.Day++
		s.Focus[s.Day-1].Status = FocusCurrent
		if _, err := m.generateReportLocked(ctx); err != nil {
			return err
		}
		m.persistLocked()
		logging.Oversight("advanced to day %d/%d", s.Day, m.cfg.HorizonDays)
		return nil
	}

	s.Verdict = m.renderTerminalVerdictLocked()
	m.persistLocked()
	logging.Oversight("horizon complete: terminal verdict %s", s.Verdict)
	return nil
}

// renderTerminalVerdictLocked applies the fixed terminal rule: health
// index at or above the threshold, confidence not declining, and the
// stability metric at or above its floor.
func (m *Map) renderTerminalVerdictLocked() TerminalVerdict {
	s := m.state
	var health float64
	if len(s.Reports) > 0 {
		health = s.Reports[len(s.Reports)-1].HealthIndex
	}

	confidenceDeclining := false
	stability := 0.0
	for _, metric := range s.Metrics {
		switch metric.Name {
		case MetricLeadConfidence:
			confidenceDeclining = metric.Trend == TrendDown
		case MetricStabilityWeeks:
			stability = metric.Current
		}
	}

	if health >= m.cfg.HealthVerdictThreshold && !confidenceDeclining && stability >= m.cfg.StabilityFloor {
		return VerdictImproving
	}
	return VerdictStalled
}

// RecordDecision appends an operator decision tagged with the current day.
// Correction-kind decisions additionally land in the day's focus
// corrections list. Rejected once the terminal verdict is rendered: the
// map is immutable after the horizon ends.
func (m *Map) RecordDecision(caller authority.Role, kind DecisionKind, reasoning, target string) (Decision, error) {
	if err := m.guard.Check(authority.OpRecordDecision, caller); err != nil {
		return Decision{}, err
	}
	if !validDecisionKind(kind) {
		valid := make([]string, 0, len(DecisionKinds()))
		for _, k := range DecisionKinds() {
			valid = append(valid, string(k))
		}
		return Decision{}, &ValidationError{Field: "kind", Constraint: fmt.Sprintf("unknown decision kind %q", kind), Valid: valid}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	if s == nil || !s.Active {
		return Decision{}, fmt.Errorf("record decision: %w", ErrNotInitialized)
	}
	if s.Verdict != VerdictPending {
		return Decision{}, ErrHorizonComplete
	}

	d := Decision{
		ID:        uuid.NewString(),
		Kind:      kind,
		Day:       s.Day,
		Timestamp: time.Now(),
		Reasoning: reasoning,
		Target:    target,
	}
	s.Decisions = append(s.Decisions, d)

	if isCorrectionKind(kind) {
		focus := &s.Focus[s.Day-1]
		note := string(kind)
		if target != "" {
			note += ": " + target
		}
		focus.Corrections = append(focus.Corrections, note)
	}

	m.persistLocked()
	if m.archive != nil {
		if err := m.archive.RecordDecision(d.ID, string(d.Kind), d.Day, d.Timestamp, d); err != nil {
			logging.Get(logging.CategoryOversight).Error("failed to archive decision %s: %v", d.ID, err)
		}
	}
	logging.Oversight("decision %s recorded on day %d by %s", kind, s.Day, caller)
	return d, nil
}

// GenerateDailyCycleReport recomputes the current day's report on demand.
func (m *Map) GenerateDailyCycleReport(ctx context.Context) (DailyCycleReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil || !m.state.Active {
		return DailyCycleReport{}, fmt.Errorf("generate report: %w", ErrNotInitialized)
	}
	report, err := m.generateReportLocked(ctx)
	if err != nil {
		return DailyCycleReport{}, err
	}
	m.persistLocked()
	return report, nil
}

// generateReportLocked samples the provider, updates every metric's
// current value / trend / history, and appends a new report for the
// current day.
func (m *Map) generateReportLocked(ctx context.Context) (DailyCycleReport, error) {
	snap, err := m.provider.Snapshot(ctx)
	if err != nil {
		return DailyCycleReport{}, fmt.Errorf("metric snapshot failed: %w", err)
	}

	s := m.state
	for i := range s.Metrics {
		updateMetric(&s.Metrics[i], snap, m.cfg.MetricHistoryCap)
	}

	health := m.healthIndexLocked()
	report := DailyCycleReport{
		Day:                 s.Day,
		GeneratedAt:         time.Now(),
		Inputs:              snap,
		HealthIndex:         health,
		Readiness:           classifyReadiness(health),
		TargetedCorrections: m.targetedCorrectionsLocked(),
		Metrics:             append([]Metric(nil), s.Metrics...),
	}
	for _, metric := range s.Metrics {
		if metric.Alert {
			report.Alerts = append(report.Alerts, metric.Name)
		}
	}

	s.Reports = append(s.Reports, report)
	logging.Oversight("day %d report: health %.1f (%s), %d alerts", s.Day, health, report.Readiness, len(report.Alerts))
	return report, nil
}

// healthIndexLocked is the fixed weighted sum of per-metric progress
// ratios, each clamped to 100 before weighting. System uptime carries no
// weight; it is tracked for its alert flag only.
func (m *Map) healthIndexLocked() float64 {
	var index float64
	for _, metric := range m.state.Metrics {
		if metric.Weight == 0 {
			continue
		}
		index += progressRatio(metric) * metric.Weight / 100
	}
	return index
}

// progressRatio maps a metric to 0..100 progress toward its target.
func progressRatio(metric Metric) float64 {
	switch metric.Name {
	case MetricDataFreshness:
		// lower is better; at or under target counts as full progress
		if metric.Current <= metric.Target {
			return 100
		}
		return clamp(metric.Target/metric.Current*100, 0, 100)
	default:
		if metric.Target <= 0 {
			return 0
		}
		return clamp(metric.Current/metric.Target*100, 0, 100)
	}
}

func classifyReadiness(health float64) Readiness {
	switch {
	case health >= 80:
		return ReadinessImproving
	case health >= 60:
		return ReadinessOnTrack
	case health >= 40:
		return ReadinessAtRisk
	default:
		return ReadinessStalled
	}
}

// targetedCorrectionsLocked derives correction suggestions from simple
// per-metric threshold checks.
func (m *Map) targetedCorrectionsLocked() []string {
	var out []string
	for _, metric := range m.state.Metrics {
		switch metric.Name {
		case MetricLeadConfidence:
			if metric.Current < 60 {
				out = append(out, "review lead scoring model inputs")
			}
		case MetricStabilityWeeks:
			if metric.Current < m.cfg.StabilityFloor {
				out = append(out, "extend the stabilization period before new launches")
			}
		case MetricBacklogClearance:
			if metric.Current < 70 {
				out = append(out, "schedule a backlog clearance sprint")
			}
		case MetricDataFreshness:
			if metric.Current > metric.Target {
				out = append(out, "trigger a data resync")
			}
		case MetricContentVolume:
			if metric.Current < metric.Target/2 {
				out = append(out, "unblock the content pipeline")
			}
		case MetricSystemUptime:
			if metric.Alert {
				out = append(out, "investigate uptime degradation")
			}
		}
	}
	return out
}

// updateMetric folds one snapshot sample into a metric: current value,
// bounded history, trend, target/alert flags.
func updateMetric(metric *Metric, snap metrics.Snapshot, historyCap int) {
	value := snap.Value(metric.Source, metric.Current)
	metric.Current = value

	metric.History = append(metric.History, value)
	if historyCap > 0 && len(metric.History) > historyCap {
		metric.History = metric.History[len(metric.History)-historyCap:]
	}

	metric.Trend = computeTrend(metric.History)

	switch metric.Name {
	case MetricDataFreshness:
		metric.TargetMet = value <= metric.Target
		metric.Alert = value > 2*metric.Target
	case MetricSystemUptime:
		metric.TargetMet = value >= metric.Target
		metric.Alert = value < 99
	default:
		metric.TargetMet = value >= metric.Target
		metric.Alert = value < metric.Target/2
	}
}

// computeTrend compares the newest sample against the previous one with a
// small tolerance.
func computeTrend(history []float64) Trend {
	if len(history) < 2 {
		return TrendFlat
	}
	prev, last := history[len(history)-2], history[len(history)-1]
	const epsilon = 0.01
	switch {
	case last > prev*(1+epsilon):
		return TrendUp
	case last < prev*(1-epsilon):
		return TrendDown
	default:
		return TrendFlat
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// =============================================================================
// QUERY SURFACE — safe to call at any time, never errors
// =============================================================================

// Status reports the map's state; Active is false before Initialize.
func (m *Map) Status() MapStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return MapStatus{Active: false, Verdict: VerdictPending, HorizonDays: m.cfg.HorizonDays}
	}
	s := m.state
	st := MapStatus{
		Active:      s.Active,
		Day:         s.Day,
		HorizonDays: m.cfg.HorizonDays,
		Verdict:     s.Verdict,
	}
	if len(s.Reports) > 0 {
		latest := s.Reports[len(s.Reports)-1]
		st.HealthIndex = latest.HealthIndex
		st.Readiness = latest.Readiness
	}
	return st
}

// Metrics returns a snapshot of the tracked metrics.
func (m *Map) Metrics() []Metric {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil
	}
	return append([]Metric(nil), m.state.Metrics...)
}

// FocusPlan returns the day-by-day focus plan.
func (m *Map) FocusPlan() []Focus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil
	}
	return append([]Focus(nil), m.state.Focus...)
}

// Reports returns the daily cycle reports, oldest first.
func (m *Map) Reports() []DailyCycleReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil
	}
	return append([]DailyCycleReport(nil), m.state.Reports...)
}

// Decisions returns the recorded operator decisions, oldest first.
func (m *Map) Decisions() []Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil
	}
	return append([]Decision(nil), m.state.Decisions...)
}

// Verdict returns the terminal verdict, pending until the horizon's end.
func (m *Map) Verdict() TerminalVerdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return VerdictPending
	}
	return m.state.Verdict
}

func (m *Map) persistLocked() {
	if m.repo == nil {
		return
	}
	if err := m.repo.Save(mapKey, m.state); err != nil {
		logging.Get(logging.CategoryOversight).Error("failed to persist map: %v", err)
	}
}

// =============================================================================
// SEEDING
// =============================================================================

func seedMetrics(cfg config.OversightConfig) []Metric {
	return []Metric{
		{Name: MetricLeadConfidence, Source: metrics.SeriesLeadConfidence, Target: 85, Weight: 30, Trend: TrendFlat},
		{Name: MetricStabilityWeeks, Source: metrics.SeriesStabilityWeeks, Target: cfg.StabilityTarget, Weight: 30, Trend: TrendFlat},
		{Name: MetricBacklogClearance, Source: metrics.SeriesBacklogClearancePct, Target: 90, Weight: 20, Trend: TrendFlat},
		{Name: MetricDataFreshness, Source: metrics.SeriesDataFreshnessMin, Target: 30, Weight: 10, Trend: TrendFlat},
		{Name: MetricContentVolume, Source: metrics.SeriesContentVolume, Target: 10, Weight: 10, Trend: TrendFlat},
		{Name: MetricSystemUptime, Source: metrics.SeriesSystemUptimePct, Target: 99.5, Weight: 0, Trend: TrendFlat},
	}
}

func seedFocus(horizon int) []Focus {
	plan := make([]Focus, 0, horizon)
	for day := 1; day <= horizon; day++ {
		items := focusPlan[len(focusPlan)-1]
		if day <= len(focusPlan) {
			items = focusPlan[day-1]
		}
		plan = append(plan, Focus{
			Day:    day,
			Items:  append([]string(nil), items...),
			Status: FocusPending,
		})
	}
	return plan
}

// dayLabel formats "day N" consistently for digests and logs.
func dayLabel(day int) string {
	return "day " + strconv.Itoa(day)
}
