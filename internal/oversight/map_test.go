package oversight

import (
	"context"
	"errors"
	"strings"
	"testing"

	"overseer/internal/authority"
	"overseer/internal/config"
	"overseer/internal/metrics"
	"overseer/internal/store"
)

func newTestMap(t *testing.T, provider metrics.Provider) *Map {
	t.Helper()
	m, err := NewMap(config.DefaultConfig().Oversight, authority.NewGuard(), provider, store.NewMemoryRepository(), nil)
	if err != nil {
		t.Fatalf("NewMap error: %v", err)
	}
	return m
}

func initMap(t *testing.T, m *Map) {
	t.Helper()
	if err := m.Initialize(context.Background(), authority.RoleCEO); err != nil {
		t.Fatalf("Initialize error: %v", err)
	}
}

func advance(t *testing.T, m *Map) {
	t.Helper()
	if err := m.AdvanceDay(context.Background(), authority.RoleCEO); err != nil {
		t.Fatalf("AdvanceDay error: %v", err)
	}
}

func TestStatusBeforeInitialize(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, metrics.NewStaticProvider())
	st := m.Status()
	if st.Active {
		t.Error("map should be inactive before Initialize")
	}
	if st.Verdict != VerdictPending {
		t.Errorf("verdict = %s, want %s", st.Verdict, VerdictPending)
	}
	if m.Metrics() != nil || m.Reports() != nil {
		t.Error("getters should return empty shapes before Initialize")
	}
}

func TestMutatingOpsBeforeInitialize(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, metrics.NewStaticProvider())

	if err := m.AdvanceDay(context.Background(), authority.RoleCEO); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("AdvanceDay err = %v, want ErrNotInitialized", err)
	}
	if _, err := m.RecordDecision(authority.RoleCEO, DecisionGo, "ship it", ""); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("RecordDecision err = %v, want ErrNotInitialized", err)
	}
}

func TestAuthorityEnforced(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, metrics.NewStaticProvider())

	err := m.Initialize(context.Background(), authority.RoleCMO)
	var authErr *authority.Error
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *authority.Error", err)
	}
	if m.Status().Active {
		t.Error("rejected initialize must not mutate state")
	}
}

func TestInitializeSeedsPlanAndFirstReport(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, metrics.NewStaticProvider())
	initMap(t, m)

	st := m.Status()
	if !st.Active || st.Day != 1 {
		t.Fatalf("status = %+v, want active day 1", st)
	}

	tracked := m.Metrics()
	if len(tracked) != 6 {
		t.Fatalf("metrics = %d, want 6", len(tracked))
	}

	plan := m.FocusPlan()
	if len(plan) != 7 {
		t.Fatalf("focus plan = %d days, want 7", len(plan))
	}
	for _, f := range plan {
		if len(f.Items) == 0 {
			t.Errorf("day %d has no focus items", f.Day)
		}
	}
	if plan[0].Status != FocusCurrent {
		t.Errorf("day 1 status = %s, want current", plan[0].Status)
	}

	reports := m.Reports()
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1 (generated at initialize)", len(reports))
	}
	if reports[0].Day != 1 {
		t.Errorf("first report day = %d, want 1", reports[0].Day)
	}
}

func TestAdvanceDayProgression(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, metrics.NewStaticProvider())
	initMap(t, m)

	for day := 2; day <= 7; day++ {
		advance(t, m)
		if got := m.Status().Day; got != day {
			t.Fatalf("day = %d, want %d", got, day)
		}
	}

	if got := len(m.Reports()); got != 7 {
		t.Errorf("reports = %d, want 7 (one per day)", got)
	}

	// exactly one current focus at all times until the horizon ends
	current := 0
	for _, f := range m.FocusPlan() {
		if f.Status == FocusCurrent {
			current++
		}
	}
	if current != 1 {
		t.Errorf("current focus entries = %d, want 1", current)
	}
}

func TestHorizonBoundAndTerminalVerdict(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, metrics.NewStaticProvider())
	initMap(t, m)

	for day := 2; day <= 7; day++ {
		advance(t, m)
	}
	// final advance renders the verdict instead of moving past day 7
	advance(t, m)

	st := m.Status()
	if st.Day != 7 {
		t.Errorf("day = %d, must never exceed 7", st.Day)
	}
	verdict := m.Verdict()
	if verdict != VerdictImproving && verdict != VerdictStalled {
		t.Fatalf("verdict = %s, want a terminal value", verdict)
	}

	if err := m.AdvanceDay(context.Background(), authority.RoleCEO); !errors.Is(err, ErrHorizonComplete) {
		t.Errorf("advance past horizon err = %v, want ErrHorizonComplete", err)
	}
	if m.Verdict() != verdict {
		t.Error("terminal verdict must never be recomputed")
	}
}

func TestTerminalVerdictImproving(t *testing.T) {
	t.Parallel()

	// health ≈ 74, confidence flat, stability 4 of 6
	provider := metrics.NewStaticProvider()
	provider.Set(metrics.SeriesLeadConfidence, 68)
	provider.Set(metrics.SeriesStabilityWeeks, 4)
	provider.Set(metrics.SeriesBacklogClearancePct, 81)
	provider.Set(metrics.SeriesDataFreshnessMin, 45)
	provider.Set(metrics.SeriesContentVolume, 5)

	m := newTestMap(t, provider)
	initMap(t, m)
	for i := 0; i < 7; i++ {
		advance(t, m)
	}

	if got := m.Verdict(); got != VerdictImproving {
		latest := m.Reports()[len(m.Reports())-1]
		t.Errorf("verdict = %s, want improving (health %.1f)", got, latest.HealthIndex)
	}
}

func TestTerminalVerdictStalledOnLowHealth(t *testing.T) {
	t.Parallel()

	provider := metrics.NewStaticProvider()
	provider.Set(metrics.SeriesLeadConfidence, 25)
	provider.Set(metrics.SeriesStabilityWeeks, 1)
	provider.Set(metrics.SeriesBacklogClearancePct, 30)

	m := newTestMap(t, provider)
	initMap(t, m)
	for i := 0; i < 7; i++ {
		advance(t, m)
	}

	if got := m.Verdict(); got != VerdictStalled {
		t.Errorf("verdict = %s, want stalled", got)
	}
}

func TestTerminalVerdictStalledOnDecliningConfidence(t *testing.T) {
	t.Parallel()

	// every other metric healthy, but confidence drops before the final day
	provider := metrics.NewStaticProvider()
	provider.Set(metrics.SeriesLeadConfidence, 85)

	m := newTestMap(t, provider)
	initMap(t, m)
	for day := 2; day <= 7; day++ {
		if day == 7 {
			provider.Set(metrics.SeriesLeadConfidence, 70)
		}
		advance(t, m)
	}
	advance(t, m)

	if got := m.Verdict(); got != VerdictStalled {
		t.Errorf("verdict = %s, want stalled on declining confidence", got)
	}
}

func TestRecordDecisionValidation(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, metrics.NewStaticProvider())
	initMap(t, m)

	_, err := m.RecordDecision(authority.RoleCEO, DecisionKind("yolo"), "why not", "")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if ve.Field != "kind" || len(ve.Valid) != 5 {
		t.Errorf("validation error = %+v, want kind with 5 valid values", ve)
	}
}

func TestCorrectionDecisionsLandInFocus(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, metrics.NewStaticProvider())
	initMap(t, m)

	if _, err := m.RecordDecision(authority.RoleCOO, DecisionGo, "pipeline healthy", ""); err != nil {
		t.Fatalf("RecordDecision error: %v", err)
	}
	if _, err := m.RecordDecision(authority.RoleCOO, DecisionRollback, "new pricing regressed", "pricing page"); err != nil {
		t.Fatalf("RecordDecision error: %v", err)
	}

	decisions := m.Decisions()
	if len(decisions) != 2 {
		t.Fatalf("decisions = %d, want 2", len(decisions))
	}
	if decisions[0].Day != 1 || decisions[1].Day != 1 {
		t.Error("decisions should be tagged with the current day")
	}

	day1 := m.FocusPlan()[0]
	if len(day1.Corrections) != 1 {
		t.Fatalf("day 1 corrections = %v, want only the rollback", day1.Corrections)
	}
	if !strings.Contains(day1.Corrections[0], "rollback") || !strings.Contains(day1.Corrections[0], "pricing page") {
		t.Errorf("correction note = %q", day1.Corrections[0])
	}
}

func TestRecordDecisionAfterHorizonComplete(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, metrics.NewStaticProvider())
	initMap(t, m)
	for i := 0; i < 7; i++ {
		advance(t, m)
	}

	if _, err := m.RecordDecision(authority.RoleCEO, DecisionHold, "one more day", ""); !errors.Is(err, ErrHorizonComplete) {
		t.Errorf("RecordDecision err = %v, want ErrHorizonComplete", err)
	}
	if got := len(m.Decisions()); got != 0 {
		t.Errorf("decisions = %d, want none after the terminal verdict", got)
	}
	for _, f := range m.FocusPlan() {
		if len(f.Corrections) != 0 {
			t.Errorf("day %d corrections = %v, want none after the terminal verdict", f.Day, f.Corrections)
		}
	}
}

func TestMetricHistoryBounded(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, metrics.NewStaticProvider())
	initMap(t, m)

	for i := 0; i < 10; i++ {
		if _, err := m.GenerateDailyCycleReport(context.Background()); err != nil {
			t.Fatalf("GenerateDailyCycleReport error: %v", err)
		}
	}

	for _, metric := range m.Metrics() {
		if len(metric.History) > 7 {
			t.Errorf("metric %s history = %d samples, cap is 7", metric.Name, len(metric.History))
		}
	}
}

func TestReadinessBands(t *testing.T) {
	t.Parallel()

	cases := []struct {
		health float64
		want   Readiness
	}{
		{92, ReadinessImproving},
		{80, ReadinessImproving},
		{65, ReadinessOnTrack},
		{41, ReadinessAtRisk},
		{12, ReadinessStalled},
	}
	for _, tc := range cases {
		if got := classifyReadiness(tc.health); got != tc.want {
			t.Errorf("classifyReadiness(%v) = %s, want %s", tc.health, got, tc.want)
		}
	}
}

func TestMapRehydration(t *testing.T) {
	t.Parallel()

	repo := store.NewMemoryRepository()
	provider := metrics.NewStaticProvider()

	m1, err := NewMap(config.DefaultConfig().Oversight, authority.NewGuard(), provider, repo, nil)
	if err != nil {
		t.Fatalf("NewMap error: %v", err)
	}
	initMap(t, m1)
	advance(t, m1)
	advance(t, m1)

	m2, err := NewMap(config.DefaultConfig().Oversight, authority.NewGuard(), provider, repo, nil)
	if err != nil {
		t.Fatalf("NewMap error: %v", err)
	}

	st := m2.Status()
	if !st.Active || st.Day != 3 {
		t.Fatalf("rehydrated status = %+v, want active day 3", st)
	}
	if got := len(m2.Reports()); got != 3 {
		t.Errorf("rehydrated reports = %d, want 3", got)
	}
}

func TestRenderDigest(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, metrics.NewStaticProvider())

	digest := m.RenderDigest()
	if !strings.Contains(digest, "inactive") {
		t.Error("pre-initialize digest should say inactive")
	}

	initMap(t, m)
	if _, err := m.RecordDecision(authority.RoleCEO, DecisionHold, "waiting on data resync", ""); err != nil {
		t.Fatalf("RecordDecision error: %v", err)
	}

	digest = m.RenderDigest()
	for _, want := range []string{"day 1 of 7", "lead_confidence", "today's focus", "hold: waiting on data resync"} {
		if !strings.Contains(digest, want) {
			t.Errorf("digest missing %q:\n%s", want, digest)
		}
	}
}
