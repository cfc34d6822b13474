// Package metrics defines the telemetry boundary for the diagnostic and
// oversight engines. The engines never know how a value was computed; they
// consume whatever the configured Provider reports for the named series.
package metrics

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Well-known series names consumed by the diagnostic checks and the
// oversight map.
const (
	SeriesDataFreshnessMin      = "data_freshness_min"      // minutes since last UDL sync
	SeriesProjectionConfidence  = "projection_confidence"   // 0..1
	SeriesQueueBacklog          = "queue_backlog"           // pending items
	SeriesAgentIdleMin          = "agent_idle_min"          // worst-case agent idle minutes
	SeriesAPIErrorRate          = "api_error_rate"          // 0..1
	SeriesSpendBurnRatio        = "spend_burn_ratio"        // spend / daily budget
	SeriesContentPipelineStuck  = "content_pipeline_stuck"  // pieces stalled in review
	SeriesLeadConfidence        = "lead_confidence"         // 0..100
	SeriesStabilityWeeks        = "stability_weeks"         // consecutive stable weeks
	SeriesBacklogClearancePct   = "backlog_clearance_pct"   // 0..100
	SeriesContentVolume         = "content_volume"          // pieces shipped this period
	SeriesSystemUptimePct       = "system_uptime_pct"       // 0..100
	FlagLedgerIntact            = "ledger_intact"
	FlagBriefsDeliveredOnTime   = "briefs_delivered_on_time"
)

// Snapshot is one point-in-time reading of every series a provider knows.
type Snapshot struct {
	TakenAt time.Time          `json:"taken_at"`
	Values  map[string]float64 `json:"values"`
	Flags   map[string]bool    `json:"flags"`
}

// Value returns the named series value, or the fallback when the provider
// did not report it.
func (s Snapshot) Value(name string, fallback float64) float64 {
	if v, ok := s.Values[name]; ok {
		return v
	}
	return fallback
}

// Flag returns the named boolean probe, defaulting to true (healthy) when
// the provider did not report it.
func (s Snapshot) Flag(name string) bool {
	if v, ok := s.Flags[name]; ok {
		return v
	}
	return true
}

// Provider supplies current telemetry for the named series.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// =============================================================================
// SIMULATED PROVIDER
// =============================================================================

// SimulatedProvider generates plausible operational telemetry around fixed
// baselines with bounded jitter. It stands in for the real collector in
// demos and local runs; tests should prefer StaticProvider.
type SimulatedProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedProvider seeds the simulation; a fixed seed gives a
// reproducible run.
func NewSimulatedProvider(seed int64) *SimulatedProvider {
	return &SimulatedProvider{rng: rand.New(rand.NewSource(seed))}
}

// Snapshot implements Provider.
func (p *SimulatedProvider) Snapshot(_ context.Context) (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	jitter := func(base, spread float64) float64 {
		return base + (p.rng.Float64()*2-1)*spread
	}

	return Snapshot{
		TakenAt: time.Now(),
		Values: map[string]float64{
			SeriesDataFreshnessMin:     clamp(jitter(20, 25), 0, 240),
			SeriesProjectionConfidence: clamp(jitter(0.82, 0.15), 0, 1),
			SeriesQueueBacklog:         clamp(jitter(3, 5), 0, 50),
			SeriesAgentIdleMin:         clamp(jitter(25, 40), 0, 600),
			SeriesAPIErrorRate:         clamp(jitter(0.008, 0.02), 0, 1),
			SeriesSpendBurnRatio:       clamp(jitter(0.6, 0.3), 0, 2),
			SeriesContentPipelineStuck: clamp(jitter(1, 2.5), 0, 20),
			SeriesLeadConfidence:       clamp(jitter(78, 12), 0, 100),
			SeriesStabilityWeeks:       clamp(jitter(4, 1.5), 0, 8),
			SeriesBacklogClearancePct:  clamp(jitter(85, 15), 0, 100),
			SeriesContentVolume:        clamp(jitter(9, 4), 0, 30),
			SeriesSystemUptimePct:      clamp(jitter(99.6, 0.5), 90, 100),
		},
		Flags: map[string]bool{
			FlagLedgerIntact:          p.rng.Float64() > 0.02,
			FlagBriefsDeliveredOnTime: p.rng.Float64() > 0.05,
		},
	}, nil
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
// STATIC PROVIDER
// =============================================================================

// StaticProvider returns a fixed snapshot. Tests mutate it between cycles
// to drive checks through pass/warning/fail deterministically.
type StaticProvider struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewStaticProvider starts from a fully healthy snapshot.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{snap: HealthySnapshot()}
}

// Snapshot implements Provider.
func (p *StaticProvider) Snapshot(_ context.Context) (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := Snapshot{
		TakenAt: time.Now(),
		Values:  make(map[string]float64, len(p.snap.Values)),
		Flags:   make(map[string]bool, len(p.snap.Flags)),
	}
	for k, v := range p.snap.Values {
		out.Values[k] = v
	}
	for k, v := range p.snap.Flags {
		out.Flags[k] = v
	}
	return out, nil
}

// Set overrides one series value.
func (p *StaticProvider) Set(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Values[name] = value
}

// SetFlag overrides one boolean probe.
func (p *StaticProvider) SetFlag(name string, value bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Flags[name] = value
}

// HealthySnapshot is a snapshot in which every check passes.
func HealthySnapshot() Snapshot {
	return Snapshot{
		TakenAt: time.Now(),
		Values: map[string]float64{
			SeriesDataFreshnessMin:     10,
			SeriesProjectionConfidence: 0.9,
			SeriesQueueBacklog:         2,
			SeriesAgentIdleMin:         15,
			SeriesAPIErrorRate:         0.002,
			SeriesSpendBurnRatio:       0.5,
			SeriesContentPipelineStuck: 0,
			SeriesLeadConfidence:       88,
			SeriesStabilityWeeks:       5,
			SeriesBacklogClearancePct:  95,
			SeriesContentVolume:        12,
			SeriesSystemUptimePct:      99.9,
		},
		Flags: map[string]bool{
			FlagLedgerIntact:          true,
			FlagBriefsDeliveredOnTime: true,
		},
	}
}
