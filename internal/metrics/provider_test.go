package metrics

import (
	"context"
	"testing"
)

func TestSimulatedProviderReproducible(t *testing.T) {
	t.Parallel()

	a := NewSimulatedProvider(42)
	b := NewSimulatedProvider(42)

	snapA, err := a.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	snapB, err := b.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}

	for name, v := range snapA.Values {
		if snapB.Values[name] != v {
			t.Errorf("series %s: %v != %v for identical seeds", name, v, snapB.Values[name])
		}
	}
}

func TestSimulatedProviderBounds(t *testing.T) {
	t.Parallel()

	p := NewSimulatedProvider(7)
	for i := 0; i < 50; i++ {
		snap, err := p.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot error: %v", err)
		}
		if v := snap.Values[SeriesProjectionConfidence]; v < 0 || v > 1 {
			t.Fatalf("projection confidence out of range: %v", v)
		}
		if v := snap.Values[SeriesAPIErrorRate]; v < 0 || v > 1 {
			t.Fatalf("api error rate out of range: %v", v)
		}
	}
}

func TestStaticProviderOverrides(t *testing.T) {
	t.Parallel()

	p := NewStaticProvider()
	p.Set(SeriesDataFreshnessMin, 45)
	p.SetFlag(FlagLedgerIntact, false)

	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if got := snap.Value(SeriesDataFreshnessMin, 0); got != 45 {
		t.Errorf("freshness = %v, want 45", got)
	}
	if snap.Flag(FlagLedgerIntact) {
		t.Error("ledger flag should be false after override")
	}
}

func TestSnapshotFallbacks(t *testing.T) {
	t.Parallel()

	snap := Snapshot{}
	if got := snap.Value("missing", 12); got != 12 {
		t.Errorf("fallback value = %v, want 12", got)
	}
	if !snap.Flag("missing") {
		t.Error("missing flag should default to healthy (true)")
	}
}

func TestStaticProviderCopiesSnapshot(t *testing.T) {
	t.Parallel()

	p := NewStaticProvider()
	snap, _ := p.Snapshot(context.Background())
	snap.Values[SeriesQueueBacklog] = 999

	again, _ := p.Snapshot(context.Background())
	if again.Values[SeriesQueueBacklog] == 999 {
		t.Error("mutating a returned snapshot must not affect the provider")
	}
}
