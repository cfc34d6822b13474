package store

import (
	"testing"
	"time"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := NewArchive(t.TempDir())
	if err != nil {
		t.Fatalf("NewArchive error: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchiveVerdicts(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t)
	now := time.Now()

	payload := map[string]string{"rationale": "all criteria passed"}
	if err := a.RecordVerdict("v-1", "approved", now.Add(-time.Minute), payload); err != nil {
		t.Fatalf("RecordVerdict error: %v", err)
	}
	if err := a.RecordVerdict("v-2", "rejected", now, payload); err != nil {
		t.Fatalf("RecordVerdict error: %v", err)
	}

	records, err := a.RecentVerdicts(10)
	if err != nil {
		t.Fatalf("RecentVerdicts error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "v-2" {
		t.Errorf("newest first: got %s, want v-2", records[0].ID)
	}
	if records[0].Kind != "rejected" {
		t.Errorf("verdict = %s, want rejected", records[0].Kind)
	}
}

func TestArchiveViolationLifecycle(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t)
	now := time.Now()

	if err := a.RecordViolation("viol-1", "data_freshness", "high", now, nil); err != nil {
		t.Fatalf("RecordViolation error: %v", err)
	}
	if err := a.RecordViolation("viol-2", "ledger_integrity", "critical", now, nil); err != nil {
		t.Fatalf("RecordViolation error: %v", err)
	}

	count, err := a.UnresolvedViolationCount()
	if err != nil {
		t.Fatalf("UnresolvedViolationCount error: %v", err)
	}
	if count != 2 {
		t.Errorf("unresolved = %d, want 2", count)
	}

	if err := a.MarkViolationResolved("viol-1", now.Add(time.Minute)); err != nil {
		t.Fatalf("MarkViolationResolved error: %v", err)
	}

	count, err = a.UnresolvedViolationCount()
	if err != nil {
		t.Fatalf("UnresolvedViolationCount error: %v", err)
	}
	if count != 1 {
		t.Errorf("unresolved after resolve = %d, want 1", count)
	}
}

func TestArchiveCorrectionsAndDecisions(t *testing.T) {
	t.Parallel()

	a := newTestArchive(t)
	now := time.Now()

	if err := a.RecordViolation("viol-1", "queue_backlog", "medium", now, nil); err != nil {
		t.Fatalf("RecordViolation error: %v", err)
	}
	if err := a.RecordCorrection("corr-1", "viol-1", "drain_queue", true, now, nil); err != nil {
		t.Fatalf("RecordCorrection error: %v", err)
	}
	if err := a.RecordDecision("dec-1", "course_correct", 3, now, map[string]string{"reasoning": "backlog trend"}); err != nil {
		t.Fatalf("RecordDecision error: %v", err)
	}
}
