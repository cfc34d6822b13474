package store

import (
	"errors"
	"testing"
)

type sessionState struct {
	CycleIndex int    `json:"cycle_index"`
	AlertMode  string `json:"alert_mode"`
}

func TestFileRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository error: %v", err)
	}

	in := sessionState{CycleIndex: 12, AlertMode: "elevated"}
	if err := repo.Save("diagnostic_session", in); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	var out sessionState
	if err := repo.Load("diagnostic_session", &out); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestFileRepositoryMissingKey(t *testing.T) {
	t.Parallel()

	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository error: %v", err)
	}

	var out sessionState
	if err := repo.Load("never_saved", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load missing key = %v, want ErrNotFound", err)
	}
}

func TestFileRepositoryOverwrite(t *testing.T) {
	t.Parallel()

	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository error: %v", err)
	}

	if err := repo.Save("k", sessionState{CycleIndex: 1}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := repo.Save("k", sessionState{CycleIndex: 2}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	var out sessionState
	if err := repo.Load("k", &out); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if out.CycleIndex != 2 {
		t.Errorf("cycle index = %d, want 2 (latest record)", out.CycleIndex)
	}
}

func TestMemoryRepository(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()

	var out sessionState
	if err := repo.Load("k", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load missing key = %v, want ErrNotFound", err)
	}

	if err := repo.Save("k", sessionState{CycleIndex: 7}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := repo.Load("k", &out); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if out.CycleIndex != 7 {
		t.Errorf("cycle index = %d, want 7", out.CycleIndex)
	}
	if len(repo.Keys()) != 1 {
		t.Errorf("keys = %v, want exactly one", repo.Keys())
	}
}
