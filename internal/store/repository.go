// Package store provides durability for the governance engines: a small
// Repository for JSON-shaped state records keyed by a stable logical name
// (the rehydration source after restart), and a sqlite Archive for
// append-only governance records.
//
// Persisted state is a durability shadow, not a concurrency mechanism —
// the in-memory engine state stays the source of truth while a process
// is running.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"overseer/internal/logging"
)

// ErrNotFound is returned by Load when no record exists under the key.
var ErrNotFound = errors.New("store: record not found")

// Repository persists one JSON document per logical key.
type Repository interface {
	// Load unmarshals the record stored under key into v.
	// Returns ErrNotFound when the key has never been saved.
	Load(key string, v interface{}) error

	// Save marshals v and stores it under key, replacing any prior record.
	Save(key string, v interface{}) error
}

// =============================================================================
// FILE REPOSITORY
// =============================================================================

// FileRepository stores each record as <dir>/<key>.json, written atomically
// via a temp-file rename.
type FileRepository struct {
	dir string
	mu  sync.Mutex
}

// NewFileRepository creates the backing directory if needed.
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) path(key string) string {
	return filepath.Join(r.dir, key+".json")
}

// Load implements Repository.
func (r *FileRepository) Load(key string, v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read state %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode state %s: %w", key, err)
	}
	return nil
}

// Save implements Repository.
func (r *FileRepository) Save(key string, v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state %s: %w", key, err)
	}

	tmp := r.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state %s: %w", key, err)
	}
	if err := os.Rename(tmp, r.path(key)); err != nil {
		return fmt.Errorf("failed to commit state %s: %w", key, err)
	}

	logging.Get(logging.CategoryStore).Debug("saved state %s (%d bytes)", key, len(data))
	return nil
}

// =============================================================================
// MEMORY REPOSITORY
// =============================================================================

// MemoryRepository is the in-memory Repository used by tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: map[string][]byte{}}
}

// Load implements Repository.
func (r *MemoryRepository) Load(key string, v interface{}) error {
	r.mu.RLock()
	data, ok := r.records[key]
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}

// Save implements Repository.
func (r *MemoryRepository) Save(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.records[key] = data
	r.mu.Unlock()
	return nil
}

// Keys returns the saved keys (test helper).
func (r *MemoryRepository) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.records))
	for k := range r.records {
		keys = append(keys, k)
	}
	return keys
}
