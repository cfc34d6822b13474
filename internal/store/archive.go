package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Archive is the append-only sqlite record of governance outcomes:
// rendered verdicts, detected violations, applied corrections, and
// operator decisions. It exists for audit defensibility; engines never
// read it back on the hot path.
type Archive struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// ArchivedRecord is a generic row returned by history queries.
type ArchivedRecord struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   json.RawMessage
}

// NewArchive creates or opens the governance archive under stateDir.
func NewArchive(stateDir string) (*Archive, error) {
	dbPath := filepath.Join(stateDir, "governance_archive.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	a := &Archive{db: db, dbPath: dbPath}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Path returns the database file path.
func (a *Archive) Path() string {
	return a.dbPath
}

func (a *Archive) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS verdicts (
		id TEXT PRIMARY KEY,
		verdict TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		payload_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_verdicts_timestamp ON verdicts(timestamp);
	CREATE INDEX IF NOT EXISTS idx_verdicts_verdict ON verdicts(verdict);

	CREATE TABLE IF NOT EXISTS violations (
		id TEXT PRIMARY KEY,
		check_name TEXT NOT NULL,
		severity TEXT NOT NULL,
		detected_at DATETIME NOT NULL,
		resolved INTEGER NOT NULL DEFAULT 0,
		resolved_at DATETIME,
		payload_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_violations_check ON violations(check_name);
	CREATE INDEX IF NOT EXISTS idx_violations_resolved ON violations(resolved);

	CREATE TABLE IF NOT EXISTS corrections (
		id TEXT PRIMARY KEY,
		violation_id TEXT NOT NULL,
		action TEXT NOT NULL,
		success INTEGER NOT NULL,
		applied_at DATETIME NOT NULL,
		payload_json TEXT NOT NULL,
		FOREIGN KEY (violation_id) REFERENCES violations(id)
	);
	CREATE INDEX IF NOT EXISTS idx_corrections_violation ON corrections(violation_id);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		day INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		payload_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_day ON decisions(day);
	`
	_, err := a.db.Exec(schema)
	return err
}

// RecordVerdict archives a rendered verdict.
func (a *Archive) RecordVerdict(id, verdict string, ts time.Time, payload interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode verdict payload: %w", err)
	}
	_, err = a.db.Exec(`
		INSERT OR REPLACE INTO verdicts (id, verdict, timestamp, payload_json)
		VALUES (?, ?, ?, ?)
	`, id, verdict, ts, string(data))
	if err != nil {
		return fmt.Errorf("failed to archive verdict: %w", err)
	}
	return nil
}

// RecordViolation archives a newly detected violation.
func (a *Archive) RecordViolation(id, checkName, severity string, detectedAt time.Time, payload interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode violation payload: %w", err)
	}
	_, err = a.db.Exec(`
		INSERT OR REPLACE INTO violations (id, check_name, severity, detected_at, resolved, payload_json)
		VALUES (?, ?, ?, ?, 0, ?)
	`, id, checkName, severity, detectedAt, string(data))
	if err != nil {
		return fmt.Errorf("failed to archive violation: %w", err)
	}
	return nil
}

// MarkViolationResolved flags an archived violation as resolved.
func (a *Archive) MarkViolationResolved(id string, resolvedAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.db.Exec(`
		UPDATE violations SET resolved = 1, resolved_at = ? WHERE id = ?
	`, resolvedAt, id)
	return err
}

// RecordCorrection archives an applied correction.
func (a *Archive) RecordCorrection(id, violationID, action string, success bool, appliedAt time.Time, payload interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode correction payload: %w", err)
	}
	_, err = a.db.Exec(`
		INSERT OR REPLACE INTO corrections (id, violation_id, action, success, applied_at, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, violationID, action, success, appliedAt, string(data))
	if err != nil {
		return fmt.Errorf("failed to archive correction: %w", err)
	}
	return nil
}

// RecordDecision archives an operator decision tagged with its oversight day.
func (a *Archive) RecordDecision(id, kind string, day int, ts time.Time, payload interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode decision payload: %w", err)
	}
	_, err = a.db.Exec(`
		INSERT OR REPLACE INTO decisions (id, kind, day, timestamp, payload_json)
		VALUES (?, ?, ?, ?, ?)
	`, id, kind, day, ts, string(data))
	if err != nil {
		return fmt.Errorf("failed to archive decision: %w", err)
	}
	return nil
}

// RecentVerdicts returns the newest archived verdicts, newest first.
func (a *Archive) RecentVerdicts(limit int) ([]ArchivedRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.db.Query(`
		SELECT id, verdict, timestamp, payload_json
		FROM verdicts ORDER BY timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ArchivedRecord
	for rows.Next() {
		var rec ArchivedRecord
		var payload string
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Timestamp, &payload); err != nil {
			continue
		}
		rec.Payload = json.RawMessage(payload)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UnresolvedViolationCount returns the number of archived violations that
// were never marked resolved.
func (a *Archive) UnresolvedViolationCount() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var count int
	err := a.db.QueryRow(`SELECT COUNT(*) FROM violations WHERE resolved = 0`).Scan(&count)
	return count, err
}
