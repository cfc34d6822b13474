package diagnostic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"overseer/internal/authority"
	"overseer/internal/config"
	"overseer/internal/logging"
	"overseer/internal/metrics"
	"overseer/internal/store"
)

// sessionKey is the repository record holding the diagnostic session.
const sessionKey = "diagnostic_session"

// CorrectionExecutor carries out one remedial action. The default executor
// always succeeds; deployments wire real actuators, tests wire failures.
type CorrectionExecutor func(ctx context.Context, action, target string) error

// Engine owns the diagnostic session: checks, violations, corrections,
// alert mode, and the worker fleet. All mutation happens inside one cycle
// invocation under the mutex; callers never observe mid-cycle state.
type Engine struct {
	cfg      config.DiagnosticConfig
	guard    *authority.Guard
	provider metrics.Provider
	repo     store.Repository
	archive  *store.Archive
	execute  CorrectionExecutor

	mu    sync.Mutex
	state *sessionState
}

// sessionState is the persisted shape of one diagnostics session.
type sessionState struct {
	Active      bool           `json:"active"`
	Cycle       int            `json:"cycle"`
	StartedAt   time.Time      `json:"started_at"`
	LastCycleAt time.Time      `json:"last_cycle_at"`
	Alert       AlertMode      `json:"alert"`
	Checks      []*Check       `json:"checks"`
	Violations  []Violation    `json:"violations"`
	Corrections []Correction   `json:"corrections"`
	Summaries   []CycleSummary `json:"summaries"`
	Workers     []WorkerStatus `json:"workers"`
}

// NewEngine builds an engine and rehydrates any persisted session, so a
// restarted process resumes at the correct cycle index. The archive may be
// nil.
func NewEngine(cfg config.DiagnosticConfig, guard *authority.Guard, provider metrics.Provider, repo store.Repository, archive *store.Archive) (*Engine, error) {
	e := &Engine{
		cfg:      cfg,
		guard:    guard,
		provider: provider,
		repo:     repo,
		archive:  archive,
		execute:  func(ctx context.Context, action, target string) error { return nil },
	}
	if repo != nil {
		var s sessionState
		switch err := repo.Load(sessionKey, &s); err {
		case nil:
			e.state = &s
			logging.Diagnostic("rehydrated session at cycle %d (%d open violations)", s.Cycle, countOpen(s.Violations))
		case store.ErrNotFound:
			// first run
		default:
			return nil, fmt.Errorf("failed to rehydrate diagnostic session: %w", err)
		}
	}
	return e, nil
}

// SetCorrectionExecutor replaces the remedial actuator. Must be called
// before the first cycle.
func (e *Engine) SetCorrectionExecutor(fn CorrectionExecutor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.execute = fn
}

// Initialize starts a fresh diagnostics session, discarding any prior
// state. Requires operator authority.
func (e *Engine) Initialize(caller authority.Role) error {
	if err := e.guard.Check(authority.OpInitializeDiagnostics, caller); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	e.state = &sessionState{
		Active:    true,
		StartedAt: now,
		Alert:     AlertNormal,
		Checks:    seedChecks(now),
		Workers:   seedFleet(now),
	}
	e.persistLocked()
	logging.Diagnostic("session initialized by %s (%d checks, %d workers)", caller, len(e.state.Checks), len(e.state.Workers))
	return nil
}

// RunCycle executes one diagnostic cycle on behalf of an operator.
func (e *Engine) RunCycle(ctx context.Context, caller authority.Role) (CycleSummary, error) {
	if err := e.guard.Check(authority.OpTriggerCycle, caller); err != nil {
		return CycleSummary{}, err
	}
	return e.RunScheduled(ctx)
}

// RunScheduled executes one cycle without an authority check; the
// scheduler that calls it was itself started by an authorized operator.
func (e *Engine) RunScheduled(ctx context.Context) (CycleSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil || !e.state.Active {
		return CycleSummary{}, fmt.Errorf("run cycle: %w", ErrNotInitialized)
	}

	snap, err := e.provider.Snapshot(ctx)
	if err != nil {
		return CycleSummary{}, fmt.Errorf("metric snapshot failed: %w", err)
	}

	s := e.state
	s.Cycle++
	now := time.Now()
	s.LastCycleAt = now

	// 1. recompute all checks
	summary := CycleSummary{Cycle: s.Cycle, Timestamp: now}
	for i, spec := range checkTable {
		check := s.Checks[i]
		value, status, detail := spec.eval(snap)
		check.Value = value
		check.Status = status
		check.Detail = detail
		check.LastChecked = now
		switch status {
		case StatusPass:
			summary.PassCount++
		case StatusWarning:
			summary.WarningCount++
		case StatusFail:
			summary.FailCount++
		}
	}

	// 2. open violations for newly failing escalating checks
	newViolations := e.openViolationsLocked(now)
	summary.NewViolations = len(newViolations)

	// 3. correct each newly opened violation
	for i := range newViolations {
		c := e.applyCorrectionLocked(ctx, newViolations[i], now)
		if c == nil {
			continue
		}
		summary.CorrectionsApplied++
		if !c.Success {
			summary.CorrectionFailures++
		}
	}

	// 4. recompute alert mode and its fleet side effects
	e.recomputeAlertLocked()
	summary.AlertMode = s.Alert

	// 5. verification targets for the next cycle
	summary.VerificationTargets = e.verificationTargetsLocked()

	s.Summaries = appendBounded(s.Summaries, summary, e.cfg.SummaryHistoryCap)
	e.persistLocked()

	logging.Diagnostic("cycle %d: %d pass / %d warning / %d fail, %d new violations, alert=%s",
		s.Cycle, summary.PassCount, summary.WarningCount, summary.FailCount, summary.NewViolations, s.Alert)
	return summary, nil
}

// openViolationsLocked opens a violation for every escalating check in
// fail state that does not already have an unresolved violation. Returns
// indexes into s.Violations for the new entries' ids.
func (e *Engine) openViolationsLocked(now time.Time) []string {
	s := e.state
	var opened []string
	for i, spec := range checkTable {
		check := s.Checks[i]
		if check.Status != StatusFail || !check.Escalate {
			continue
		}
		if e.hasOpenViolationLocked(check.Name) {
			continue
		}
		v := Violation{
			ID:         uuid.NewString(),
			CheckName:  check.Name,
			Severity:   check.Severity,
			DetectedAt: now,
			Observed:   check.Detail,
			Expected:   spec.expected,
		}
		if check.Name == "agent_heartbeat" {
			v.AffectedWorker = e.mostIdleWorkerLocked()
		}
		s.Violations = appendBounded(s.Violations, v, e.cfg.ViolationHistoryCap)
		opened = append(opened, v.ID)

		if e.archive != nil {
			if err := e.archive.RecordViolation(v.ID, v.CheckName, string(v.Severity), v.DetectedAt, v); err != nil {
				logging.Get(logging.CategoryDiagnostic).Error("failed to archive violation %s: %v", v.ID, err)
			}
		}
		logging.Diagnostic("violation opened: %s (%s) observed %q", v.CheckName, v.Severity, v.Observed)
	}
	return opened
}

// applyCorrectionLocked executes the deterministic remedial action for one
// newly opened violation. A succeeding correction resolves the violation
// immediately; a failing one leaves it open and the cycle continues.
func (e *Engine) applyCorrectionLocked(ctx context.Context, violationID string, now time.Time) *Correction {
	s := e.state
	v := e.findViolationLocked(violationID)
	if v == nil {
		return nil
	}
	spec, ok := correctionTable[v.CheckName]
	if !ok {
		return nil
	}

	c := Correction{
		ID:          uuid.NewString(),
		ViolationID: v.ID,
		Action:      spec.action,
		Target:      spec.target,
		AppliedAt:   now,
	}

	if err := e.execute(ctx, spec.action, spec.target); err != nil {
		c.Success = false
		c.Verification = VerificationFailed
		c.Error = err.Error()
		logging.Get(logging.CategoryDiagnostic).Error("correction %s for %s failed: %v", spec.action, v.CheckName, err)
	} else {
		c.Success = true
		c.Verification = VerificationSuccess
		resolvedAt := now
		v.Resolved = true
		v.ResolvedAt = &resolvedAt
		if spec.action == "restart_idle_agent" {
			e.restartWorkerLocked(v.AffectedWorker, now)
		}
		if e.archive != nil {
			if err := e.archive.MarkViolationResolved(v.ID, resolvedAt); err != nil {
				logging.Get(logging.CategoryDiagnostic).Error("failed to archive resolution of %s: %v", v.ID, err)
			}
		}
		logging.Diagnostic("correction %s applied to %s, violation %s resolved", spec.action, spec.target, v.ID)
	}

	s.Corrections = appendBounded(s.Corrections, c, e.cfg.CorrectionHistoryCap)
	if e.archive != nil {
		if err := e.archive.RecordCorrection(c.ID, c.ViolationID, c.Action, c.Success, c.AppliedAt, c); err != nil {
			logging.Get(logging.CategoryDiagnostic).Error("failed to archive correction %s: %v", c.ID, err)
		}
	}
	return &c
}

// recomputeAlertLocked derives the alert mode from failing-check and
// unresolved critical/high violation counts, then applies fleet side
// effects: high alert freezes every non-essential worker, a return to
// normal thaws them.
func (e *Engine) recomputeAlertLocked() {
	s := e.state

	failing := 0
	for _, c := range s.Checks {
		if c.Status == StatusFail {
			failing++
		}
	}
	severe := 0
	for _, v := range s.Violations {
		if !v.Resolved && (v.Severity == SeverityCritical || v.Severity == SeverityHigh) {
			severe++
		}
	}

	switch {
	case failing >= e.cfg.HighAlertFailingChecks || severe >= e.cfg.HighAlertViolations:
		s.Alert = AlertHigh
	case failing >= 1 || severe >= 1:
		s.Alert = AlertElevated
	default:
		s.Alert = AlertNormal
	}

	for i := range s.Workers {
		w := &s.Workers[i]
		switch {
		case s.Alert == AlertHigh && !w.Essential && w.State == WorkerActive:
			w.State = WorkerFrozen
			logging.Diagnostic("worker %s frozen (high alert)", w.Name)
		case s.Alert == AlertNormal && w.State == WorkerFrozen:
			w.State = WorkerActive
			logging.Diagnostic("worker %s thawed", w.Name)
		}
	}
}

// verificationTargetsLocked lists what the next cycle must re-verify:
// every check still in warning or fail, and every correction that did not
// succeed against a still-open violation.
func (e *Engine) verificationTargetsLocked() []string {
	s := e.state
	var targets []string
	for _, c := range s.Checks {
		if c.Status == StatusWarning || c.Status == StatusFail {
			targets = append(targets, c.Name)
		}
	}
	for _, c := range s.Corrections {
		if c.Success {
			continue
		}
		if v := e.findViolationLocked(c.ViolationID); v != nil && !v.Resolved {
			targets = append(targets, "correction:"+c.Action)
		}
	}
	return targets
}

// Reconfigure applies new tunables to a running engine: alert thresholds
// take effect on the next cycle, and tightened history caps trim the
// existing histories immediately.
func (e *Engine) Reconfigure(cfg config.DiagnosticConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg = cfg
	if s := e.state; s != nil {
		s.Summaries = trimBounded(s.Summaries, cfg.SummaryHistoryCap)
		s.Violations = trimBounded(s.Violations, cfg.ViolationHistoryCap)
		s.Corrections = trimBounded(s.Corrections, cfg.CorrectionHistoryCap)
		e.persistLocked()
	}
	logging.Diagnostic("engine reconfigured: high alert at %d failing checks / %d severe violations",
		cfg.HighAlertFailingChecks, cfg.HighAlertViolations)
}

// Stop ends the session. Idempotent; accumulated state stays queryable.
func (e *Engine) Stop(caller authority.Role) error {
	if err := e.guard.Check(authority.OpStopDiagnostics, caller); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil || !e.state.Active {
		return nil
	}
	e.state.Active = false
	e.persistLocked()
	logging.Diagnostic("session stopped by %s at cycle %d", caller, e.state.Cycle)
	return nil
}

// =============================================================================
// QUERY SURFACE — safe to call at any time, never errors
// =============================================================================

// Status reports the engine's current state; Active is false before
// Initialize and after Stop.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return Status{Active: false, AlertMode: AlertNormal}
	}
	s := e.state
	st := Status{
		Active:         s.Active,
		Cycle:          s.Cycle,
		AlertMode:      s.Alert,
		LastCycleAt:    s.LastCycleAt,
		OpenViolations: countOpen(s.Violations),
		Workers:        append([]WorkerStatus(nil), s.Workers...),
	}
	if st.AlertMode == "" {
		st.AlertMode = AlertNormal
	}
	for _, c := range s.Checks {
		if c.Status == StatusFail {
			st.FailingChecks = append(st.FailingChecks, c.Name)
		}
	}
	return st
}

// Checks returns a snapshot of the current check set.
func (e *Engine) Checks() []Check {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	out := make([]Check, 0, len(e.state.Checks))
	for _, c := range e.state.Checks {
		out = append(out, *c)
	}
	return out
}

// ActiveViolations returns the unresolved violations, oldest first.
func (e *Engine) ActiveViolations() []Violation {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	var out []Violation
	for _, v := range e.state.Violations {
		if !v.Resolved {
			out = append(out, v)
		}
	}
	return out
}

// Violations returns the bounded violation history.
func (e *Engine) Violations() []Violation {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	return append([]Violation(nil), e.state.Violations...)
}

// Corrections returns the bounded correction history.
func (e *Engine) Corrections() []Correction {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	return append([]Correction(nil), e.state.Corrections...)
}

// Summaries returns the bounded cycle-summary history, oldest first.
func (e *Engine) Summaries() []CycleSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	return append([]CycleSummary(nil), e.state.Summaries...)
}

// Fleet returns the worker fleet as the engine last saw it.
func (e *Engine) Fleet() []WorkerStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	return append([]WorkerStatus(nil), e.state.Workers...)
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (e *Engine) hasOpenViolationLocked(checkName string) bool {
	for _, v := range e.state.Violations {
		if v.CheckName == checkName && !v.Resolved {
			return true
		}
	}
	return false
}

func (e *Engine) findViolationLocked(id string) *Violation {
	for i := range e.state.Violations {
		if e.state.Violations[i].ID == id {
			return &e.state.Violations[i]
		}
	}
	return nil
}

func (e *Engine) mostIdleWorkerLocked() string {
	var name string
	var idle float64 = -1
	for _, w := range e.state.Workers {
		if w.Essential || w.State != WorkerActive {
			continue
		}
		if w.IdleMinutes > idle {
			idle = w.IdleMinutes
			name = w.Name
		}
	}
	return name
}

func (e *Engine) restartWorkerLocked(name string, now time.Time) {
	for i := range e.state.Workers {
		w := &e.state.Workers[i]
		if w.Name == name {
			w.State = WorkerRestarting
			w.LastActivity = now
			w.IdleMinutes = 0
			return
		}
	}
}

func (e *Engine) persistLocked() {
	if e.repo == nil {
		return
	}
	if err := e.repo.Save(sessionKey, e.state); err != nil {
		logging.Get(logging.CategoryDiagnostic).Error("failed to persist session: %v", err)
	}
}

func countOpen(violations []Violation) int {
	n := 0
	for _, v := range violations {
		if !v.Resolved {
			n++
		}
	}
	return n
}

// appendBounded appends to a FIFO-capped slice, dropping the oldest
// entries once the cap is exceeded.
func appendBounded[T any](list []T, item T, limit int) []T {
	list = append(list, item)
	return trimBounded(list, limit)
}

func trimBounded[T any](list []T, limit int) []T {
	if limit > 0 && len(list) > limit {
		return list[len(list)-limit:]
	}
	return list
}
