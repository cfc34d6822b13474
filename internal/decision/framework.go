package decision

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"overseer/internal/authority"
	"overseer/internal/config"
	"overseer/internal/logging"
	"overseer/internal/store"
)

// historyKey is the repository record holding the verdict history.
const historyKey = "verdict_history"

// implementersByCorrection names who carries out each remedial playbook.
var implementersByCorrection = map[CorrectionType][]authority.Role{
	CorrectionLedgerRestoration:  {authority.RoleCOO, authority.RoleChiefOfStaff},
	CorrectionPipelineUnclogging: {authority.RoleCOO, authority.RoleCMO},
	CorrectionTrustRepair:        {authority.RoleCCO, authority.RoleCRO},
	CorrectionMarketAdaptation:   {authority.RoleCMO, authority.RoleCRO},
	CorrectionAgentRealignment:   {authority.RoleChiefOfStaff, authority.RoleCOO},
}

// Framework renders verdicts on diagnostic briefs. Classification and
// evaluation are pure; the only state is the append-only verdict history,
// whose appends are serialized under the mutex. The repository shadows the
// history for restart rehydration and the archive keeps the audit record.
type Framework struct {
	cfg     config.DecisionConfig
	eval    evaluator
	repo    store.Repository
	archive *store.Archive

	mu      sync.Mutex
	history []Verdict
}

// NewFramework builds a framework and rehydrates any persisted verdict
// history. The archive may be nil when audit shadowing is not wanted.
func NewFramework(cfg config.DecisionConfig, repo store.Repository, archive *store.Archive) (*Framework, error) {
	f := &Framework{
		cfg:     cfg,
		eval:    evaluator{cfg: cfg},
		repo:    repo,
		archive: archive,
	}
	if repo != nil {
		var history []Verdict
		switch err := repo.Load(historyKey, &history); err {
		case nil:
			f.history = history
			logging.Get(logging.CategoryDecision).Info("rehydrated %d verdicts", len(history))
		case store.ErrNotFound:
			// first run
		default:
			return nil, fmt.Errorf("failed to rehydrate verdict history: %w", err)
		}
	}
	return f, nil
}

// Evaluate computes the six criterion results for a brief without
// rendering a verdict.
func (f *Framework) Evaluate(brief DiagnosticBrief) (Evaluation, error) {
	if err := validateBrief(brief); err != nil {
		return Evaluation{}, err
	}
	return f.eval.Evaluate(brief), nil
}

// ApplyFramework composes classify → evaluate → render as one atomic
// operation: no intermediate state is externally visible, and the rendered
// verdict is appended to history before the call returns.
func (f *Framework) ApplyFramework(brief DiagnosticBrief) (Verdict, error) {
	if err := validateBrief(brief); err != nil {
		return Verdict{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	classification := Classify(brief.RootCause)
	evaluation := f.eval.Evaluate(brief)
	verdict := f.render(brief, classification, evaluation)

	f.history = append(f.history, verdict)
	f.persistLocked()
	f.archiveVerdict(verdict)

	logging.Get(logging.CategoryDecision).Info("verdict %s: %s (%s, %d criteria failed)",
		verdict.ID, verdict.Verdict, classification.Class, len(evaluation.FailedNames()))
	return verdict, nil
}

// RenderVerdict renders and records a verdict from an already computed
// classification and evaluation.
func (f *Framework) RenderVerdict(brief DiagnosticBrief, classification FailureClassification, evaluation Evaluation) (Verdict, error) {
	if err := validateBrief(brief); err != nil {
		return Verdict{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	verdict := f.render(brief, classification, evaluation)
	f.history = append(f.history, verdict)
	f.persistLocked()
	f.archiveVerdict(verdict)
	return verdict, nil
}

// render applies the verdict rule. Caller holds the mutex.
//
// approved: every criterion passed.
// rejected: the protection or defensibility criterion failed, or more
// criteria failed than the modified ceiling allows.
// modified: everything else; names the criteria to fix before resubmission.
func (f *Framework) render(brief DiagnosticBrief, classification FailureClassification, evaluation Evaluation) Verdict {
	v := Verdict{
		ID:             uuid.NewString(),
		Timestamp:      time.Now(),
		Brief:          brief,
		Classification: classification,
		Evaluation:     evaluation,
	}

	failed := evaluation.FailedNames()
	switch {
	case len(failed) == 0:
		deadline := v.Timestamp.Add(time.Duration(f.cfg.DeadlineHours) * time.Hour)
		v.Verdict = VerdictApproved
		v.Rationale = "all six criteria passed; corrective action cleared for immediate execution"
		v.Execution = &ExecutionDirective{
			Command:          fmt.Sprintf("execute immediately: %s", brief.Action.Name),
			EnforcingRole:    authority.RoleCEO,
			Implementers:     implementersByCorrection[classification.CorrectionType],
			Deadline:         deadline,
			FollowUpRequired: true,
			FollowUpAt:       deadline,
		}
	case evaluation.Failed(CriterionProtection),
		evaluation.Failed(CriterionDefensibility),
		len(failed) > f.cfg.MaxModifiedFailures:
		v.Verdict = VerdictRejected
		v.Rationale = fmt.Sprintf(
			"rejected on %s; rerun the diagnostic with tighter constraints before resubmitting",
			strings.Join(failed, ", "))
	default:
		v.Verdict = VerdictModified
		v.RequiredFixes = failed
		v.Rationale = fmt.Sprintf("conditionally viable; fix %s and resubmit", strings.Join(failed, ", "))
	}
	return v
}

// History returns a copy of the verdict history, oldest first.
func (f *Framework) History() []Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Verdict, len(f.history))
	copy(out, f.history)
	return out
}

// Current returns the most recent verdict, if any.
func (f *Framework) Current() (Verdict, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.history) == 0 {
		return Verdict{}, false
	}
	return f.history[len(f.history)-1], true
}

func (f *Framework) persistLocked() {
	if f.repo == nil {
		return
	}
	if err := f.repo.Save(historyKey, f.history); err != nil {
		logging.Get(logging.CategoryDecision).Error("failed to persist verdict history: %v", err)
	}
}

func (f *Framework) archiveVerdict(v Verdict) {
	if f.archive == nil {
		return
	}
	if err := f.archive.RecordVerdict(v.ID, string(v.Verdict), v.Timestamp, v); err != nil {
		logging.Get(logging.CategoryDecision).Error("failed to archive verdict %s: %v", v.ID, err)
	}
}

func validateBrief(brief DiagnosticBrief) error {
	if strings.TrimSpace(brief.RootCause.Category) == "" {
		return &ValidationError{Field: "root_cause.category", Constraint: "must not be empty"}
	}
	if strings.TrimSpace(brief.Action.Name) == "" {
		return &ValidationError{Field: "action.name", Constraint: "must not be empty"}
	}
	return nil
}
