package app

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"code-session-service/internal/domain"
)

// SubmitMode selects how much detail the judge returns.
type SubmitMode string

const (
	// ModeJudge asks for the verdict only.
	ModeJudge SubmitMode = "judge"
	// ModeOutput asks for the verdict plus per-testcase output.
	ModeOutput SubmitMode = "output"
)

// JudgeRequest is the wire-level call to the external judge service.
type JudgeRequest struct {
	SectionID        int64
	ProblemID        int64
	Code             string
	Language         string
	IncludeTestcases bool
}

// JudgeClient is the opaque judge RPC. Both submit modes share this call;
// only IncludeTestcases and the response detail differ.
type JudgeClient interface {
	Submit(ctx context.Context, req JudgeRequest) (domain.SubmissionResult, error)
}

// AssignmentRepository loads assignment metadata (deadline, active flag).
type AssignmentRepository interface {
	GetAssignment(ctx context.Context, sectionID int64) (domain.Assignment, error)
}

// SubmitRequest is one submission attempt from an editor session.
type SubmitRequest struct {
	Identity domain.DraftIdentity
	Code     string
	Role     domain.Role
	Mode     SubmitMode
}

// SubmitOutcome is what the result panel renders after an attempt that
// reached the judge. Result is nil when the call itself failed.
type SubmitOutcome struct {
	Result  *domain.SubmissionResult `json:"result,omitempty"`
	Display domain.VerdictDisplay    `json:"display"`
	// Cleared reports that the local draft was invalidated because the
	// submission is now the authoritative copy.
	Cleared bool `json:"cleared"`
}

// Orchestrator runs submissions: pre-flight policy checks, the judge call,
// verdict classification, and draft invalidation. It holds the session's
// local view of the deadline and active flags; the backend stays
// authoritative and its error text can update that view reactively.
type Orchestrator struct {
	drafts DraftStore
	judge  JudgeClient
	now    func() time.Time

	// onDeactivated fires when the backend reports the assignment has been
	// deactivated under us; the transport alerts and redirects.
	onDeactivated func()

	mu         sync.Mutex
	deadline   time.Time
	active     bool
	inflight   map[string]struct{}
	cleared    bool
	clearedFor time.Duration
}

func NewOrchestrator(drafts DraftStore, judge JudgeClient, assignment domain.Assignment, clearedFor time.Duration, onDeactivated func()) *Orchestrator {
	return &Orchestrator{
		drafts:        drafts,
		judge:         judge,
		now:           time.Now,
		onDeactivated: onDeactivated,
		deadline:      assignment.EndAt,
		active:        assignment.Active,
		inflight:      make(map[string]struct{}),
		clearedFor:    clearedFor,
	}
}

// NewOrchestratorWithClock is test-only for deterministic deadline checks.
func NewOrchestratorWithClock(drafts DraftStore, judge JudgeClient, assignment domain.Assignment, clearedFor time.Duration, onDeactivated func(), now func() time.Time) *Orchestrator {
	o := NewOrchestrator(drafts, judge, assignment, clearedFor, onDeactivated)
	o.now = now
	return o
}

// Submit runs one submission attempt. Policy refusals come back as the
// sentinel errors in the domain package, before any network call is made.
// A judge transport failure is not an error to the caller: it maps to the
// generic failure display and leaves the draft untouched.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (SubmitOutcome, error) {
	if strings.TrimSpace(req.Code) == "" {
		return SubmitOutcome{}, domain.ErrEmptyCode
	}
	if o.DeadlinePassed() && !req.Role.Privileged() {
		return SubmitOutcome{}, domain.ErrDeadlinePassed
	}
	if !o.Active() && !req.Role.Privileged() {
		return SubmitOutcome{}, domain.ErrAssignmentInactive
	}

	key := req.Identity.Key()
	o.mu.Lock()
	if _, busy := o.inflight[key]; busy {
		o.mu.Unlock()
		return SubmitOutcome{}, domain.ErrSubmissionInFlight
	}
	o.inflight[key] = struct{}{}
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.inflight, key)
		o.mu.Unlock()
	}()

	res, err := o.judge.Submit(ctx, JudgeRequest{
		SectionID:        req.Identity.SectionID,
		ProblemID:        req.Identity.ProblemID,
		Code:             req.Code,
		Language:         req.Identity.Language,
		IncludeTestcases: req.Mode == ModeOutput,
	})
	if err != nil {
		if perr := o.absorbBackendError(err); perr != nil {
			return SubmitOutcome{}, perr
		}
		log.Printf("submit: judge call failed for %s: %v", key, err)
		return SubmitOutcome{Display: domain.SubmitFailureDisplay()}, nil
	}

	// The accepted copy now lives in the submission history; the local
	// draft would only shadow it.
	cleared := true
	if derr := o.drafts.Delete(ctx, req.Identity); derr != nil {
		log.Printf("submit: draft delete failed for %s: %v", key, derr)
		cleared = false
	} else {
		o.markCleared()
	}

	return SubmitOutcome{
		Result:  &res,
		Display: res.RawVerdict.Display(),
		Cleared: cleared,
	}, nil
}

// DeadlinePassed reports the session's local view of the deadline.
func (o *Orchestrator) DeadlinePassed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.deadline.IsZero() && !o.now().Before(o.deadline)
}

// Active reports the session's local view of the assignment's active flag.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// ClearedRecently reports the transient "session cleared" flag raised
// after a successful submission. It resets by itself.
func (o *Orchestrator) ClearedRecently() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cleared
}

// absorbBackendError string-matches the backend's error text for policy
// conditions the client-side flags may have missed. The backend is
// authoritative over deadline tracking, so the local flags converge on
// what it says.
func (o *Orchestrator) absorbBackendError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadline"):
		o.mu.Lock()
		o.deadline = o.now()
		o.mu.Unlock()
		return domain.ErrDeadlinePassed
	case strings.Contains(msg, "deactivated") || strings.Contains(msg, "inactive"):
		o.mu.Lock()
		o.active = false
		cb := o.onDeactivated
		o.mu.Unlock()
		if cb != nil {
			cb()
		}
		return domain.ErrAssignmentInactive
	}
	return nil
}

func (o *Orchestrator) markCleared() {
	o.mu.Lock()
	o.cleared = true
	o.mu.Unlock()

	time.AfterFunc(o.clearedFor, func() {
		o.mu.Lock()
		o.cleared = false
		o.mu.Unlock()
	})
}
