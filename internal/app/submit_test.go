package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"code-session-service/internal/app"
	"code-session-service/internal/domain"
	"code-session-service/internal/infra/memory"
)

func acceptedStub() *memory.StubJudge {
	return &memory.StubJudge{Result: domain.SubmissionResult{
		SubmissionID: "s-1",
		SubmittedAt:  time.Unix(2000, 0),
		RawVerdict:   domain.VerdictAccepted,
	}}
}

func activeAssignment() domain.Assignment {
	return domain.Assignment{SectionID: 7, EndAt: time.Now().Add(time.Hour), Active: true}
}

func TestSubmitClearsDraftOnSuccess(t *testing.T) {
	ctx := context.Background()
	drafts := memory.NewDraftStore(time.Hour)
	if err := drafts.Put(ctx, cIdentity, "int main(void) { return 0; }"); err != nil {
		t.Fatalf("put: %v", err)
	}

	o := app.NewOrchestrator(drafts, acceptedStub(), activeAssignment(), 50*time.Millisecond, nil)
	outcome, err := o.Submit(ctx, app.SubmitRequest{
		Identity: cIdentity,
		Code:     "int main(void) { return 0; }",
		Role:     domain.RoleStudent,
		Mode:     app.ModeJudge,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !outcome.Cleared {
		t.Fatalf("expected cleared outcome, got %+v", outcome)
	}
	if outcome.Display.Class != domain.StatusSuccess {
		t.Fatalf("expected success display, got %+v", outcome.Display)
	}

	rec, err := drafts.Get(ctx, cIdentity)
	if err != nil || rec != nil {
		t.Fatalf("expected draft gone after success, got rec=%v err=%v", rec, err)
	}

	if !o.ClearedRecently() {
		t.Fatalf("expected transient cleared flag")
	}
	waitFor(t, func() bool { return !o.ClearedRecently() })
}

func TestSubmitFailurePreservesDraft(t *testing.T) {
	ctx := context.Background()
	drafts := memory.NewDraftStore(time.Hour)
	if err := drafts.Put(ctx, cIdentity, "precious work"); err != nil {
		t.Fatalf("put: %v", err)
	}

	stub := &memory.StubJudge{Err: errors.New("connection refused")}
	o := app.NewOrchestrator(drafts, stub, activeAssignment(), time.Second, nil)

	outcome, err := o.Submit(ctx, app.SubmitRequest{
		Identity: cIdentity,
		Code:     "precious work",
		Role:     domain.RoleStudent,
		Mode:     app.ModeJudge,
	})
	if err != nil {
		t.Fatalf("transport failures must not surface as errors, got %v", err)
	}
	if outcome.Result != nil {
		t.Fatalf("expected no result on failure, got %+v", outcome.Result)
	}
	if outcome.Display != domain.SubmitFailureDisplay() {
		t.Fatalf("expected generic failure display, got %+v", outcome.Display)
	}

	rec, err := drafts.Get(ctx, cIdentity)
	if err != nil || rec == nil || rec.Code != "precious work" {
		t.Fatalf("draft destroyed by failed submission: rec=%v err=%v", rec, err)
	}
}

func TestSubmitRefusesEmptyCode(t *testing.T) {
	stub := acceptedStub()
	o := app.NewOrchestrator(memory.NewDraftStore(time.Hour), stub, activeAssignment(), time.Second, nil)

	_, err := o.Submit(context.Background(), app.SubmitRequest{
		Identity: cIdentity,
		Code:     "  \n ",
		Role:     domain.RoleStudent,
		Mode:     app.ModeJudge,
	})
	if !errors.Is(err, domain.ErrEmptyCode) {
		t.Fatalf("expected empty code refusal, got %v", err)
	}
	if stub.Calls() != 0 {
		t.Fatalf("pre-flight refusal must not reach the judge")
	}
}

func TestStudentRefusedAfterDeadlineWithoutNetworkCall(t *testing.T) {
	stub := acceptedStub()
	past := domain.Assignment{SectionID: 7, EndAt: time.Now().Add(-time.Minute), Active: true}
	o := app.NewOrchestrator(memory.NewDraftStore(time.Hour), stub, past, time.Second, nil)

	_, err := o.Submit(context.Background(), app.SubmitRequest{
		Identity: cIdentity,
		Code:     "late work",
		Role:     domain.RoleStudent,
		Mode:     app.ModeJudge,
	})
	if !errors.Is(err, domain.ErrDeadlinePassed) {
		t.Fatalf("expected deadline refusal, got %v", err)
	}
	if stub.Calls() != 0 {
		t.Fatalf("expected no judge call, got %d", stub.Calls())
	}
}

func TestTutorMaySubmitToDeactivatedAssignment(t *testing.T) {
	stub := acceptedStub()
	inactive := domain.Assignment{SectionID: 7, EndAt: time.Now().Add(time.Hour), Active: false}
	o := app.NewOrchestrator(memory.NewDraftStore(time.Hour), stub, inactive, time.Second, nil)

	_, err := o.Submit(context.Background(), app.SubmitRequest{
		Identity: cIdentity,
		Code:     "staff check",
		Role:     domain.RoleTutor,
		Mode:     app.ModeJudge,
	})
	if err != nil {
		t.Fatalf("tutor carve-out failed: %v", err)
	}
	if stub.Calls() != 1 {
		t.Fatalf("expected the judge call to be issued, got %d", stub.Calls())
	}
}

func TestStudentRefusedOnDeactivatedAssignment(t *testing.T) {
	stub := acceptedStub()
	inactive := domain.Assignment{SectionID: 7, EndAt: time.Now().Add(time.Hour), Active: false}
	o := app.NewOrchestrator(memory.NewDraftStore(time.Hour), stub, inactive, time.Second, nil)

	_, err := o.Submit(context.Background(), app.SubmitRequest{
		Identity: cIdentity,
		Code:     "work",
		Role:     domain.RoleStudent,
		Mode:     app.ModeJudge,
	})
	if !errors.Is(err, domain.ErrAssignmentInactive) {
		t.Fatalf("expected deactivation refusal, got %v", err)
	}
	if stub.Calls() != 0 {
		t.Fatalf("expected no judge call, got %d", stub.Calls())
	}
}

func TestOutputModeRequestsTestcases(t *testing.T) {
	stub := &memory.StubJudge{Result: domain.SubmissionResult{
		SubmissionID: "s-2",
		RawVerdict:   domain.VerdictWrongAnswer,
		TestcaseOutputs: []domain.TestcaseOutput{
			{Index: 1, Input: "1", Expected: "2", Actual: "3", Passed: false},
		},
	}}
	o := app.NewOrchestrator(memory.NewDraftStore(time.Hour), stub, activeAssignment(), time.Second, nil)

	outcome, err := o.Submit(context.Background(), app.SubmitRequest{
		Identity: cIdentity,
		Code:     "work",
		Role:     domain.RoleStudent,
		Mode:     app.ModeOutput,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	req, ok := stub.LastRequest()
	if !ok || !req.IncludeTestcases {
		t.Fatalf("output mode must request testcase detail, got %+v", req)
	}
	if len(outcome.Result.TestcaseOutputs) != 1 {
		t.Fatalf("expected testcase outputs in outcome, got %+v", outcome.Result)
	}

	// Judge mode strips the detail.
	outcome, err = o.Submit(context.Background(), app.SubmitRequest{
		Identity: cIdentity, Code: "work", Role: domain.RoleStudent, Mode: app.ModeJudge,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(outcome.Result.TestcaseOutputs) != 0 {
		t.Fatalf("judge mode returned testcase outputs: %+v", outcome.Result)
	}
}

func TestUnknownVerdictMapsToGenericDisplay(t *testing.T) {
	stub := &memory.StubJudge{Result: domain.SubmissionResult{
		SubmissionID: "s-3",
		RawVerdict:   domain.ParseVerdict("sideways"),
	}}
	o := app.NewOrchestrator(memory.NewDraftStore(time.Hour), stub, activeAssignment(), time.Second, nil)

	outcome, err := o.Submit(context.Background(), app.SubmitRequest{
		Identity: cIdentity, Code: "work", Role: domain.RoleStudent, Mode: app.ModeJudge,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Display.Label != "Unknown Result" {
		t.Fatalf("expected unknown display, got %+v", outcome.Display)
	}
}

func TestBackendDeadlineMessageUpdatesLocalFlags(t *testing.T) {
	stub := &memory.StubJudge{Err: errors.New("judge rejected submission: the deadline for this quiz has passed")}
	o := app.NewOrchestrator(memory.NewDraftStore(time.Hour), stub, activeAssignment(), time.Second, nil)

	if o.DeadlinePassed() {
		t.Fatalf("deadline should start in the future")
	}
	_, err := o.Submit(context.Background(), app.SubmitRequest{
		Identity: cIdentity, Code: "work", Role: domain.RoleStudent, Mode: app.ModeJudge,
	})
	if !errors.Is(err, domain.ErrDeadlinePassed) {
		t.Fatalf("expected deadline error from backend text, got %v", err)
	}
	if !o.DeadlinePassed() {
		t.Fatalf("local deadline flag did not converge on the backend")
	}
}

func TestBackendDeactivationMessageFiresCallback(t *testing.T) {
	stub := &memory.StubJudge{Err: errors.New("judge rejected submission: assignment was deactivated by staff")}
	deactivated := false
	o := app.NewOrchestrator(memory.NewDraftStore(time.Hour), stub, activeAssignment(), time.Second, func() { deactivated = true })

	_, err := o.Submit(context.Background(), app.SubmitRequest{
		Identity: cIdentity, Code: "work", Role: domain.RoleStudent, Mode: app.ModeJudge,
	})
	if !errors.Is(err, domain.ErrAssignmentInactive) {
		t.Fatalf("expected deactivation error, got %v", err)
	}
	if o.Active() {
		t.Fatalf("local active flag did not converge on the backend")
	}
	if !deactivated {
		t.Fatalf("deactivation callback not invoked")
	}
}

func TestOverlappingSubmissionsAreRefused(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := &blockingJudge{release: release, started: started}
	o := app.NewOrchestrator(memory.NewDraftStore(time.Hour), slow, activeAssignment(), time.Second, nil)

	go func() {
		_, _ = o.Submit(context.Background(), app.SubmitRequest{
			Identity: cIdentity, Code: "work", Role: domain.RoleStudent, Mode: app.ModeJudge,
		})
	}()
	<-started

	_, err := o.Submit(context.Background(), app.SubmitRequest{
		Identity: cIdentity, Code: "work", Role: domain.RoleStudent, Mode: app.ModeJudge,
	})
	if !errors.Is(err, domain.ErrSubmissionInFlight) {
		t.Fatalf("expected in-flight refusal, got %v", err)
	}

	// A different identity is not blocked.
	other := cIdentity
	other.ProblemID = 99
	if _, err := o.Submit(context.Background(), app.SubmitRequest{
		Identity: other, Code: "work", Role: domain.RoleStudent, Mode: app.ModeJudge,
	}); err != nil {
		t.Fatalf("unrelated identity blocked: %v", err)
	}

	close(release)
}

type blockingJudge struct {
	release <-chan struct{}
	started chan struct{}
	once    sync.Once
}

func (j *blockingJudge) Submit(_ context.Context, req app.JudgeRequest) (domain.SubmissionResult, error) {
	block := false
	j.once.Do(func() { block = true })
	if block {
		close(j.started)
		<-j.release
	}
	return domain.SubmissionResult{SubmissionID: "slow", RawVerdict: domain.VerdictAccepted}, nil
}
