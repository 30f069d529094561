package memory

import (
	"context"
	"sync"

	"code-session-service/internal/app"
	"code-session-service/internal/domain"
)

// StaticProgressRepo serves remote progress from an in-memory map keyed by
// draft identity (useful for tests/demos).
type StaticProgressRepo struct {
	progress map[string]string
}

func NewStaticProgressRepo(progress map[string]string) *StaticProgressRepo {
	if progress == nil {
		progress = make(map[string]string)
	}
	return &StaticProgressRepo{progress: progress}
}

func (r *StaticProgressRepo) LoadProgress(_ context.Context, id domain.DraftIdentity) (string, error) {
	return r.progress[id.Key()], nil
}

// StaticAssignmentRepo serves assignment metadata from an in-memory map
// keyed by section ID.
type StaticAssignmentRepo struct {
	assignments map[int64]domain.Assignment
}

func NewStaticAssignmentRepo(assignments map[int64]domain.Assignment) *StaticAssignmentRepo {
	if assignments == nil {
		assignments = make(map[int64]domain.Assignment)
	}
	return &StaticAssignmentRepo{assignments: assignments}
}

func (r *StaticAssignmentRepo) GetAssignment(_ context.Context, sectionID int64) (domain.Assignment, error) {
	a, ok := r.assignments[sectionID]
	if !ok {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	return a, nil
}

// LoadAssignment lets the repo double as a cache loader.
func (r *StaticAssignmentRepo) LoadAssignment(ctx context.Context, sectionID int64) (domain.Assignment, error) {
	return r.GetAssignment(ctx, sectionID)
}

// StubJudge is a scripted judge for tests and judge-less demo runs. It
// records every request it sees.
type StubJudge struct {
	Result domain.SubmissionResult
	Err    error

	mu       sync.Mutex
	requests []app.JudgeRequest
}

func (j *StubJudge) Submit(_ context.Context, req app.JudgeRequest) (domain.SubmissionResult, error) {
	j.mu.Lock()
	j.requests = append(j.requests, req)
	j.mu.Unlock()

	if j.Err != nil {
		return domain.SubmissionResult{}, j.Err
	}
	res := j.Result
	res.Language = req.Language
	if !req.IncludeTestcases {
		res.TestcaseOutputs = nil
	}
	return res, nil
}

// Calls returns how many submissions reached the stub.
func (j *StubJudge) Calls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.requests)
}

// LastRequest returns the most recent request, if any.
func (j *StubJudge) LastRequest() (app.JudgeRequest, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.requests) == 0 {
		return app.JudgeRequest{}, false
	}
	return j.requests[len(j.requests)-1], true
}
