package domain

import (
	"fmt"
	"time"
)

// Role is the coarse user role reported by the surrounding platform.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleTutor      Role = "TUTOR"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Privileged reports whether the role belongs to course staff. Staff are
// exempt from the deadline and deactivation submission checks.
func (r Role) Privileged() bool {
	switch r {
	case RoleTutor, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// DraftIdentity addresses at most one stored code draft. Switching the
// editor language switches to a different identity entirely.
type DraftIdentity struct {
	ProblemID int64  `json:"problemId"`
	SectionID int64  `json:"sectionId"`
	Language  string `json:"language"`
}

// Key renders the identity as a stable composite key for storage layers.
func (id DraftIdentity) Key() string {
	return fmt.Sprintf("%d:%d:%s", id.ProblemID, id.SectionID, id.Language)
}

// DraftRecord is one locally persisted in-progress draft. At most one
// record exists per identity; writes overwrite, they never append.
type DraftRecord struct {
	Identity DraftIdentity `json:"identity"`
	Code     string        `json:"code"`
	Language string        `json:"language"`
	SavedAt  time.Time     `json:"savedAt"`
}

// Assignment is the server-held metadata an editor session is governed by.
type Assignment struct {
	SectionID int64
	EndAt     time.Time
	Active    bool
}

// TestcaseOutput is the per-testcase diagnostic detail returned by the
// judge when a submission asks for output mode.
type TestcaseOutput struct {
	Index    int    `json:"index"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

// SubmissionResult is the judge's answer for one submission. It is only
// displayed, never persisted locally.
type SubmissionResult struct {
	SubmissionID    string           `json:"submissionId"`
	Language        string           `json:"language"`
	SubmittedAt     time.Time        `json:"submittedAt"`
	RawVerdict      Verdict          `json:"rawVerdict"`
	TestcaseOutputs []TestcaseOutput `json:"testcaseOutputs,omitempty"`
}
