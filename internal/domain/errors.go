package domain

import "errors"

var (
	// ErrEmptyCode is returned when a submission contains no code after trimming.
	ErrEmptyCode = errors.New("submission code is empty")
	// ErrDeadlinePassed is returned when a non-privileged user submits after the deadline.
	ErrDeadlinePassed = errors.New("submission deadline has passed")
	// ErrAssignmentInactive is returned when the assignment has been deactivated.
	ErrAssignmentInactive = errors.New("assignment is deactivated")
	// ErrSubmissionInFlight is returned while an earlier submission for the
	// same identity has not finished yet.
	ErrSubmissionInFlight = errors.New("submission already in flight for this draft")
	// ErrUnknownLanguage indicates a language ID outside the registry.
	ErrUnknownLanguage = errors.New("unknown programming language")
	// ErrAssignmentNotFound indicates the assignment metadata could not be loaded.
	ErrAssignmentNotFound = errors.New("assignment not found")
)
