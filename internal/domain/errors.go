package domain

import "errors"

var (
	// ErrInvalidArgument is returned for malformed input such as an empty question list
	// or an option index that is neither valid nor NoAnswer.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState is returned when an operation is invoked outside its required state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrStaleSubmission is returned when an answer targets a question that is not the current one,
	// typically a late timer event after the session already advanced.
	ErrStaleSubmission = errors.New("stale submission")
	// ErrDuplicateSubmission is returned when a question already has a recorded result.
	ErrDuplicateSubmission = errors.New("duplicate submission")
	// ErrSessionNotFound is returned when a quiz session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrPoolNotFound indicates the question pool could not be loaded.
	ErrPoolNotFound = errors.New("question pool not found")
)

// IsHarmlessRace reports whether err only signals that a timer and a confirmation
// raced for the same question. Callers usually treat these as no-ops.
func IsHarmlessRace(err error) bool {
	return errors.Is(err, ErrStaleSubmission) || errors.Is(err, ErrDuplicateSubmission)
}
