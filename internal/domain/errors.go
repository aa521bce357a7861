package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("invalid input")
	// ErrDuplicateTeam is returned when a team id is registered twice.
	ErrDuplicateTeam = errors.New("team already registered")
	// ErrUnknownTeam is returned when a submission names a team that never registered.
	ErrUnknownTeam = errors.New("unknown team")
	// ErrNoActiveRound is returned when submitting before any round was started.
	ErrNoActiveRound = errors.New("no active round")
	// ErrWindowClosed is returned when the round's submission window has elapsed.
	ErrWindowClosed = errors.New("submission window closed")
	// ErrSubmissionNotFound indicates a submission id that is not in the store.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrPersistence wraps failures of the durable write behind a mutation.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError describes which input field was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Kind is the machine-readable error class reported to clients.
type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindDuplicateTeam      Kind = "DuplicateTeam"
	KindUnknownTeam        Kind = "UnknownTeam"
	KindNoActiveRound      Kind = "NoActiveRound"
	KindWindowClosed       Kind = "WindowClosed"
	KindSubmissionNotFound Kind = "SubmissionNotFound"
	KindPersistence        Kind = "PersistenceFailure"
	KindInternal           Kind = "Internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrValidation, KindValidation},
	{ErrDuplicateTeam, KindDuplicateTeam},
	{ErrUnknownTeam, KindUnknownTeam},
	{ErrNoActiveRound, KindNoActiveRound},
	{ErrWindowClosed, KindWindowClosed},
	{ErrSubmissionNotFound, KindSubmissionNotFound},
	{ErrPersistence, KindPersistence},
}

// KindOf classifies err. Unrecognised errors are KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsClientFault reports whether err was caused by the caller's input or by a domain rule.
func IsClientFault(err error) bool {
	switch KindOf(err) {
	case KindPersistence, KindInternal:
		return false
	}
	return true
}

// PersistenceError wraps cause so that errors.Is(err, ErrPersistence) holds.
func PersistenceError(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, cause)
}
