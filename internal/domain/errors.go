package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the use cases wraps exactly one of these,
// so transports can classify with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
	ErrExpired            = errors.New("expired")
	ErrInvariantViolation = errors.New("invariant violation")
)

var (
	// ErrSessionNotFound is returned when a session does not exist or belongs to another user.
	ErrSessionNotFound = fmt.Errorf("%w: quiz session", ErrNotFound)
	// ErrCharacterNotFound indicates the character has no question bank.
	ErrCharacterNotFound = fmt.Errorf("%w: character", ErrNotFound)
	// ErrQuestionNotFound indicates a submitted question ID is unknown.
	ErrQuestionNotFound = fmt.Errorf("%w: question", ErrNotFound)
	// ErrProgressNotFound is returned by progress stores before the first write.
	ErrProgressNotFound = fmt.Errorf("%w: user progress", ErrNotFound)
	// ErrStatsNotFound is returned by stats stores for users who never finished a session.
	ErrStatsNotFound = fmt.Errorf("%w: user stats", ErrNotFound)
	// ErrSessionClosed is returned when acting on a Completed or Abandoned session.
	ErrSessionClosed = fmt.Errorf("%w: no active session", ErrNotFound)

	// ErrDuplicateAnswer is returned when the ledger already holds the question.
	ErrDuplicateAnswer = fmt.Errorf("%w: question already answered", ErrConflict)
	// ErrConcurrentUpdate is returned when optimistic retries are exhausted.
	ErrConcurrentUpdate = fmt.Errorf("%w: concurrent update", ErrConflict)

	// ErrSessionExpired is returned for an Active session past its time limit.
	ErrSessionExpired = fmt.Errorf("%w: session time limit exceeded", ErrExpired)

	ErrInvalidLevel        = fmt.Errorf("%w: level must be between 1 and %d", ErrValidation, MaxLevel)
	ErrInvalidAnswer       = fmt.Errorf("%w: malformed answer", ErrValidation)
	ErrInvalidScore        = fmt.Errorf("%w: score must not be negative", ErrValidation)
	ErrOptionOutOfRange    = fmt.Errorf("%w: option index out of range", ErrValidation)
	ErrCharacterMismatch   = fmt.Errorf("%w: question does not belong to the session character", ErrValidation)
	ErrQuestionNotInPlan   = fmt.Errorf("%w: question is not part of this session", ErrValidation)
	ErrInvalidQuestion     = fmt.Errorf("%w: malformed question", ErrValidation)
	ErrNoQuestions         = fmt.Errorf("%w: character has no playable questions", ErrValidation)
	ErrMissingIdentity     = fmt.Errorf("%w: missing user or character id", ErrValidation)
	ErrLedgerScoreMismatch = fmt.Errorf("%w: session score does not match its ledger", ErrInvariantViolation)
	ErrLedgerDuplicate     = fmt.Errorf("%w: session ledger holds a question twice", ErrInvariantViolation)
	ErrMultipleSelected    = fmt.Errorf("%w: more than one character selected", ErrInvariantViolation)
)
