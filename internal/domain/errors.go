package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure recovered at a stage boundary.
type ErrorKind string

const (
	// KindParseFailure marks malformed inference output.
	KindParseFailure ErrorKind = "parse_failure"
	// KindValidationFailure marks missing or invalid input to a stage.
	KindValidationFailure ErrorKind = "validation_failure"
	// KindNotFoundOrExpired marks a handle that is absent from the cache.
	KindNotFoundOrExpired ErrorKind = "not_found_or_expired"
	// KindUpstreamFailure marks a store or inference call error.
	KindUpstreamFailure ErrorKind = "upstream_failure"
	// KindContractViolation marks a result missing required schema keys.
	KindContractViolation ErrorKind = "contract_violation"
	// KindIterationLimitExceeded marks a request that ran out of stage invocations.
	KindIterationLimitExceeded ErrorKind = "iteration_limit_exceeded"
)

// StageError is the structured error attached to degraded stage results.
type StageError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`

	err error
}

// NewStageError wraps err with a kind. A nil err yields nil.
func NewStageError(kind ErrorKind, err error) *StageError {
	if err == nil {
		return nil
	}
	return &StageError{Kind: kind, Message: err.Error(), err: err}
}

// StageErrorf builds a StageError from a format string.
func StageErrorf(kind ErrorKind, format string, args ...interface{}) *StageError {
	return NewStageError(kind, fmt.Errorf(format, args...))
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.err
}

// KindOf returns the kind of a StageError found in err's chain, or "".
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
