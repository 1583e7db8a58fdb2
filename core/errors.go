package core

import (
	"errors"
	"fmt"
)

// Kind identifies the pipeline stage an Error belongs to.
type Kind string

const (
	KindFetch     Kind = "FetchError"
	KindExtract   Kind = "ExtractError"
	KindSummarize Kind = "SummarizationError"
	KindScore     Kind = "ScoringError"
)

// Error is the only error shape that leaves an analysis run.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrFetch) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

// Sentinels for errors.Is.
var (
	ErrFetch     = &Error{Kind: KindFetch}
	ErrExtract   = &Error{Kind: KindExtract}
	ErrSummarize = &Error{Kind: KindSummarize}
	ErrScore     = &Error{Kind: KindScore}
)

func FetchError(message string, cause error) *Error {
	return &Error{Kind: KindFetch, Message: message, Cause: cause}
}

func ExtractError(message string, cause error) *Error {
	return &Error{Kind: KindExtract, Message: message, Cause: cause}
}

func SummarizationError(message string, cause error) *Error {
	return &Error{Kind: KindSummarize, Message: message, Cause: cause}
}

func ScoringError(message string, cause error) *Error {
	return &Error{Kind: KindScore, Message: message, Cause: cause}
}

// KindOf reports the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Ensure returns err unchanged when it already carries a Kind, otherwise it
// wraps it into kind with the given message.
func Ensure(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}
