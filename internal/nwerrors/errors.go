// Package nwerrors defines the typed error taxonomy of spec.md §7, so
// callers (the Control API, the CLI) can map a failure to a status code
// or an exit code without string-matching error messages.
package nwerrors

import (
	"errors"
	"fmt"
)

// Kind identifies one row of the spec.md §7 error taxonomy.
type Kind string

const (
	KindConfigurationInvalid Kind = "ConfigurationInvalid"
	KindTaskFileIOError      Kind = "TaskFileIOError"
	KindTaskFileInvalid      Kind = "TaskFileInvalid"
	KindTaskNotFound         Kind = "TaskNotFound"
	KindTaskConfigInvalid    Kind = "TaskConfigInvalid"
	KindProviderConfigInvalid Kind = "ProviderConfigInvalid"
	KindActionConfigInvalid  Kind = "ActionConfigInvalid"
	KindProviderRuntimeError Kind = "ProviderRuntimeError"
	KindActionRuntimeError   Kind = "ActionRuntimeError"
	KindSchedulerError       Kind = "SchedulerError"
)

// Error is the concrete error type carried through the system. It wraps
// an optional underlying cause and records which taxonomy row it is.
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

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, nwerrors.New(nwerrors.KindTaskNotFound, "")) work
// against a bare Kind sentinel constructed with New(kind, "").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and
// false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Sentinel constructors for the common "bare kind" comparisons.
func TaskNotFound(name string) *Error {
	return New(KindTaskNotFound, "task %q not found", name)
}
