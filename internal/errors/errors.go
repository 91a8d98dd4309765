// Package errors provides error aggregation and panic recovery helpers
// shared across the runner, the working-tree keeper, and the journal.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// MultiError collects errors from multi-step operations (shutdown,
// working-tree restore) where later steps must run even if earlier
// ones fail.
type MultiError struct {
	Errors []error
}

// Append adds a non-nil error to the collection.
func (m *MultiError) Append(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were collected, the sole error if
// exactly one was, and the MultiError itself otherwise.
func (m *MultiError) ErrorOrNil() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred: %s", len(m.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the collected errors to errors.Is/As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// PanicError wraps a recovered panic value with its stack trace so
// callers can distinguish panics from ordinary failures.
type PanicError struct {
	Value      any
	StackTrace string
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Recover runs fn and converts a panic into a *PanicError return value.
// Subprocess-heavy code paths use this so a panicking hook callback
// cannot take down the whole run before the working tree is restored.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Value:      r,
				StackTrace: string(debug.Stack()),
			}
		}
	}()
	return fn()
}

// TransientError marks a failure the caller may downgrade to a
// warning: the operation failed but nothing was lost, like the
// journal's bounded shutdown at process exit.
type TransientError struct {
	Op  string
	Err error
}

// NewTransientError wraps err with the operation that failed.
func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

func (t *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", t.Op, t.Err)
}

func (t *TransientError) Unwrap() error {
	return t.Err
}

// IsTransient reports whether any error in err's chain is transient.
func IsTransient(err error) bool {
	var te *TransientError
	return stderrors.As(err, &te)
}
