package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestMultiError_ErrorOrNil(t *testing.T) {
	t.Run("empty returns nil", func(t *testing.T) {
		m := &MultiError{}
		if err := m.ErrorOrNil(); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("single error returned directly", func(t *testing.T) {
		m := &MultiError{}
		sentinel := stderrors.New("boom")
		m.Append(sentinel)
		if err := m.ErrorOrNil(); err != sentinel {
			t.Errorf("expected the appended error itself, got %v", err)
		}
	})

	t.Run("multiple errors combined", func(t *testing.T) {
		m := &MultiError{}
		m.Append(stderrors.New("first"))
		m.Append(stderrors.New("second"))
		err := m.ErrorOrNil()
		if err == nil {
			t.Fatal("expected combined error, got nil")
		}
		msg := err.Error()
		if !strings.Contains(msg, "2 errors occurred") {
			t.Errorf("expected count prefix, got %q", msg)
		}
		if !strings.Contains(msg, "first") || !strings.Contains(msg, "second") {
			t.Errorf("expected both messages, got %q", msg)
		}
	})

	t.Run("nil append ignored", func(t *testing.T) {
		m := &MultiError{}
		m.Append(nil)
		if err := m.ErrorOrNil(); err != nil {
			t.Errorf("expected nil after appending nil, got %v", err)
		}
	})
}

func TestMultiError_Unwrap(t *testing.T) {
	sentinel := stderrors.New("target")
	m := &MultiError{}
	m.Append(stderrors.New("other"))
	m.Append(fmt.Errorf("wrapped: %w", sentinel))

	if !stderrors.Is(m.ErrorOrNil(), sentinel) {
		t.Error("errors.Is should find the sentinel through MultiError")
	}
}

func TestRecover(t *testing.T) {
	t.Run("passes through nil", func(t *testing.T) {
		if err := Recover(func() error { return nil }); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("passes through errors", func(t *testing.T) {
		sentinel := stderrors.New("plain failure")
		if err := Recover(func() error { return sentinel }); err != sentinel {
			t.Errorf("expected sentinel, got %v", err)
		}
	})

	t.Run("converts panic to PanicError", func(t *testing.T) {
		err := Recover(func() error { panic("kaboom") })
		if err == nil {
			t.Fatal("expected error from panic")
		}

		var panicErr *PanicError
		if !stderrors.As(err, &panicErr) {
			t.Fatalf("expected *PanicError, got %T", err)
		}
		if panicErr.Value != "kaboom" {
			t.Errorf("expected panic value 'kaboom', got %v", panicErr.Value)
		}
		if panicErr.StackTrace == "" {
			t.Error("expected non-empty stack trace")
		}
		if !strings.Contains(err.Error(), "kaboom") {
			t.Errorf("expected message to include panic value, got %q", err.Error())
		}
	})
}

func TestTransientError(t *testing.T) {
	cause := stderrors.New("timed out")
	err := NewTransientError("journal shutdown", cause)

	if got := err.Error(); !strings.Contains(got, "journal shutdown") || !strings.Contains(got, "timed out") {
		t.Errorf("unexpected message: %q", got)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}

	wrapped := fmt.Errorf("shutdown: %w", err)
	if !IsTransient(wrapped) {
		t.Error("IsTransient should see through wrapping")
	}
	if IsTransient(cause) {
		t.Error("plain errors are not transient")
	}
}
