package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorNotFound, "not_found"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"upstream unavailable", ErrUpstreamUnavailable, true},
		{"upstream status", ErrUpstreamStatus, true},
		{"rate limited", ErrRateLimited, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"session not found", ErrSessionNotFound, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"network error", fmt.Errorf("network unreachable"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"session not found", ErrSessionNotFound, true},
		{"route not found", ErrRouteNotFound, true},
		{"wrapped session not found", fmt.Errorf("lookup: %w", ErrSessionNotFound), true},
		{"missing connection id", ErrMissingConnectionID, false},
		{"classified not found", &ClassifiedError{Class: ErrorNotFound, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsNotFound(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid data", ErrInvalidData, true},
		{"parsing failed", ErrParsingFailed, true},
		{"missing connection id", ErrMissingConnectionID, true},
		{"session not found", ErrSessionNotFound, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil defaults transient", nil, ErrorTransient},
		{"not found wins", ErrSessionNotFound, ErrorNotFound},
		{"invalid", ErrMissingConnectionID, ErrorInvalid},
		{"fatal", ErrInvalidConfig, ErrorFatal},
		{"unknown defaults transient", fmt.Errorf("mystery"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Classify(test.err); got != test.expected {
				t.Errorf("expected %v, got %v", test.expected, got)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("boom")

	err := Wrap(base, "Registry", "Drain", "buffer drain")
	if err == nil {
		t.Fatal("expected wrapped error")
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error should match base via errors.Is")
	}
	want := "Registry.Drain: buffer drain failed: boom"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	if Wrap(nil, "Registry", "Drain", "buffer drain") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapClassifiers(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"not found", WrapNotFound, ErrorNotFound},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.wrap(base, "Adapter", "Send", "delivery")
			if err == nil {
				t.Fatal("expected error")
			}

			var ce *ClassifiedError
			if !errors.As(err, &ce) {
				t.Fatal("expected ClassifiedError")
			}
			if ce.Class != test.class {
				t.Errorf("expected class %v, got %v", test.class, ce.Class)
			}
			if !errors.Is(err, base) {
				t.Error("classified error should unwrap to base")
			}
			if !strings.Contains(err.Error(), "Adapter.Send") {
				t.Errorf("expected component context in message, got %q", err.Error())
			}

			if test.wrap(nil, "Adapter", "Send", "delivery") != nil {
				t.Error("wrapping nil should return nil")
			}
		})
	}
}
