// internal/types_test.go - Unit tests for application errors
package internal

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(ErrorCodeFileSystem, "cannot read", cause)
	if err.Error() != "cannot read: boom" {
		t.Errorf("Expected 'cannot read: boom', got %s", err.Error())
	}

	bare := NewError(ErrorCodeValidation, "bad input", nil)
	if bare.Error() != "bad input" {
		t.Errorf("Expected 'bad input', got %s", bare.Error())
	}
}

func TestHasCode(t *testing.T) {
	inner := NewError(ErrorCodeOutOfRange, "latitude out of range", nil)
	outer := NewError(ErrorCodeProcessing, "record 7", inner)
	wrapped := fmt.Errorf("region stl: %w", outer)

	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"direct", inner, ErrorCodeOutOfRange, true},
		{"nested cause", outer, ErrorCodeOutOfRange, true},
		{"wrapped with fmt", wrapped, ErrorCodeOutOfRange, true},
		{"outer code", wrapped, ErrorCodeProcessing, true},
		{"missing code", wrapped, ErrorCodeInvariant, false},
		{"plain error", errors.New("x"), ErrorCodeOutOfRange, false},
		{"nil", nil, ErrorCodeOutOfRange, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(tt.err, tt.code); got != tt.want {
				t.Errorf("HasCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk gone")
	err := fmt.Errorf("wrapped: %w", NewError(ErrorCodeFileSystem, "write failed", cause))
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the cause")
	}
}
