package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeConfiguration, "test message: %s", "value")

	if err.Code != ErrCodeConfiguration {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeConfiguration)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "CONFIGURATION: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeNetwork, cause, "failed to fetch")

	if err.Code != ErrCodeNetwork {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNetwork)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	acq := &AcquisitionError{
		Coordinate: "g:a:1",
		Causes: []error{
			New(ErrCodeNetwork, "repo a down"),
			&IntegrityError{Path: "a.jar", Expected: "aa", Actual: "bb"},
		},
	}

	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeConfiguration, "test"), ErrCodeConfiguration, true},
		{"non-matching code", New(ErrCodeConfiguration, "test"), ErrCodeNetwork, false},
		{"wrapped error", Wrap(ErrCodeNetwork, New(ErrCodeConfiguration, "inner"), "outer"), ErrCodeConfiguration, true},
		{"fmt wrapped", fmt.Errorf("ctx: %w", New(ErrCodeCollaborator, "x")), ErrCodeCollaborator, true},
		{"integrity type", &IntegrityError{}, ErrCodeIntegrity, true},
		{"acquisition type", acq, ErrCodeAcquisition, true},
		{"acquisition cause network", acq, ErrCodeNetwork, true},
		{"acquisition cause integrity", acq, ErrCodeIntegrity, true},
		{"acquisition no collaborator", acq, ErrCodeCollaborator, false},
		{"non-Error type", errors.New("plain error"), ErrCodeConfiguration, false},
		{"nil error", nil, ErrCodeConfiguration, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeConfiguration, "test"), ErrCodeConfiguration},
		{"outermost wins", Wrap(ErrCodeCollaborator, New(ErrCodeNetwork, "x"), "y"), ErrCodeCollaborator},
		{"fmt wrapped typed", fmt.Errorf("ctx: %w", &AcquisitionError{}), ErrCodeAcquisition},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeConfiguration, "friendly message"), "friendly message"},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAcquisitionError(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	err := &AcquisitionError{Coordinate: "g:a:1", Causes: []error{first, second}}

	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Error("errors.Is should find every per-repository cause")
	}
	msg := err.Error()
	if !strings.Contains(msg, "all 2 repositories failed for g:a:1") {
		t.Errorf("Error() = %q, missing summary", msg)
	}
	if !strings.Contains(msg, "first") || !strings.Contains(msg, "second") {
		t.Errorf("Error() = %q, missing causes", msg)
	}

	var integrity *IntegrityError
	wrapped := &AcquisitionError{Causes: []error{&IntegrityError{Expected: "a", Actual: "b"}}}
	if !errors.As(wrapped, &integrity) {
		t.Fatal("errors.As should reach IntegrityError cause")
	}
	if integrity.Expected != "a" {
		t.Errorf("Expected = %q, want a", integrity.Expected)
	}
}
