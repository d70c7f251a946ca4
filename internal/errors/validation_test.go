package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("marks", "must be positive", 0)

	if err.Field != "marks" {
		t.Errorf("Expected field to be 'marks', got '%s'", err.Field)
	}

	if err.Message != "must be positive" {
		t.Errorf("Expected message to be 'must be positive', got '%s'", err.Message)
	}

	if err.Value != 0 {
		t.Errorf("Expected value to be 0, got '%v'", err.Value)
	}

	expected := "validation error on field 'marks': must be positive"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	errs = append(errs, *NewValidationError("subjectId", "is required", nil))
	expected := "validation failed: subjectId is required"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for single error, got '%s'", expected, errs.Error())
	}

	errs = append(errs, *NewValidationError("difficulty", "must be Easy, Medium, or Hard", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for multiple errors, got '%s'", expected, errs.Error())
	}
}

func TestValidationErrorsMatchTaxonomy(t *testing.T) {
	var err error = ValidationErrors{*NewValidationError("marks", "is required", nil)}
	wrapped := fmt.Errorf("create question: %w", err)

	if !errors.Is(wrapped, ErrValidationFailed) {
		t.Error("Expected wrapped ValidationErrors to match ErrValidationFailed")
	}
	if errors.Is(wrapped, ErrNotReady) {
		t.Error("ValidationErrors must not match ErrNotReady")
	}
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("coCode", "must look like CO1", "co_code", "X1")

	if err.Rule != "co_code" {
		t.Errorf("Expected rule to be 'co_code', got '%s'", err.Rule)
	}

	if err.Field != "coCode" {
		t.Errorf("Expected field to be 'coCode', got '%s'", err.Field)
	}
}
