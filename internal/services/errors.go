package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/qpaper-service/internal/editor"
	apperrors "github.com/SAP-F-2025/qpaper-service/internal/errors"
)

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = apperrors.ErrValidationFailed
	ErrConflict         = errors.New("resource conflict")

	// Subject and course outcome errors
	ErrSubjectNotFound       = errors.New("subject not found")
	ErrSubjectExists         = errors.New("subject already exists for this semester and academic year")
	ErrCourseOutcomeNotFound = errors.New("course outcome not found")
	ErrCourseOutcomeExists   = errors.New("course outcome code already exists for this subject")
	ErrCourseOutcomeMismatch = errors.New("course outcome does not belong to the subject")

	// Faculty errors
	ErrUserNotFound     = errors.New("user not found")
	ErrNotApproved      = errors.New("faculty account is not approved")
	ErrNotAssigned      = errors.New("faculty is not assigned to this subject")
	ErrNotFacultyMember = errors.New("user is not a faculty member")

	// Question errors
	ErrQuestionNotFound = errors.New("question not found")

	// Paper errors
	ErrDraftNotFound = errors.New("paper draft not found or expired")

	// Import/export errors
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// Is lets callers test a PermissionError against ErrForbidden.
func (pe *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSubjectNotFound) ||
		errors.Is(err, ErrCourseOutcomeNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrDraftNotFound) ||
		errors.Is(err, editor.ErrSessionNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsForbidden checks if the caller is known but not allowed to act.
func IsForbidden(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotApproved) ||
		errors.Is(err, ErrNotAssigned)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrNotFacultyMember) ||
		errors.Is(err, ErrCourseOutcomeMismatch) ||
		errors.Is(err, ErrUnsupportedFormat) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSubjectExists) ||
		errors.Is(err, ErrCourseOutcomeExists)
}

// IsNotReady reports an operation attempted before its prerequisite exists.
func IsNotReady(err error) bool {
	return errors.Is(err, apperrors.ErrNotReady)
}

// IsOutOfRange reports an index outside a draft or document.
func IsOutOfRange(err error) bool {
	return errors.Is(err, apperrors.ErrOutOfRange)
}

// IsUpstream reports a failed call to an external collaborator.
func IsUpstream(err error) bool {
	return errors.Is(err, apperrors.ErrUploadFailed) || errors.Is(err, apperrors.ErrNetworkFailed)
}
