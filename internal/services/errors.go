package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

// Eligibility errors. The caller can recover by waiting or fixing state.
var (
	ErrNotPublished        = errors.New("assessment is not published")
	ErrNotYetOpen          = errors.New("assessment is not open yet")
	ErrClosed              = errors.New("assessment is closed")
	ErrNotEnrolled         = errors.New("taker is not enrolled in the assessment group")
	ErrAttemptLimitReached = errors.New("maximum number of attempts reached")
)

// Integrity errors. They signal misuse or a stale client.
var (
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrQuestionNotInAttempt    = errors.New("question is not part of this attempt")
	ErrAttemptAlreadyFinalized = errors.New("attempt is already finalized")
	ErrNotYetSubmitted         = errors.New("attempt has not been submitted yet")
	ErrAttemptDeadlinePassed   = errors.New("attempt deadline has passed")
)

var (
	ErrInsufficientPool   = errors.New("question pool is smaller than the sample size")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrQuestionNotFound   = errors.New("question not found")
)

type ValidationErrors = validator.ValidationErrors

// PermissionError is returned when the caller does not own the resource it acts on
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

// BusinessRuleError wraps a sentinel with the rule that rejected the request
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
	Err     error
}

func NewBusinessRuleError(rule string, err error, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: err.Error(),
		Context: context,
		Err:     err,
	}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func (e *BusinessRuleError) Unwrap() error {
	return e.Err
}

// IsEligibilityError reports whether err is one of the start preconditions
func IsEligibilityError(err error) bool {
	return errors.Is(err, ErrNotPublished) ||
		errors.Is(err, ErrNotYetOpen) ||
		errors.Is(err, ErrClosed) ||
		errors.Is(err, ErrNotEnrolled) ||
		errors.Is(err, ErrAttemptLimitReached)
}
