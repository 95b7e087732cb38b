package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code.
// Codes are stable keys, never localized sentences, so callers can branch on them.
type ErrorCode string

const (
	// Subscription state transition errors
	ErrorCodeSubscriptionActived   ErrorCode = "subscription_actived"
	ErrorCodeSubscriptionPaused    ErrorCode = "subscription_paused"
	ErrorCodeSubscriptionPending   ErrorCode = "subscription_pending"
	ErrorCodeSubscriptionCanceled  ErrorCode = "subscription_canceled"
	ErrorCodeSubscriptionFinished  ErrorCode = "subscription_finished"
	ErrorCodeSubscriptionNotActive ErrorCode = "subscription_not_active"

	// Billing value errors
	ErrorCodeInvalidRecurrenceType ErrorCode = "invalid_recurrence_type"
	ErrorCodeInvalidAmount         ErrorCode = "invalid_amount"

	// Validation errors
	ErrorCodeValidationFailed ErrorCode = "validation_failed"

	// Not found errors
	ErrorCodeSubscriberNotFound       ErrorCode = "subscriber_not_found"
	ErrorCodeCompanyNotFound          ErrorCode = "company_not_found"
	ErrorCodeSubscriptionPlanNotFound ErrorCode = "subscription_plan_not_found"
	ErrorCodeSubscriptionNotFound     ErrorCode = "subscription_not_found"
)

// ErrorKind groups error codes by how a boundary should treat them
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindDomain     ErrorKind = "domain"
	KindValidation ErrorKind = "validation"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Kind    ErrorKind
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code, so sentinel values work with errors.Is
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail field.
// Sentinels are shared values and must never be mutated in place.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Err:     e.Err,
		Details: details,
		Code:    e.Code,
		Kind:    e.Kind,
		Message: e.Message,
	}
}

// NewDomainError creates a new business-rule error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Kind:    KindDomain,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// NewNotFoundError creates an error for a referenced entity that does not exist
func NewNotFoundError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Kind:    KindNotFound,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// NewValidationError wraps an input validation failure
func NewValidationError(err error) *DomainError {
	return &DomainError{
		Code:    ErrorCodeValidationFailed,
		Kind:    KindValidation,
		Message: "validation failed",
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// HasCode checks if an error is a DomainError with the given code
func HasCode(err error, code ErrorCode) bool {
	return err != nil && GetErrorCode(err) == code
}

func kindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

// IsNotFound checks if an error represents a "not found" condition
func IsNotFound(err error) bool {
	return kindOf(err) == KindNotFound
}

// IsDomain checks if an error is a business-rule violation
func IsDomain(err error) bool {
	return kindOf(err) == KindDomain
}

// IsValidation checks if an error is an input validation failure
func IsValidation(err error) bool {
	return kindOf(err) == KindValidation
}

var (
	ErrSubscriptionActived   = NewDomainError(ErrorCodeSubscriptionActived, "subscription is already active")
	ErrSubscriptionPaused    = NewDomainError(ErrorCodeSubscriptionPaused, "subscription is paused")
	ErrSubscriptionPending   = NewDomainError(ErrorCodeSubscriptionPending, "subscription is pending")
	ErrSubscriptionCanceled  = NewDomainError(ErrorCodeSubscriptionCanceled, "subscription is canceled")
	ErrSubscriptionFinished  = NewDomainError(ErrorCodeSubscriptionFinished, "subscription is finished")
	ErrSubscriptionNotActive = NewDomainError(ErrorCodeSubscriptionNotActive, "subscription is not active")

	ErrInvalidRecurrenceType = NewDomainError(ErrorCodeInvalidRecurrenceType, "invalid recurrence type")
	ErrInvalidAmount         = NewDomainError(ErrorCodeInvalidAmount, "amount must be positive")

	ErrSubscriberNotFound       = NewNotFoundError(ErrorCodeSubscriberNotFound, "subscriber not found")
	ErrCompanyNotFound          = NewNotFoundError(ErrorCodeCompanyNotFound, "company not found")
	ErrSubscriptionPlanNotFound = NewNotFoundError(ErrorCodeSubscriptionPlanNotFound, "subscription plan not found")
	ErrSubscriptionNotFound     = NewNotFoundError(ErrorCodeSubscriptionNotFound, "subscription not found")
)
