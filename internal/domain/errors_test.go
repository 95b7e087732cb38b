package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestDomainErrors_TransitionErrors tests the stable keys of transition errors
func TestDomainErrors_TransitionErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *DomainError
		code ErrorCode
	}{
		{"subscription_actived", ErrSubscriptionActived, "subscription_actived"},
		{"subscription_paused", ErrSubscriptionPaused, "subscription_paused"},
		{"subscription_pending", ErrSubscriptionPending, "subscription_pending"},
		{"subscription_canceled", ErrSubscriptionCanceled, "subscription_canceled"},
		{"subscription_finished", ErrSubscriptionFinished, "subscription_finished"},
		{"subscription_not_active", ErrSubscriptionNotActive, "subscription_not_active"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("code = %q, want %q", tt.err.Code, tt.code)
			}
			if !IsDomain(tt.err) {
				t.Errorf("expected %v to be a domain error", tt.err)
			}
			if IsNotFound(tt.err) {
				t.Errorf("transition error %v must not be a not-found error", tt.err)
			}
			if !strings.HasPrefix(tt.err.Error(), string(tt.code)) {
				t.Errorf("error message %q should start with code %q", tt.err.Error(), tt.code)
			}
		})
	}
}

// TestDomainErrors_NotFoundErrors tests not-found classification
func TestDomainErrors_NotFoundErrors(t *testing.T) {
	for _, err := range []*DomainError{
		ErrSubscriberNotFound,
		ErrCompanyNotFound,
		ErrSubscriptionPlanNotFound,
		ErrSubscriptionNotFound,
	} {
		t.Run(string(err.Code), func(t *testing.T) {
			if !IsNotFound(err) {
				t.Errorf("expected %v to be a not-found error", err)
			}
			if IsDomain(err) {
				t.Errorf("not-found error %v must not be a domain error", err)
			}
		})
	}
}

// TestDomainError_Wrapping tests errors.Is / errors.As through fmt wrapping
func TestDomainError_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("update subscription handler: %w", ErrSubscriptionPending)

	if !errors.Is(wrapped, ErrSubscriptionPending) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
	if errors.Is(wrapped, ErrSubscriptionPaused) {
		t.Error("errors.Is must not match a different code")
	}
	if GetErrorCode(wrapped) != ErrorCodeSubscriptionPending {
		t.Errorf("GetErrorCode() = %q", GetErrorCode(wrapped))
	}

	var domainErr *DomainError
	if !errors.As(wrapped, &domainErr) {
		t.Fatal("errors.As should extract the DomainError")
	}
	if domainErr.Kind != KindDomain {
		t.Errorf("kind = %q, want %q", domainErr.Kind, KindDomain)
	}
}

// TestDomainError_WithDetail tests that details never leak into shared sentinels
func TestDomainError_WithDetail(t *testing.T) {
	detailed := ErrSubscriptionNotFound.WithDetail("subscription_id", "sub-1")

	if detailed.Details["subscription_id"] != "sub-1" {
		t.Errorf("detail not set: %v", detailed.Details)
	}
	if _, ok := ErrSubscriptionNotFound.Details["subscription_id"]; ok {
		t.Error("WithDetail must not mutate the sentinel")
	}
	if !errors.Is(detailed, ErrSubscriptionNotFound) {
		t.Error("detailed copy should still match the sentinel")
	}
	if !IsNotFound(detailed) {
		t.Error("detailed copy should keep its kind")
	}
}

// TestNewValidationError tests validation error wrapping
func TestNewValidationError(t *testing.T) {
	cause := errors.New("SubscriberID is required")
	err := NewValidationError(cause)

	if !IsValidation(err) {
		t.Error("expected validation kind")
	}
	if !errors.Is(err, cause) {
		t.Error("validation error should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "SubscriberID is required") {
		t.Errorf("error message %q should contain the cause", err.Error())
	}
}

// TestHelpers_NonDomainErrors tests helpers on plain errors
func TestHelpers_NonDomainErrors(t *testing.T) {
	plain := errors.New("connection refused")

	if GetErrorCode(plain) != "" {
		t.Error("plain errors have no code")
	}
	if IsNotFound(plain) || IsDomain(plain) || IsValidation(plain) {
		t.Error("plain errors must not be classified")
	}
	if HasCode(nil, ErrorCodeSubscriptionActived) {
		t.Error("nil error has no code")
	}
}
