package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/billing-service/pkg/timeutil"
)

// SubscriptionStatus represents the subscription state
type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPaused   SubscriptionStatus = "paused"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusFinished SubscriptionStatus = "finished"
)

// IsValid reports whether s is one of the known statuses
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusActive, SubscriptionStatusPaused,
		SubscriptionStatusCanceled, SubscriptionStatusFinished:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCanceled || s == SubscriptionStatusFinished
}

// Subscription links a subscriber to a plan within a tenant.
// StartedAt is set on first activation and never cleared.
type Subscription struct {
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	StartedAt          *time.Time         `json:"started_at"`
	CanceledAt         *time.Time         `json:"canceled_at"`
	ID                 string             `json:"id"`
	Status             SubscriptionStatus `json:"status"`
	SubscriberID       string             `json:"subscriber_id"`
	SubscriptionPlanID string             `json:"subscription_plan_id"`
	TenantID           string             `json:"tenant_id"`
}

// NewSubscription creates a PENDING subscription with a fresh id
func NewSubscription(subscriberID, planID, tenantID string, now time.Time) *Subscription {
	now = timeutil.ToUTC(now)
	return &Subscription{
		ID:                 uuid.New().String(),
		Status:             SubscriptionStatusPending,
		SubscriberID:       subscriberID,
		SubscriptionPlanID: planID,
		TenantID:           tenantID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// IsActive returns true if the subscription is currently active
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// HasStarted returns true once the subscription has been activated at least once
func (s *Subscription) HasStarted() bool {
	return s.StartedAt != nil
}

// Activate moves a PENDING or PAUSED subscription to ACTIVE
func (s *Subscription) Activate(now time.Time) error {
	switch s.Status {
	case SubscriptionStatusPending, SubscriptionStatusPaused:
	case SubscriptionStatusActive:
		return ErrSubscriptionActived
	default:
		return s.terminalError()
	}

	now = timeutil.ToUTC(now)
	s.Status = SubscriptionStatusActive
	if s.StartedAt == nil {
		s.StartedAt = &now
	}
	s.UpdatedAt = now
	return nil
}

// Pause moves an ACTIVE subscription to PAUSED
func (s *Subscription) Pause(now time.Time) error {
	switch s.Status {
	case SubscriptionStatusActive:
	case SubscriptionStatusPaused:
		return ErrSubscriptionPaused
	case SubscriptionStatusPending:
		return ErrSubscriptionPending
	default:
		return s.terminalError()
	}

	s.Status = SubscriptionStatusPaused
	s.UpdatedAt = timeutil.ToUTC(now)
	return nil
}

// Cancel moves any non-terminal subscription to CANCELED
func (s *Subscription) Cancel(now time.Time) error {
	if s.Status.IsTerminal() {
		return s.terminalError()
	}

	now = timeutil.ToUTC(now)
	s.Status = SubscriptionStatusCanceled
	s.CanceledAt = &now
	s.UpdatedAt = now
	return nil
}

// Finish completes an ACTIVE subscription
func (s *Subscription) Finish(now time.Time) error {
	switch s.Status {
	case SubscriptionStatusActive:
	case SubscriptionStatusPending:
		return ErrSubscriptionPending
	case SubscriptionStatusPaused:
		return ErrSubscriptionPaused
	default:
		return s.terminalError()
	}

	s.Status = SubscriptionStatusFinished
	s.UpdatedAt = timeutil.ToUTC(now)
	return nil
}

func (s *Subscription) terminalError() error {
	if s.Status == SubscriptionStatusFinished {
		return ErrSubscriptionFinished
	}
	return ErrSubscriptionCanceled
}
