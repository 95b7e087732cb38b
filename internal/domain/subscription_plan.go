package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/billing-service/pkg/timeutil"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// RecurrenceType defines the billing cadence of a plan
type RecurrenceType string

const (
	RecurrenceDaily        RecurrenceType = "daily"
	RecurrenceWeekly       RecurrenceType = "weekly"
	RecurrenceBiWeekly     RecurrenceType = "biweekly"
	RecurrenceMonthly      RecurrenceType = "monthly"
	RecurrenceQuarterly    RecurrenceType = "quarterly"
	RecurrenceSemiannually RecurrenceType = "semiannually"
	RecurrenceAnnually     RecurrenceType = "annually"
)

// DefaultCurrency is used when a plan does not name one
const DefaultCurrency = "USD"

// IsValid reports whether r is a known cadence
func (r RecurrenceType) IsValid() bool {
	_, ok := r.period()
	return ok
}

type period struct {
	years, months, days int
}

func (r RecurrenceType) period() (period, bool) {
	switch r {
	case RecurrenceDaily:
		return period{days: 1}, true
	case RecurrenceWeekly:
		return period{days: 7}, true
	case RecurrenceBiWeekly:
		return period{days: 14}, true
	case RecurrenceMonthly:
		return period{months: 1}, true
	case RecurrenceQuarterly:
		return period{months: 3}, true
	case RecurrenceSemiannually:
		return period{months: 6}, true
	case RecurrenceAnnually:
		return period{years: 1}, true
	}
	return period{}, false
}

// Advance returns date moved forward by exactly one period of r.
// Month and year steps clamp to the last day of the target month.
func (r RecurrenceType) Advance(date time.Time) (time.Time, error) {
	p, ok := r.period()
	if !ok {
		return time.Time{}, ErrInvalidRecurrenceType.WithDetail("recurrence_type", string(r))
	}

	date = timeutil.StartOfDay(date)
	if p.days > 0 {
		return date.AddDate(0, 0, p.days), nil
	}
	return addMonthsClamped(date, p.years*12+p.months), nil
}

func addMonthsClamped(date time.Time, months int) time.Time {
	year, month, day := date.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, time.UTC)
}

// SubscriptionPlan owns the recurring amount and the billing calendar
type SubscriptionPlan struct {
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	NextBillingDate *time.Time      `json:"next_billing_date"`
	TermURL         *string         `json:"term_url"`
	Amount          decimal.Decimal `json:"amount"`
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	Currency        string          `json:"currency"`
	RecurrenceType  RecurrenceType  `json:"recurrence_type"`
	Items           []string        `json:"items"`
}

// NewSubscriptionPlan validates the billing values and builds a plan without a billing date
func NewSubscriptionPlan(
	tenantID string,
	amount decimal.Decimal,
	currency string,
	recurrence RecurrenceType,
	items []string,
	termURL *string,
	now time.Time,
) (*SubscriptionPlan, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount.WithDetail("amount", amount.String())
	}
	if !recurrence.IsValid() {
		return nil, ErrInvalidRecurrenceType.WithDetail("recurrence_type", string(recurrence))
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	now = timeutil.ToUTC(now)
	return &SubscriptionPlan{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		Amount:         amount,
		Currency:       currency,
		RecurrenceType: recurrence,
		Items:          lo.Uniq(items),
		TermURL:        termURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// HasItem reports whether the catalog item is part of the plan
func (p *SubscriptionPlan) HasItem(itemID string) bool {
	return lo.Contains(p.Items, itemID)
}

// IsDueOn reports whether the plan bills on the calendar date of day
func (p *SubscriptionPlan) IsDueOn(day time.Time) bool {
	return p.NextBillingDate != nil && timeutil.SameDate(*p.NextBillingDate, day)
}

// UpdateNextBillingDate advances the billing date by one recurrence period.
// The base is the current billing date, or now when none is set yet.
// Must be called once per activation or renewal; an extra call skips a cycle.
func (p *SubscriptionPlan) UpdateNextBillingDate(now time.Time) error {
	base := now
	if p.NextBillingDate != nil {
		base = *p.NextBillingDate
	}

	next, err := p.RecurrenceType.Advance(base)
	if err != nil {
		return err
	}

	p.NextBillingDate = &next
	p.UpdatedAt = timeutil.ToUTC(now)
	return nil
}
