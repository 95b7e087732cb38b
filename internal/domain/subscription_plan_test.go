package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestPlan(recurrence RecurrenceType, next *time.Time) *SubscriptionPlan {
	return &SubscriptionPlan{
		ID:              "plan-1",
		TenantID:        "tenant-1",
		Amount:          decimal.RequireFromString("49.90"),
		Currency:        DefaultCurrency,
		RecurrenceType:  recurrence,
		NextBillingDate: next,
	}
}

// TestRecurrenceType_Advance tests one-period offsets for every cadence
func TestRecurrenceType_Advance(t *testing.T) {
	tests := []struct {
		name       string
		recurrence RecurrenceType
		from       time.Time
		expected   time.Time
	}{
		{"daily", RecurrenceDaily, date(2025, 12, 31), date(2026, 1, 1)},
		{"weekly", RecurrenceWeekly, date(2025, 2, 25), date(2025, 3, 4)},
		{"biweekly", RecurrenceBiWeekly, date(2025, 1, 1), date(2025, 1, 15)},
		{"monthly same day", RecurrenceMonthly, date(2025, 3, 15), date(2025, 4, 15)},
		{"monthly across year", RecurrenceMonthly, date(2025, 12, 10), date(2026, 1, 10)},
		{"monthly clamps to end of february", RecurrenceMonthly, date(2025, 1, 31), date(2025, 2, 28)},
		{"monthly clamps in leap year", RecurrenceMonthly, date(2024, 1, 31), date(2024, 2, 29)},
		{"monthly clamps to 30 day month", RecurrenceMonthly, date(2025, 3, 31), date(2025, 4, 30)},
		{"quarterly", RecurrenceQuarterly, date(2025, 11, 30), date(2026, 2, 28)},
		{"semiannually", RecurrenceSemiannually, date(2025, 8, 31), date(2026, 2, 28)},
		{"annually same day", RecurrenceAnnually, date(2025, 6, 1), date(2026, 6, 1)},
		{"annually from leap day", RecurrenceAnnually, date(2024, 2, 29), date(2025, 2, 28)},
		{"time of day is dropped", RecurrenceDaily, time.Date(2025, 5, 5, 18, 45, 0, 0, time.UTC), date(2025, 5, 6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.recurrence.Advance(tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.True(t, got.After(tt.from), "advance must move strictly forward")
		})
	}
}

// TestRecurrenceType_Advance_Invalid tests unknown cadences
func TestRecurrenceType_Advance_Invalid(t *testing.T) {
	_, err := RecurrenceType("fortnightly-ish").Advance(date(2025, 1, 1))

	require.Error(t, err)
	assert.True(t, HasCode(err, ErrorCodeInvalidRecurrenceType))
	assert.False(t, RecurrenceType("").IsValid())
}

// TestSubscriptionPlan_UpdateNextBillingDate tests billing date progression
func TestSubscriptionPlan_UpdateNextBillingDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	t.Run("advances from existing billing date", func(t *testing.T) {
		current := date(2025, 6, 15)
		plan := newTestPlan(RecurrenceMonthly, &current)

		require.NoError(t, plan.UpdateNextBillingDate(now))

		require.NotNil(t, plan.NextBillingDate)
		assert.Equal(t, date(2025, 7, 15), *plan.NextBillingDate)
		assert.Equal(t, now, plan.UpdatedAt)
	})

	t.Run("advances from now when unset", func(t *testing.T) {
		plan := newTestPlan(RecurrenceAnnually, nil)

		require.NoError(t, plan.UpdateNextBillingDate(now))

		require.NotNil(t, plan.NextBillingDate)
		assert.Equal(t, date(2026, 6, 15), *plan.NextBillingDate)
		assert.True(t, plan.NextBillingDate.After(now))
	})

	t.Run("stale billing date still moves one period", func(t *testing.T) {
		stale := date(2025, 1, 10)
		plan := newTestPlan(RecurrenceWeekly, &stale)

		require.NoError(t, plan.UpdateNextBillingDate(now))

		assert.Equal(t, date(2025, 1, 17), *plan.NextBillingDate)
	})

	t.Run("invalid recurrence leaves plan unchanged", func(t *testing.T) {
		current := date(2025, 6, 15)
		plan := newTestPlan(RecurrenceType("hourly"), &current)

		err := plan.UpdateNextBillingDate(now)

		assert.True(t, HasCode(err, ErrorCodeInvalidRecurrenceType))
		assert.Equal(t, date(2025, 6, 15), *plan.NextBillingDate)
		assert.True(t, plan.UpdatedAt.IsZero())
	})
}

// TestSubscriptionPlan_UpdateNextBillingDate_Monotonic tests repeated advances only move forward
func TestSubscriptionPlan_UpdateNextBillingDate_Monotonic(t *testing.T) {
	recurrences := []RecurrenceType{
		RecurrenceDaily, RecurrenceWeekly, RecurrenceBiWeekly, RecurrenceMonthly,
		RecurrenceQuarterly, RecurrenceSemiannually, RecurrenceAnnually,
	}

	for _, recurrence := range recurrences {
		t.Run(string(recurrence), func(t *testing.T) {
			start := date(2024, 1, 31)
			plan := newTestPlan(recurrence, &start)

			previous := start
			for i := 0; i < 24; i++ {
				require.NoError(t, plan.UpdateNextBillingDate(previous))

				expected, err := recurrence.Advance(previous)
				require.NoError(t, err)
				assert.Equal(t, expected, *plan.NextBillingDate)
				assert.True(t, plan.NextBillingDate.After(previous))
				previous = *plan.NextBillingDate
			}
		})
	}
}

// TestNewSubscriptionPlan tests plan construction and validation
func TestNewSubscriptionPlan(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("valid plan", func(t *testing.T) {
		plan, err := NewSubscriptionPlan("tenant-1", decimal.NewFromInt(10), "", RecurrenceMonthly,
			[]string{"item-b", "item-a", "item-b"}, nil, now)

		require.NoError(t, err)
		assert.NotEmpty(t, plan.ID)
		assert.Equal(t, DefaultCurrency, plan.Currency)
		assert.ElementsMatch(t, []string{"item-a", "item-b"}, plan.Items)
		assert.True(t, plan.HasItem("item-a"))
		assert.False(t, plan.HasItem("item-c"))
		assert.Nil(t, plan.NextBillingDate)
	})

	t.Run("zero amount", func(t *testing.T) {
		_, err := NewSubscriptionPlan("tenant-1", decimal.Zero, "USD", RecurrenceMonthly, nil, nil, now)
		assert.True(t, HasCode(err, ErrorCodeInvalidAmount))
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := NewSubscriptionPlan("tenant-1", decimal.NewFromInt(-5), "USD", RecurrenceMonthly, nil, nil, now)
		assert.True(t, HasCode(err, ErrorCodeInvalidAmount))
	})

	t.Run("unknown recurrence", func(t *testing.T) {
		_, err := NewSubscriptionPlan("tenant-1", decimal.NewFromInt(5), "USD", "hourly", nil, nil, now)
		assert.True(t, HasCode(err, ErrorCodeInvalidRecurrenceType))
	})
}

// TestSubscriptionPlan_IsDueOn tests date equality ignoring time of day
func TestSubscriptionPlan_IsDueOn(t *testing.T) {
	due := date(2025, 6, 15)
	plan := newTestPlan(RecurrenceMonthly, &due)

	assert.True(t, plan.IsDueOn(time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)))
	assert.False(t, plan.IsDueOn(date(2025, 6, 16)))
	assert.False(t, plan.IsDueOn(date(2025, 7, 15)))
	assert.False(t, newTestPlan(RecurrenceMonthly, nil).IsDueOn(due))
}
