package timeutil

import (
	"testing"
	"time"
)

func TestNow_AlwaysUTC(t *testing.T) {
	now := Now()

	if now.Location() != time.UTC {
		t.Errorf("Now() returned non-UTC timezone: %v", now.Location())
	}
}

func TestStartOfDay(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{
			name:     "midnight UTC",
			input:    time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC),
			expected: "2025-11-20 00:00:00 +0000 UTC",
		},
		{
			name:     "noon UTC",
			input:    time.Date(2025, 11, 20, 12, 30, 45, 0, time.UTC),
			expected: "2025-11-20 00:00:00 +0000 UTC",
		},
		{
			name:     "non-UTC input is normalized first",
			input:    time.Date(2025, 11, 20, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*3600)),
			expected: "2025-11-21 00:00:00 +0000 UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StartOfDay(tt.input)

			if result.String() != tt.expected {
				t.Errorf("StartOfDay() = %v, want %v", result, tt.expected)
			}

			if result.Location() != time.UTC {
				t.Errorf("StartOfDay() returned non-UTC: %v", result.Location())
			}
		})
	}
}

func TestSameDate(t *testing.T) {
	base := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		other    time.Time
		expected bool
	}{
		{"same instant", base, true},
		{"later the same day", base.Add(23*time.Hour + 59*time.Minute), true},
		{"next day", base.AddDate(0, 0, 1), false},
		{"same day previous month", base.AddDate(0, -1, 0), false},
		{"same day previous year", base.AddDate(-1, 0, 0), false},
		{"offset zone on the same UTC day", time.Date(2025, 3, 14, 20, 0, 0, 0, time.FixedZone("UTC-5", -5*3600)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameDate(base, tt.other); got != tt.expected {
				t.Errorf("SameDate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2006-01-02", "2025-02-28")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if !got.Equal(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDate() = %v", got)
	}

	if _, err := ParseDate("2006-01-02", "28/02/2025"); err == nil {
		t.Error("ParseDate() expected error for malformed input")
	}
}

func TestToUTC(t *testing.T) {
	// Create time in EST (UTC-5)
	est := time.FixedZone("EST", -5*3600)
	estTime := time.Date(2025, 11, 20, 12, 0, 0, 0, est)

	utcTime := ToUTC(estTime)

	if utcTime.Location() != time.UTC {
		t.Errorf("ToUTC() returned non-UTC: %v", utcTime.Location())
	}

	// EST noon = UTC 17:00
	if utcTime.Hour() != 17 {
		t.Errorf("ToUTC() hour = %d, want 17", utcTime.Hour())
	}
}
