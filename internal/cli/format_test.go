package cli

import (
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"negative", -time.Minute, "expired"},
		{"seconds", 30 * time.Second, "< 1 minute"},
		{"one minute", 90 * time.Second, "1 minute"},
		{"minutes", 5 * time.Minute, "5 minutes"},
		{"one hour", time.Hour, "1 hour"},
		{"hours", 3 * time.Hour, "3 hours"},
		{"one day", 24 * time.Hour, "1 day"},
		{"days", 72 * time.Hour, "3 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFormatExpiry(t *testing.T) {
	t.Run("future expiry", func(t *testing.T) {
		got := FormatExpiry(time.Now().Add(2 * time.Hour))
		if !strings.HasPrefix(got, "in ") {
			t.Errorf("FormatExpiry() = %q, want an 'in X' rendering", got)
		}
	})

	t.Run("past expiry", func(t *testing.T) {
		got := FormatExpiry(time.Now().Add(-2 * time.Hour))
		if !strings.Contains(got, "expired") || !strings.Contains(got, "ago") {
			t.Errorf("FormatExpiry() = %q, want an 'expired X ago' rendering", got)
		}
	})
}

func TestTimeAgo(t *testing.T) {
	if got := TimeAgo(time.Time{}); got != "" {
		t.Errorf("TimeAgo(zero) = %q, want empty", got)
	}
	if got := TimeAgo(time.Now().Add(-10 * time.Second)); got != "just now" {
		t.Errorf("TimeAgo(just now) = %q", got)
	}
	if got := TimeAgo(time.Now().Add(-2 * time.Hour)); got != "2 hours ago" {
		t.Errorf("TimeAgo(2h) = %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		value string
		zero  bool
	}{
		{"RFC3339 with zone", "2025-03-14T09:26:53Z", false},
		{"fractional seconds", "2025-03-14T09:26:53.589Z", false},
		{"naive datetime", "2025-03-14T09:26:53", false},
		{"date only", "2025-03-14", false},
		{"garbage", "yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.value)
			if got.IsZero() != tt.zero {
				t.Errorf("ParseTimestamp(%q).IsZero() = %v, want %v", tt.value, got.IsZero(), tt.zero)
			}
		})
	}
}
