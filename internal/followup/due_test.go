package followup

import (
	"testing"
	"time"
)

func TestIsDue_Boundary(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"直後", t0, false},
		{"4日23時間59分後", t0.Add(4*24*time.Hour + 23*time.Hour + 59*time.Minute), false},
		{"境界の1ナノ秒前", t0.Add(5*24*time.Hour - time.Nanosecond), false},
		{"ちょうど5日後", t0.Add(5 * 24 * time.Hour), true},
		{"10日後も期日到来のまま", t0.Add(10 * 24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDue(t0, 5, tt.now); got != tt.want {
				t.Errorf("IsDue(t0, 5, %v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestIsDue_NormalizesOffsets(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	applied := time.Date(2026, 3, 1, 15, 0, 0, 0, ist) // 09:30 UTC
	now := time.Date(2026, 3, 6, 9, 30, 0, 0, time.UTC)

	if !IsDue(applied, 5, now) {
		t.Error("expected due at exactly 5 days after the same absolute instant")
	}
	if IsDue(applied, 5, now.Add(-time.Second)) {
		t.Error("expected not due one second before the boundary")
	}
}

func TestIsDue_PerEntryDelay(t *testing.T) {
	applied := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	now := applied.Add(3 * 24 * time.Hour)

	if !IsDue(applied, 1, now) {
		t.Error("1-day delay should be due after 3 days")
	}
	if !IsDue(applied, 3, now) {
		t.Error("3-day delay should be due after exactly 3 days")
	}
	if IsDue(applied, 7, now) {
		t.Error("7-day delay should not be due after 3 days")
	}
}

func TestParseStoredTime_NaiveIsUTC(t *testing.T) {
	got, err := ParseStoredTime("2026-03-01T09:30:00.123456")
	if err != nil {
		t.Fatalf("ParseStoredTime returned error: %v", err)
	}

	want := time.Date(2026, 3, 1, 9, 30, 0, 123456000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseStoredTime = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
}

func TestParseStoredTime_WithOffset(t *testing.T) {
	got, err := ParseStoredTime("2026-03-01T15:00:00+05:30")
	if err != nil {
		t.Fatalf("ParseStoredTime returned error: %v", err)
	}

	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseStoredTime = %v, want %v", got, want)
	}
}

func TestParseStoredTime_RoundTripsFormat(t *testing.T) {
	in := time.Date(2026, 5, 2, 1, 2, 3, 4, time.FixedZone("X", -4*3600))

	got, err := ParseStoredTime(FormatStoredTime(in))
	if err != nil {
		t.Fatalf("ParseStoredTime returned error: %v", err)
	}
	if !got.Equal(in) {
		t.Errorf("round trip = %v, want %v", got, in)
	}
}

func TestParseStoredTime_Invalid(t *testing.T) {
	if _, err := ParseStoredTime("yesterday"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestFormatStoredTime_SortsLexicographically(t *testing.T) {
	earlier := time.Date(2026, 5, 2, 1, 2, 3, 500_000_000, time.UTC)
	later := time.Date(2026, 5, 2, 1, 2, 3, 510_000_000, time.UTC)

	a, b := FormatStoredTime(earlier), FormatStoredTime(later)
	if len(a) != len(b) {
		t.Fatalf("formatted lengths differ: %q vs %q", a, b)
	}
	if a >= b {
		t.Errorf("FormatStoredTime(earlier) = %q should sort before %q", a, b)
	}
}
