package domain

import (
	"math"
	"testing"
	"time"
)

func TestSavingsPercentage(t *testing.T) {
	cases := []struct {
		name     string
		average  float64
		current  float64
		expected float64
	}{
		{"scenario a", 800, 450, 43.8},
		{"no savings", 300, 300, 0},
		{"premium", 200, 250, -25},
		{"thirds", 300, 200, 33.3},
		{"zero average", 0, 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SavingsPercentage(tc.average, tc.current)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Fatalf("期望 %.2f，实际 %.4f", tc.expected, got)
			}
		})
	}
}

func TestPerfectDayDateClampsToMonthEnd(t *testing.T) {
	e := SeasonalRateEntry{Month: time.February, PerfectDay: 31}
	got := e.PerfectDayDate(2027, time.UTC)
	if got.Day() != 28 || got.Month() != time.February {
		t.Fatalf("应截断到 2 月 28 日，实际 %s", got.Format("2006-01-02"))
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 10, 16, 22, 0, 0, 0, time.UTC)
	b := time.Date(2026, 10, 23, 1, 0, 0, 0, time.UTC)
	if d := DaysBetween(a, b); d != 7 {
		t.Fatalf("期望相差 7 天，实际 %d", d)
	}
	if d := DaysBetween(b, a); d != -7 {
		t.Fatalf("期望相差 -7 天，实际 %d", d)
	}
}

func TestPriceRangeMidpoint(t *testing.T) {
	r := PriceRange{Min: 200, Max: 400, Currency: "EUR"}
	if r.Midpoint() != 300 {
		t.Fatalf("中点应为 300，实际 %.2f", r.Midpoint())
	}
}
