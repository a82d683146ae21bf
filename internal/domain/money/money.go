// Package money holds the exact decimal and civil-date helpers shared by schedule
// generation, aging and slip matching. Amounts are shopspring decimals carried at the
// currency's minor unit; dates are calendar days normalised to UTC midnight.
package money

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MinorUnitPlaces is the number of decimal places of the single supported currency
const MinorUnitPlaces = 2

// DateLayout is the wire format of civil dates
const DateLayout = "2006-01-02"

// Floor truncates an amount toward negative infinity at the minor unit
func Floor(d decimal.Decimal) decimal.Decimal {
	return d.RoundFloor(MinorUnitPlaces)
}

// IsMinorUnitExact reports whether d has no digits below the minor unit
func IsMinorUnitExact(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MinorUnitPlaces))
}

// Sum adds amounts exactly
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Parse reads a decimal amount from its string form
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// Format renders an amount with two decimals. Amounts carrying sub-minor digits are
// rendered in full so that nothing is lost at the boundary.
func Format(d decimal.Decimal) string {
	if IsMinorUnitExact(d) {
		return d.StringFixed(2)
	}
	return d.String()
}

// DateOnly returns the civil date of t (in t's own location) as UTC midnight
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD civil date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// AddMonthsClamped adds calendar months to a civil date. When the start day does not
// exist in the target month the result is clamped to that month's last day, so
// Jan 31 + 1 month is Feb 28 (or Feb 29 in a leap year).
func AddMonthsClamped(start time.Time, months int) time.Time {
	start = DateOnly(start)
	y, m, d := start.Date()

	// Day 1 never overflows, so this lands in the target month
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysInMonth(firstOfTarget); d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in t's month
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysBetween returns the signed number of calendar days from one civil date to another
func DaysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}

// AbsDaysBetween is the unsigned distance in calendar days
func AbsDaysBetween(a, b time.Time) int {
	days := DaysBetween(a, b)
	if days < 0 {
		return -days
	}
	return days
}
