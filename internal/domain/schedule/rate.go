package schedule

import (
	"github.com/shopspring/decimal"
)

const (
	// MaxRateScale is the number of fractional digits a quoted rate may carry
	MaxRateScale = 10

	// interestScale bounds the fractional digits of a total interest that does not
	// divide exactly; schedule columns must hold at least this many
	interestScale = 16
)

// Rate is a simple-interest rate quoted per PeriodMonths months
type Rate struct {
	Value        decimal.Decimal
	PeriodMonths int
}

// MonthlyRate quotes v per month
func MonthlyRate(v decimal.Decimal) Rate {
	return Rate{Value: v, PeriodMonths: 1}
}

// AnnualRate quotes v per year
func AnnualRate(v decimal.Decimal) Rate {
	return Rate{Value: v, PeriodMonths: 12}
}

// TotalInterest returns principal * Value * termMonths / PeriodMonths. The period
// division happens once, after the multiplications, so a rate that divides evenly
// over its period yields the same total as the equivalent monthly rate.
func (r Rate) TotalInterest(principal decimal.Decimal, termMonths int) decimal.Decimal {
	total := principal.Mul(r.Value).Mul(decimal.NewFromInt(int64(termMonths)))
	if r.PeriodMonths <= 1 {
		return total
	}
	return total.DivRound(decimal.NewFromInt(int64(r.PeriodMonths)), interestScale)
}
