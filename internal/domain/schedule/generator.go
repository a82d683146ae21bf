package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loan-slip-reconciler/internal/domain/money"
)

// InvalidTermError rejects a non-positive term
type InvalidTermError struct {
	TermMonths int
}

func (e InvalidTermError) Error() string {
	return fmt.Sprintf("term must be at least one month, got %d", e.TermMonths)
}

// InvalidPrincipalError rejects a principal or rate that cannot produce a schedule
type InvalidPrincipalError struct {
	Principal decimal.Decimal
	Rate      decimal.Decimal
	Reason    string
}

func (e InvalidPrincipalError) Error() string {
	return fmt.Sprintf("invalid principal %s at rate %s: %s", e.Principal, e.Rate, e.Reason)
}

// Generate builds the simple-interest schedule for a monthly rate. See GenerateForRate.
//
// Generate is pure: the entries carry no ids and are not bound to a contract.
func Generate(principal, monthlyRate decimal.Decimal, termMonths int, startDate time.Time) ([]*Entry, error) {
	return GenerateForRate(principal, MonthlyRate(monthlyRate), termMonths, startDate)
}

// GenerateForRate builds the simple-interest schedule for a contract.
//
// Total interest is principal * rate * termMonths over the rate's period, kept exact
// when the period divides it and carried to 16 places otherwise. Every installment
// but the last carries the principal and interest shares floored to the minor unit;
// the last installment absorbs both remainders so the components sum back to the
// principal and the total interest exactly. Installment i falls due i calendar months
// after startDate, clamped to the end of short months.
func GenerateForRate(principal decimal.Decimal, rate Rate, termMonths int, startDate time.Time) ([]*Entry, error) {
	invalid := func(reason string) error {
		return InvalidPrincipalError{Principal: principal, Rate: rate.Value, Reason: reason}
	}
	if termMonths <= 0 {
		return nil, InvalidTermError{TermMonths: termMonths}
	}
	if !principal.IsPositive() {
		return nil, invalid("principal must be positive")
	}
	if rate.Value.IsNegative() {
		return nil, invalid("rate must not be negative")
	}
	if !rate.Value.Equal(rate.Value.Truncate(MaxRateScale)) {
		return nil, invalid(fmt.Sprintf("rate has more than %d decimal places", MaxRateScale))
	}
	if rate.PeriodMonths < 1 {
		return nil, invalid("rate period must be at least one month")
	}
	if !money.IsMinorUnitExact(principal) {
		return nil, invalid("principal has sub-minor-unit digits")
	}

	n := decimal.NewFromInt(int64(termMonths))
	totalInterest := rate.TotalInterest(principal, termMonths)

	principalShare := money.Floor(principal.Div(n))
	interestShare := money.Floor(totalInterest.Div(n))

	head := decimal.NewFromInt(int64(termMonths - 1))
	lastPrincipal := principal.Sub(principalShare.Mul(head))
	lastInterest := totalInterest.Sub(interestShare.Mul(head))

	entries := make([]*Entry, 0, termMonths)
	for i := 1; i <= termMonths; i++ {
		p, in := principalShare, interestShare
		if i == termMonths {
			p, in = lastPrincipal, lastInterest
		}
		entries = append(entries, &Entry{
			Sequence:   i,
			DueDate:    money.AddMonthsClamped(startDate, i),
			Principal:  p,
			Interest:   in,
			TotalDue:   p.Add(in),
			Status:     StatusPending,
			PaidAmount: decimal.Zero,
			Version:    1,
		})
	}

	return entries, nil
}

// Assign binds generated entries to a contract and gives them identities
func Assign(contractID uuid.UUID, entries []*Entry, now time.Time) {
	for _, e := range entries {
		e.ID = uuid.New()
		e.ContractID = contractID
		e.CreatedAt = now
		e.UpdatedAt = now
	}
}
