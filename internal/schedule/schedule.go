// Package schedule splits a debt amount into dated installments.
package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

// Slot is one generated installment before it is persisted.
type Slot struct {
	Amount  decimal.Decimal
	DueDate time.Time
}

// Generate returns the installment plan for a debt. Inputs are trusted:
// the caller has already validated a positive amount and a future deadline.
//
// Periodic plans step from reference by whole intervals, keep every date on
// or before the deadline and always end exactly on the deadline. The last
// slot absorbs the rounding remainder so the slots sum to amount.
func Generate(amount decimal.Decimal, deadline time.Time, kind domain.InstallmentType, reference time.Time) []Slot {
	deadline = domain.DateOf(deadline)
	reference = domain.DateOf(reference)

	switch kind {
	case domain.InstallmentLumpSum:
		return []Slot{{Amount: amount, DueDate: deadline}}
	case domain.InstallmentCustomSplit:
		return nil
	case domain.InstallmentMonthly:
		return split(amount, dueDates(reference, deadline, monthsStep(1)))
	case domain.InstallmentBiWeekly:
		return split(amount, dueDates(reference, deadline, daysStep(14)))
	case domain.InstallmentQuarterly:
		return split(amount, dueDates(reference, deadline, monthsStep(3)))
	case domain.InstallmentYearly:
		return split(amount, dueDates(reference, deadline, monthsStep(12)))
	}
	return nil
}

// step returns the n-th date after the reference.
type step func(reference time.Time, n int) time.Time

func daysStep(days int) step {
	return func(reference time.Time, n int) time.Time {
		return reference.AddDate(0, 0, days*n)
	}
}

func monthsStep(months int) step {
	return func(reference time.Time, n int) time.Time {
		return addMonthsClamped(reference, months*n)
	}
}

func dueDates(reference, deadline time.Time, next step) []time.Time {
	var dates []time.Time
	for n := 1; ; n++ {
		d := next(reference, n)
		if d.After(deadline) {
			break
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 || !dates[len(dates)-1].Equal(deadline) {
		dates = append(dates, deadline)
	}
	return dates
}

func split(amount decimal.Decimal, dates []time.Time) []Slot {
	n := int64(len(dates))
	base := amount.Div(decimal.NewFromInt(n)).RoundFloor(domain.MoneyScale)
	if base.IsZero() {
		// fewer cents than dates: one slot on the deadline instead of 0.00 slots
		return []Slot{{Amount: amount, DueDate: dates[len(dates)-1]}}
	}
	last := amount.Sub(base.Mul(decimal.NewFromInt(n - 1)))

	slots := make([]Slot, 0, len(dates))
	for i, d := range dates {
		share := base
		if i == len(dates)-1 {
			share = last
		}
		slots = append(slots, Slot{Amount: share, DueDate: d})
	}
	return slots
}

// addMonthsClamped adds months keeping the day of month, clamped to the last
// day of the target month (Jan 31 + 1 month = Feb 28/29).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}
