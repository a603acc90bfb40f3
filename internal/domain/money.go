package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places every amount carries.
const MoneyScale = 2

// MaxAmount is the largest amount the ledger stores (NUMERIC(14,2)).
var MaxAmount = decimal.RequireFromString("999999999999.99")

// HasMoneyScale reports whether amount has at most two decimal places.
func HasMoneyScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(MoneyScale))
}

// FormatMoney renders an amount with exactly two decimals.
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(MoneyScale)
}

// DateOf truncates t to its calendar date in t's location, returned as
// midnight UTC so dates compare and persist without zone drift.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"
