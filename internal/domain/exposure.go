package domain

import "github.com/shopspring/decimal"

// Exposure is a user's outstanding position across their active shared
// debts, grouped per currency and per counterparty.
type Exposure struct {
	UserID         string
	Currencies     []CurrencyExposure
	Counterparties []CounterpartyExposure
}

// CurrencyExposure totals what the user owes and is owed in one currency.
type CurrencyExposure struct {
	Currency string
	Owes     decimal.Decimal
	Owed     decimal.Decimal
	Net      decimal.Decimal
}

// CounterpartyExposure is the position against one other user.
type CounterpartyExposure struct {
	UserID   string
	Currency string
	Owes     decimal.Decimal
	Owed     decimal.Decimal
	Net      decimal.Decimal
}
