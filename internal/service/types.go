package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

// UserRef identifies a registered user either by id or by personal code.
type UserRef struct {
	ID   string
	Code string
}

// IsZero reports whether neither id nor code is set.
func (r UserRef) IsZero() bool {
	return r.ID == "" && r.Code == ""
}

// CreateDebtInput is the inbound payload for recording a debt.
type CreateDebtInput struct {
	CreatorID        string
	Mode             domain.Mode
	CreatorRole      domain.Role
	Counterparty     UserRef
	CounterpartyName string
	Amount           decimal.Decimal
	Currency         string
	Deadline         time.Time
	Description      string
	InstallmentType  domain.InstallmentType
	Witnesses        []UserRef
}

// SubmitPaymentInput is the inbound payload for asserting a payment.
type SubmitPaymentInput struct {
	DebtID        string
	SubmitterID   string
	InstallmentID string
	Amount        decimal.Decimal
	Description   string
}

// ListDebtsParams defines filters for listing a user's debts.
type ListDebtsParams struct {
	UserID string
	Status domain.DebtStatus
	Role   domain.Role
	Limit  int
}

// DebtDetails is the canonical view of a debt returned after every action.
type DebtDetails struct {
	Debt         domain.Debt
	Installments []domain.Installment
	Payments     []domain.Payment
	Witnesses    []domain.Witness
	Paid         decimal.Decimal
	Remaining    decimal.Decimal
}

// NewValidationError builds a ValidationError from field problems found
// outside the service, such as malformed request values.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}
