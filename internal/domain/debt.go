package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Debt is the aggregate root of the ledger. It owns its installments,
// payments and witnesses.
//
// For personal debts the creator is always stored as LenderID and
// CreatorRole carries the semantic side. Empty strings stand for NULL in
// BorrowerID, CounterpartyName and UpgradeRecipientID.
type Debt struct {
	ID                 string
	Mode               Mode
	CreatorRole        Role
	Status             DebtStatus
	LenderID           string
	BorrowerID         string
	CounterpartyName   string
	UpgradeRecipientID string
	Amount             decimal.Decimal
	Currency           string
	Deadline           time.Time
	Description        string
	InstallmentType    InstallmentType
	CreatedAt          time.Time
	UpdatedAt          time.Time
	SettledAt          *time.Time
}

// CreatorID derives the initiating user from mode and creator role.
func (d Debt) CreatorID() string {
	if d.Mode == ModePersonal {
		return d.LenderID
	}
	switch d.CreatorRole {
	case RoleLender:
		return d.LenderID
	case RoleBorrower:
		return d.BorrowerID
	}
	return ""
}

// ConfirmingPartyID is the mutual-debt party who did not create the debt.
// Personal debts have none.
func (d Debt) ConfirmingPartyID() string {
	if d.Mode != ModeMutual {
		return ""
	}
	switch d.CreatorRole {
	case RoleLender:
		return d.BorrowerID
	case RoleBorrower:
		return d.LenderID
	}
	return ""
}

// PayerID is the registered user who submits payments: the borrower of a
// mutual debt, the creator of a personal one.
func (d Debt) PayerID() string {
	if d.Mode == ModePersonal {
		return d.LenderID
	}
	return d.BorrowerID
}

// IsParty reports whether userID is lender or borrower.
func (d Debt) IsParty(userID string) bool {
	if userID == "" {
		return false
	}
	return d.LenderID == userID || d.BorrowerID == userID
}

// Remaining is the debt amount minus the approved total.
func (d Debt) Remaining(approved decimal.Decimal) decimal.Decimal {
	return d.Amount.Sub(approved)
}

// Installment is a scheduled slice of a debt's amount.
type Installment struct {
	ID             string
	DebtID         string
	Amount         decimal.Decimal
	DueDate        time.Time
	Status         InstallmentStatus
	Description    string
	LastRemindedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Payment is an assertion that money changed hands.
type Payment struct {
	ID              string
	DebtID          string
	InstallmentID   string
	SubmitterID     string
	Amount          decimal.Decimal
	Status          PaymentStatus
	Description     string
	RejectionReason string
	SubmittedAt     time.Time
	ReviewedAt      *time.Time
}

// Witness is a third party attesting to a debt's existence.
type Witness struct {
	ID          string
	DebtID      string
	UserID      string
	Status      WitnessStatus
	ConfirmedAt *time.Time
	CreatedAt   time.Time
}

// MaxWitnesses caps the number of witness records per debt.
const MaxWitnesses = 2
