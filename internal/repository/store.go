package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// Store runs units of work against the ledger tables. Every unit is one
// atomic transaction: if fn returns an error nothing it wrote is kept.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx is the set of operations available inside a unit of work.
//
// Lock* methods take a row-level exclusive lock held until the unit ends.
// Callers must lock in the order debt, payment, installment.
type Tx interface {
	InsertUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByCode(ctx context.Context, code string) (domain.User, error)

	InsertDebt(ctx context.Context, d domain.Debt) error
	GetDebt(ctx context.Context, id string) (domain.Debt, error)
	LockDebt(ctx context.Context, id string) (domain.Debt, error)
	UpdateDebt(ctx context.Context, d domain.Debt) error
	DeleteDebt(ctx context.Context, id string) error
	ListDebts(ctx context.Context, opts ListDebtsOptions) ([]domain.Debt, error)
	ScanDebts(ctx context.Context, opts ScanDebtsOptions) ([]domain.Debt, error)

	InsertInstallments(ctx context.Context, items []domain.Installment) error
	ListInstallments(ctx context.Context, debtID string) ([]domain.Installment, error)
	LockInstallment(ctx context.Context, id string) (domain.Installment, error)
	UpdateInstallmentStatus(ctx context.Context, id string, status domain.InstallmentStatus, at time.Time) error
	ListDueInstallments(ctx context.Context, opts DueInstallmentsOptions) ([]DueInstallment, error)
	MarkInstallmentOverdue(ctx context.Context, id string, at time.Time) (bool, error)
	TouchInstallmentReminder(ctx context.Context, id string, at time.Time) error

	InsertPayment(ctx context.Context, p domain.Payment) error
	GetPayment(ctx context.Context, id string) (domain.Payment, error)
	LockPayment(ctx context.Context, id string) (domain.Payment, error)
	UpdatePayment(ctx context.Context, p domain.Payment) error
	ListPayments(ctx context.Context, debtID string) ([]domain.Payment, error)
	ListInstallmentPayments(ctx context.Context, installmentID string) ([]domain.Payment, error)
	SumApprovedPayments(ctx context.Context, debtID string) (decimal.Decimal, error)

	InsertWitness(ctx context.Context, w domain.Witness) error
	ListWitnesses(ctx context.Context, debtID string) ([]domain.Witness, error)
	GetWitness(ctx context.Context, debtID, userID string) (domain.Witness, error)
	UpdateWitness(ctx context.Context, w domain.Witness) error

	InsertNotification(ctx context.Context, n domain.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) (bool, error)
}

// ListDebtsOptions filters the debts visible to a user.
type ListDebtsOptions struct {
	UserID string
	Status domain.DebtStatus
	Role   domain.Role
	Limit  int
}

// ScanDebtsOptions pages through all debts by id, independent of who can
// see them. Empty Mode or Status match everything.
type ScanDebtsOptions struct {
	Mode    domain.Mode
	Status  domain.DebtStatus
	AfterID string
	Limit   int
}

// DueInstallmentsOptions selects installments of active debts for the
// maintenance passes. Results are ordered by installment id; AfterID resumes
// after the last id of the previous page.
type DueInstallmentsOptions struct {
	Status    domain.InstallmentStatus
	DueBefore *time.Time
	DueOn     *time.Time
	AfterID   string
	Limit     int
}

// DueInstallment pairs an installment with the debt fields the maintenance
// passes need.
type DueInstallment struct {
	Installment domain.Installment
	Debt        domain.Debt
}

func normalizeLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
