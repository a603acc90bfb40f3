package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

// deriveInstallmentStatus computes an installment's status from its payments.
// today must be a calendar date as produced by domain.DateOf.
func deriveInstallmentStatus(inst domain.Installment, payments []domain.Payment, today time.Time) domain.InstallmentStatus {
	approved := decimal.Zero
	pending := false
	for _, p := range payments {
		switch p.Status {
		case domain.PaymentApproved:
			approved = approved.Add(p.Amount)
		case domain.PaymentPending:
			pending = true
		case domain.PaymentRejected:
		}
	}

	switch {
	case approved.GreaterThanOrEqual(inst.Amount):
		return domain.InstallmentApproved
	case pending:
		return domain.InstallmentSubmitted
	case inst.DueDate.Before(today):
		return domain.InstallmentOverdue
	default:
		return domain.InstallmentUpcoming
	}
}

// syncInstallment locks the installment, recomputes its status and writes it
// only when it changed. The debt must already be locked.
func (s *LedgerService) syncInstallment(ctx context.Context, u *unit, installmentID string) (bool, error) {
	inst, err := u.tx.LockInstallment(ctx, installmentID)
	if err != nil {
		return false, lookupErr(err, "installment")
	}
	payments, err := u.tx.ListInstallmentPayments(ctx, inst.ID)
	if err != nil {
		return false, err
	}
	next := deriveInstallmentStatus(inst, payments, s.today())
	if next == inst.Status {
		return false, nil
	}
	if err := u.tx.UpdateInstallmentStatus(ctx, inst.ID, next, u.now); err != nil {
		return false, err
	}
	s.logger.Debug("installment status changed", "installment_id", inst.ID, "from", inst.Status, "to", next)
	return true, nil
}

// settleIfPaid settles the locked debt once approved payments cover its
// amount and returns the debt as it now stands.
func (s *LedgerService) settleIfPaid(ctx context.Context, u *unit, debt domain.Debt) (domain.Debt, error) {
	if debt.Status == domain.DebtSettled {
		return debt, nil
	}
	approved, err := u.tx.SumApprovedPayments(ctx, debt.ID)
	if err != nil {
		return debt, err
	}
	if debt.Remaining(approved).Sign() > 0 {
		return debt, nil
	}
	return s.settle(ctx, u, debt)
}

func (s *LedgerService) settle(ctx context.Context, u *unit, debt domain.Debt) (domain.Debt, error) {
	settledAt := u.now
	debt.Status = domain.DebtSettled
	debt.SettledAt = &settledAt
	debt.UpdatedAt = u.now
	if err := u.tx.UpdateDebt(ctx, debt); err != nil {
		return debt, err
	}

	installments, err := u.tx.ListInstallments(ctx, debt.ID)
	if err != nil {
		return debt, err
	}
	for _, inst := range installments {
		if inst.Status == domain.InstallmentApproved {
			continue
		}
		if err := u.tx.UpdateInstallmentStatus(ctx, inst.ID, domain.InstallmentApproved, u.now); err != nil {
			return debt, err
		}
	}

	recipients := []string{debt.LenderID}
	if debt.BorrowerID != "" && debt.BorrowerID != debt.LenderID {
		recipients = append(recipients, debt.BorrowerID)
	}
	for _, userID := range recipients {
		if err := u.notify(ctx, userID, domain.NotifyDebtSettled, debt, nil); err != nil {
			return debt, err
		}
	}
	s.logger.Info("debt settled", "debt_id", debt.ID)
	return debt, nil
}
