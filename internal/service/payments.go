package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/repository"
)

// SubmitPayment records a payment by the paying party. Payments on personal
// debts are approved at once; on mutual debts they wait for the lender.
// The remaining balance is re-read under the debt lock.
func (s *LedgerService) SubmitPayment(ctx context.Context, in SubmitPaymentInput) (domain.Payment, error) {
	in.Description = strings.TrimSpace(in.Description)
	var v validation
	switch {
	case in.Amount.Sign() <= 0:
		v.add("amount", "must be greater than 0")
	case !domain.HasMoneyScale(in.Amount):
		v.add("amount", "must have at most 2 decimal places")
	case in.Amount.GreaterThan(domain.MaxAmount):
		v.add("amount", "must be at most "+domain.FormatMoney(domain.MaxAmount))
	}
	if err := v.err(); err != nil {
		return domain.Payment{}, err
	}

	var payment domain.Payment
	err := s.run(ctx, func(u *unit) error {
		debt, err := u.tx.LockDebt(ctx, in.DebtID)
		if err != nil {
			return lookupErr(err, "debt")
		}
		if in.SubmitterID == "" || debt.PayerID() != in.SubmitterID {
			return ErrForbidden
		}
		if debt.Status != domain.DebtActive {
			return invalid("debt", "payments can only be recorded on an active debt")
		}

		payment = domain.Payment{
			ID:            u.newID(),
			DebtID:        debt.ID,
			InstallmentID: in.InstallmentID,
			SubmitterID:   in.SubmitterID,
			Amount:        in.Amount.Round(domain.MoneyScale),
			Status:        domain.PaymentPending,
			Description:   in.Description,
			SubmittedAt:   u.now,
		}
		if debt.Mode == domain.ModePersonal {
			payment.Status = domain.PaymentApproved
			reviewed := u.now
			payment.ReviewedAt = &reviewed
		}

		if payment.InstallmentID != "" {
			if err := checkInstallmentBelongs(ctx, u.tx, debt.ID, payment.InstallmentID); err != nil {
				return err
			}
		}
		if err := checkRemaining(ctx, u.tx, debt, payment.Amount); err != nil {
			return err
		}

		if err := u.tx.InsertPayment(ctx, payment); err != nil {
			return err
		}
		if payment.InstallmentID != "" {
			if _, err := s.syncInstallment(ctx, u, payment.InstallmentID); err != nil {
				return err
			}
		}
		if debt.Mode == domain.ModeMutual {
			if err := u.notify(ctx, debt.LenderID, domain.NotifyPaymentSubmitted, debt, paymentParams(payment)); err != nil {
				return err
			}
		}
		debt, err = s.settleIfPaid(ctx, u, debt)
		if err != nil {
			return err
		}
		u.project(debt.ID)
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}
	s.logger.Info("payment submitted", "debt_id", in.DebtID, "payment_id", payment.ID, "status", payment.Status)
	return payment, nil
}

// ApprovePayment approves a pending payment on a mutual debt. Only the
// lender may approve, and the payment must still fit the remaining balance.
func (s *LedgerService) ApprovePayment(ctx context.Context, paymentID, actorID string) (domain.Payment, error) {
	var payment domain.Payment
	err := s.run(ctx, func(u *unit) error {
		debt, locked, err := lockDebtAndPayment(ctx, u.tx, paymentID)
		if err != nil {
			return err
		}
		if debt.Mode != domain.ModeMutual || actorID == "" || debt.LenderID != actorID {
			return ErrForbidden
		}
		if locked.Status != domain.PaymentPending {
			payment = locked
			return ErrNotPending
		}
		if err := checkRemaining(ctx, u.tx, debt, locked.Amount); err != nil {
			return err
		}

		reviewed := u.now
		locked.Status = domain.PaymentApproved
		locked.ReviewedAt = &reviewed
		if err := u.tx.UpdatePayment(ctx, locked); err != nil {
			return err
		}
		payment = locked

		if payment.InstallmentID != "" {
			if _, err := s.syncInstallment(ctx, u, payment.InstallmentID); err != nil {
				return err
			}
		}
		if err := u.notify(ctx, payment.SubmitterID, domain.NotifyPaymentApproved, debt, paymentParams(payment)); err != nil {
			return err
		}
		debt, err = s.settleIfPaid(ctx, u, debt)
		if err != nil {
			return err
		}
		u.project(debt.ID)
		return nil
	})
	if err != nil {
		return payment, err
	}
	s.logger.Info("payment approved", "debt_id", payment.DebtID, "payment_id", payment.ID)
	return payment, nil
}

// RejectPayment rejects a pending payment with the lender's reason.
func (s *LedgerService) RejectPayment(ctx context.Context, paymentID, actorID, reason string) (domain.Payment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Payment{}, invalid("rejection_reason", "can't be blank")
	}

	var payment domain.Payment
	err := s.run(ctx, func(u *unit) error {
		debt, locked, err := lockDebtAndPayment(ctx, u.tx, paymentID)
		if err != nil {
			return err
		}
		if debt.Mode != domain.ModeMutual || actorID == "" || debt.LenderID != actorID {
			return ErrForbidden
		}
		if locked.Status != domain.PaymentPending {
			payment = locked
			return ErrNotPending
		}

		reviewed := u.now
		locked.Status = domain.PaymentRejected
		locked.RejectionReason = reason
		locked.ReviewedAt = &reviewed
		if err := u.tx.UpdatePayment(ctx, locked); err != nil {
			return err
		}
		payment = locked

		if payment.InstallmentID != "" {
			if _, err := s.syncInstallment(ctx, u, payment.InstallmentID); err != nil {
				return err
			}
		}
		params := paymentParams(payment)
		params["reason"] = reason
		return u.notify(ctx, payment.SubmitterID, domain.NotifyPaymentRejected, debt, params)
	})
	if err != nil {
		return payment, err
	}
	s.logger.Info("payment rejected", "debt_id", payment.DebtID, "payment_id", payment.ID)
	return payment, nil
}

// lockDebtAndPayment honours the debt-then-payment lock order: the payment
// is read unlocked to find its debt, the debt is locked, then the payment.
func lockDebtAndPayment(ctx context.Context, tx repository.Tx, paymentID string) (domain.Debt, domain.Payment, error) {
	peek, err := tx.GetPayment(ctx, paymentID)
	if err != nil {
		return domain.Debt{}, domain.Payment{}, lookupErr(err, "payment")
	}
	debt, err := tx.LockDebt(ctx, peek.DebtID)
	if err != nil {
		return domain.Debt{}, domain.Payment{}, lookupErr(err, "debt")
	}
	payment, err := tx.LockPayment(ctx, paymentID)
	if err != nil {
		return domain.Debt{}, domain.Payment{}, lookupErr(err, "payment")
	}
	return debt, payment, nil
}

func checkInstallmentBelongs(ctx context.Context, tx repository.Tx, debtID, installmentID string) error {
	installments, err := tx.ListInstallments(ctx, debtID)
	if err != nil {
		return err
	}
	for _, it := range installments {
		if it.ID == installmentID {
			return nil
		}
	}
	return invalid("installment_id", "does not belong to this debt")
}

// checkRemaining must run with the debt locked: it reads the approved total
// fresh and refuses amounts larger than what is left.
func checkRemaining(ctx context.Context, tx repository.Tx, debt domain.Debt, amount decimal.Decimal) error {
	approved, err := tx.SumApprovedPayments(ctx, debt.ID)
	if err != nil {
		return err
	}
	remaining := debt.Remaining(approved)
	if amount.GreaterThan(remaining) {
		return invalidBecause(ErrBalanceExceeded, "amount", "exceeds remaining balance of "+domain.FormatMoney(remaining))
	}
	return nil
}

func paymentParams(p domain.Payment) map[string]string {
	return map[string]string{
		"payment_id":     p.ID,
		"payment_amount": domain.FormatMoney(p.Amount),
	}
}

// IsBalanceExceeded reports whether err is a remaining-balance refusal.
func IsBalanceExceeded(err error) bool {
	return errors.Is(err, ErrBalanceExceeded)
}
