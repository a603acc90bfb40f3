package service

import (
	"context"
	"fmt"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/repository"
)

func notificationMessage(typ domain.NotificationType, p map[string]string) string {
	money := p["amount"] + " " + p["currency"]
	switch typ {
	case domain.NotifyDebtRequest:
		return fmt.Sprintf("A debt of %s was recorded with you and awaits your confirmation.", money)
	case domain.NotifyDebtConfirmed:
		return fmt.Sprintf("Your debt of %s was confirmed.", money)
	case domain.NotifyDebtRejected:
		return fmt.Sprintf("Your debt of %s was rejected.", money)
	case domain.NotifyDebtSettled:
		return fmt.Sprintf("The debt of %s is fully settled.", money)
	case domain.NotifyPaymentSubmitted:
		return fmt.Sprintf("A payment of %s %s was submitted and awaits your approval.", p["payment_amount"], p["currency"])
	case domain.NotifyPaymentApproved:
		return fmt.Sprintf("Your payment of %s %s was approved.", p["payment_amount"], p["currency"])
	case domain.NotifyPaymentRejected:
		return fmt.Sprintf("Your payment of %s %s was rejected: %s", p["payment_amount"], p["currency"], p["reason"])
	case domain.NotifyWitnessInvited:
		return fmt.Sprintf("You were invited to witness a debt of %s.", money)
	case domain.NotifyWitnessConfirmed:
		return fmt.Sprintf("A witness confirmed the debt of %s.", money)
	case domain.NotifyWitnessDeclined:
		return fmt.Sprintf("A witness declined the debt of %s.", money)
	case domain.NotifyUpgradeRequested:
		return fmt.Sprintf("You were asked to take over a personal debt record of %s.", money)
	case domain.NotifyUpgradeAccepted:
		return fmt.Sprintf("Your debt record of %s is now shared with the other party.", money)
	case domain.NotifyUpgradeDeclined:
		return fmt.Sprintf("The request to share your debt record of %s was declined.", money)
	case domain.NotifyInstallmentOverdue:
		return fmt.Sprintf("An installment of %s %s due %s is overdue.", p["installment_amount"], p["currency"], p["due_date"])
	case domain.NotifyInstallmentReminder:
		return fmt.Sprintf("An installment of %s %s is due %s (in %s days).", p["installment_amount"], p["currency"], p["due_date"], p["days"])
	}
	return string(typ)
}

// ListNotifications returns the user's latest notifications, newest first.
func (s *LedgerService) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListNotifications(ctx, userID, limit)
		return err
	})
	return out, err
}

// MarkNotificationRead marks one of the user's notifications as read.
// Unknown or already read notifications report ErrAlreadyProcessed.
func (s *LedgerService) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	return s.store.WithinTx(ctx, func(tx repository.Tx) error {
		ok, err := tx.MarkNotificationRead(ctx, notificationID, userID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyProcessed
		}
		return nil
	})
}
