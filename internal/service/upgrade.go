package service

import (
	"context"
	"errors"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/repository"
)

// NominateUpgrade asks a registered user to take over the counterparty side
// of an active personal debt. Only one nomination may be outstanding.
func (s *LedgerService) NominateUpgrade(ctx context.Context, debtID, actorID string, recipient UserRef) (DebtDetails, error) {
	if recipient.IsZero() {
		return DebtDetails{}, invalid("recipient", "can't be blank")
	}
	err := s.run(ctx, func(u *unit) error {
		debt, err := u.tx.LockDebt(ctx, debtID)
		if err != nil {
			return lookupErr(err, "debt")
		}
		if actorID == "" || debt.CreatorID() != actorID {
			return ErrForbidden
		}
		if debt.Mode != domain.ModePersonal || debt.Status != domain.DebtActive {
			return invalid("debt", "only an active personal debt can be shared")
		}
		if debt.UpgradeRecipientID != "" {
			return invalidBecause(ErrUpgradePending, "recipient", "an upgrade request is already pending")
		}

		nominee, err := resolveUser(ctx, u.tx, recipient)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return invalid("recipient", "no user with this id or code")
			}
			return err
		}
		if nominee.ID == actorID {
			return invalid("recipient", "can't be yourself")
		}
		if _, err := u.tx.GetWitness(ctx, debt.ID, nominee.ID); err == nil {
			return invalid("recipient", "is already a witness of this debt")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		debt.UpgradeRecipientID = nominee.ID
		debt.UpdatedAt = u.now
		if err := u.tx.UpdateDebt(ctx, debt); err != nil {
			return err
		}
		return u.notify(ctx, nominee.ID, domain.NotifyUpgradeRequested, debt, map[string]string{
			"counterparty_name": debt.CounterpartyName,
		})
	})
	if err != nil {
		return DebtDetails{}, err
	}
	s.logger.Info("debt upgrade requested", "debt_id", debtID)
	return s.GetDebt(ctx, actorID, debtID)
}

// AcceptUpgrade turns the personal debt into a mutual one. The nominee takes
// the side opposite to the creator's original role.
func (s *LedgerService) AcceptUpgrade(ctx context.Context, debtID, actorID string) (DebtDetails, error) {
	err := s.run(ctx, func(u *unit) error {
		debt, err := s.lockForNominee(ctx, u, debtID, actorID)
		if err != nil {
			return err
		}
		creatorID := debt.CreatorID()

		switch debt.CreatorRole {
		case domain.RoleLender:
			debt.LenderID, debt.BorrowerID = creatorID, actorID
		case domain.RoleBorrower:
			debt.LenderID, debt.BorrowerID = actorID, creatorID
		}
		debt.Mode = domain.ModeMutual
		debt.CounterpartyName = ""
		debt.UpgradeRecipientID = ""
		debt.UpdatedAt = u.now
		if err := u.tx.UpdateDebt(ctx, debt); err != nil {
			return err
		}
		if err := u.notify(ctx, creatorID, domain.NotifyUpgradeAccepted, debt, nil); err != nil {
			return err
		}
		u.project(debt.ID)
		return nil
	})
	if err != nil {
		return DebtDetails{}, err
	}
	s.logger.Info("debt upgrade accepted", "debt_id", debtID)
	return s.GetDebt(ctx, actorID, debtID)
}

// DeclineUpgrade clears the nomination and leaves the debt personal.
func (s *LedgerService) DeclineUpgrade(ctx context.Context, debtID, actorID string) error {
	err := s.run(ctx, func(u *unit) error {
		debt, err := s.lockForNominee(ctx, u, debtID, actorID)
		if err != nil {
			return err
		}
		debt.UpgradeRecipientID = ""
		debt.UpdatedAt = u.now
		if err := u.tx.UpdateDebt(ctx, debt); err != nil {
			return err
		}
		return u.notify(ctx, debt.CreatorID(), domain.NotifyUpgradeDeclined, debt, nil)
	})
	if err != nil {
		return err
	}
	s.logger.Info("debt upgrade declined", "debt_id", debtID)
	return nil
}

func (s *LedgerService) lockForNominee(ctx context.Context, u *unit, debtID, actorID string) (domain.Debt, error) {
	debt, err := u.tx.LockDebt(ctx, debtID)
	if err != nil {
		return domain.Debt{}, lookupErr(err, "debt")
	}
	if debt.UpgradeRecipientID == "" {
		return domain.Debt{}, ErrAlreadyProcessed
	}
	if actorID == "" || debt.UpgradeRecipientID != actorID {
		return domain.Debt{}, ErrForbidden
	}
	if debt.Mode != domain.ModePersonal {
		return domain.Debt{}, ErrAlreadyProcessed
	}
	return debt, nil
}
