package service

import (
	"context"
	"errors"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/repository"
)

// InviteWitness adds a witness to a debt the actor created.
func (s *LedgerService) InviteWitness(ctx context.Context, debtID, actorID string, ref UserRef) (DebtDetails, error) {
	if ref.IsZero() {
		return DebtDetails{}, invalid("witness", "can't be blank")
	}
	err := s.run(ctx, func(u *unit) error {
		debt, err := u.tx.LockDebt(ctx, debtID)
		if err != nil {
			return lookupErr(err, "debt")
		}
		if actorID == "" || debt.CreatorID() != actorID {
			return ErrForbidden
		}
		return s.addWitness(ctx, u, debt, ref)
	})
	if err != nil {
		return DebtDetails{}, err
	}
	s.logger.Info("witness invited", "debt_id", debtID)
	return s.GetDebt(ctx, actorID, debtID)
}

// addWitness expects the debt to be locked by the caller.
func (s *LedgerService) addWitness(ctx context.Context, u *unit, debt domain.Debt, ref UserRef) error {
	if debt.Status.Terminal() {
		return invalid("witness", "witnesses can't be added to a closed debt")
	}
	user, err := resolveUser(ctx, u.tx, ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("witness", "no user with this id or code")
		}
		return err
	}
	if debt.IsParty(user.ID) {
		return invalid("witness", "a party to the debt can't be its witness")
	}
	if debt.UpgradeRecipientID != "" && debt.UpgradeRecipientID == user.ID {
		return invalid("witness", "the upgrade nominee can't be a witness")
	}

	existing, err := u.tx.ListWitnesses(ctx, debt.ID)
	if err != nil {
		return err
	}
	for _, w := range existing {
		if w.UserID == user.ID {
			return invalid("witness", "is already a witness of this debt")
		}
	}
	if len(existing) >= domain.MaxWitnesses {
		return invalid("witness", "a debt can have at most 2 witnesses")
	}

	w := domain.Witness{
		ID:        u.newID(),
		DebtID:    debt.ID,
		UserID:    user.ID,
		Status:    domain.WitnessInvited,
		CreatedAt: u.now,
	}
	if err := u.tx.InsertWitness(ctx, w); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return invalid("witness", "is already a witness of this debt")
		}
		return err
	}
	return u.notify(ctx, user.ID, domain.NotifyWitnessInvited, debt, nil)
}

// ConfirmWitness records that the invited witness vouches for the debt.
func (s *LedgerService) ConfirmWitness(ctx context.Context, debtID, actorID string) (domain.Witness, error) {
	return s.answerInvitation(ctx, debtID, actorID, domain.WitnessConfirmed, domain.NotifyWitnessConfirmed)
}

// DeclineWitness records that the invited witness refused.
func (s *LedgerService) DeclineWitness(ctx context.Context, debtID, actorID string) (domain.Witness, error) {
	return s.answerInvitation(ctx, debtID, actorID, domain.WitnessDeclined, domain.NotifyWitnessDeclined)
}

func (s *LedgerService) answerInvitation(ctx context.Context, debtID, actorID string, status domain.WitnessStatus, typ domain.NotificationType) (domain.Witness, error) {
	var out domain.Witness
	err := s.run(ctx, func(u *unit) error {
		debt, err := u.tx.LockDebt(ctx, debtID)
		if err != nil {
			return lookupErr(err, "debt")
		}
		w, err := u.tx.GetWitness(ctx, debt.ID, actorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrForbidden
			}
			return err
		}
		if w.Status != domain.WitnessInvited {
			out = w
			return ErrAlreadyProcessed
		}

		w.Status = status
		if status == domain.WitnessConfirmed {
			at := u.now
			w.ConfirmedAt = &at
		}
		if err := u.tx.UpdateWitness(ctx, w); err != nil {
			return err
		}
		out = w
		return u.notify(ctx, debt.CreatorID(), typ, debt, nil)
	})
	if err != nil {
		return out, err
	}
	s.logger.Info("witness answered", "debt_id", debtID, "status", status)
	return out, nil
}
