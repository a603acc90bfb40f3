package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/repository"
	"github.com/vanshika/debtledger/backend/internal/schedule"
	"github.com/vanshika/debtledger/backend/internal/usercode"
)

// CreateDebt records a debt. Mutual debts start pending and wait for the
// other party; personal debts start active with their schedule generated.
func (s *LedgerService) CreateDebt(ctx context.Context, in CreateDebtInput) (DebtDetails, error) {
	in.Currency = strings.TrimSpace(in.Currency)
	in.CounterpartyName = strings.TrimSpace(in.CounterpartyName)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validateCreate(in); err != nil {
		return DebtDetails{}, err
	}

	var debtID string
	err := s.run(ctx, func(u *unit) error {
		creator, err := u.tx.GetUser(ctx, in.CreatorID)
		if err != nil {
			return lookupErr(err, "creator")
		}

		debt := domain.Debt{
			ID:              u.newID(),
			Mode:            in.Mode,
			CreatorRole:     in.CreatorRole,
			Amount:          in.Amount.Round(domain.MoneyScale),
			Currency:        in.Currency,
			Deadline:        domain.DateOf(in.Deadline),
			Description:     in.Description,
			InstallmentType: in.InstallmentType,
			CreatedAt:       u.now,
			UpdatedAt:       u.now,
		}

		switch in.Mode {
		case domain.ModeMutual:
			other, err := resolveUser(ctx, u.tx, in.Counterparty)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return invalid("counterparty", "no user with this id or code")
				}
				return err
			}
			if other.ID == creator.ID {
				return invalid("counterparty", "can't be yourself")
			}
			switch in.CreatorRole {
			case domain.RoleLender:
				debt.LenderID, debt.BorrowerID = creator.ID, other.ID
			case domain.RoleBorrower:
				debt.LenderID, debt.BorrowerID = other.ID, creator.ID
			}
			debt.Status = domain.DebtPending
		case domain.ModePersonal:
			debt.LenderID = creator.ID
			debt.CounterpartyName = in.CounterpartyName
			debt.Status = domain.DebtActive
		}

		if err := u.tx.InsertDebt(ctx, debt); err != nil {
			return err
		}
		if debt.Status == domain.DebtActive {
			if err := insertSchedule(ctx, u, debt, s.today()); err != nil {
				return err
			}
		}
		for _, ref := range in.Witnesses {
			if err := s.addWitness(ctx, u, debt, ref); err != nil {
				return err
			}
		}
		if debt.Mode == domain.ModeMutual {
			if err := u.notify(ctx, debt.ConfirmingPartyID(), domain.NotifyDebtRequest, debt, nil); err != nil {
				return err
			}
		}
		debtID = debt.ID
		u.project(debt.ID)
		return nil
	})
	if err != nil {
		return DebtDetails{}, err
	}

	s.logger.Info("debt created", "debt_id", debtID, "mode", in.Mode, "installment_type", in.InstallmentType)
	return s.GetDebt(ctx, in.CreatorID, debtID)
}

func (s *LedgerService) validateCreate(in CreateDebtInput) error {
	var v validation

	switch {
	case in.Amount.Sign() <= 0:
		v.add("amount", "must be greater than 0")
	case !domain.HasMoneyScale(in.Amount):
		v.add("amount", "must have at most 2 decimal places")
	case in.Amount.GreaterThan(domain.MaxAmount):
		v.add("amount", "must be at most "+domain.FormatMoney(domain.MaxAmount))
	}
	if in.Currency == "" {
		v.add("currency", "can't be blank")
	}
	if in.Deadline.IsZero() {
		v.add("deadline", "can't be blank")
	} else if !domain.DateOf(in.Deadline).After(s.today()) {
		v.add("deadline", "must be in the future")
	}

	switch in.Mode {
	case domain.ModeMutual:
		if in.Counterparty.IsZero() {
			v.add("counterparty", "can't be blank")
		}
	case domain.ModePersonal:
		if in.CounterpartyName == "" {
			v.add("counterparty_name", "can't be blank")
		}
	default:
		v.add("mode", "is not included in the list")
	}

	switch in.CreatorRole {
	case domain.RoleLender, domain.RoleBorrower:
	default:
		v.add("creator_role", "is not included in the list")
	}

	if _, err := domain.ParseInstallmentType(string(in.InstallmentType)); err != nil {
		v.add("installment_type", "is not included in the list")
	}
	if len(in.Witnesses) > domain.MaxWitnesses {
		v.add("witnesses", "a debt can have at most 2 witnesses")
	}
	return v.err()
}

func insertSchedule(ctx context.Context, u *unit, debt domain.Debt, reference time.Time) error {
	slots := schedule.Generate(debt.Amount, debt.Deadline, debt.InstallmentType, reference)
	if len(slots) == 0 {
		return nil
	}
	items := make([]domain.Installment, 0, len(slots))
	for _, slot := range slots {
		items = append(items, domain.Installment{
			ID:        u.newID(),
			DebtID:    debt.ID,
			Amount:    slot.Amount,
			DueDate:   slot.DueDate,
			Status:    domain.InstallmentUpcoming,
			CreatedAt: u.now,
			UpdatedAt: u.now,
		})
	}
	return u.tx.InsertInstallments(ctx, items)
}

// ConfirmDebt activates a pending mutual debt on behalf of the party who did
// not create it and generates its schedule from today.
func (s *LedgerService) ConfirmDebt(ctx context.Context, debtID, actorID string) (DebtDetails, error) {
	err := s.run(ctx, func(u *unit) error {
		debt, err := s.lockPendingForConfirmingParty(ctx, u, debtID, actorID)
		if err != nil {
			return err
		}
		debt.Status = domain.DebtActive
		debt.UpdatedAt = u.now
		if err := u.tx.UpdateDebt(ctx, debt); err != nil {
			return err
		}
		if err := insertSchedule(ctx, u, debt, s.today()); err != nil {
			return err
		}
		if err := u.notify(ctx, debt.CreatorID(), domain.NotifyDebtConfirmed, debt, nil); err != nil {
			return err
		}
		u.project(debt.ID)
		return nil
	})
	if err != nil {
		return DebtDetails{}, err
	}
	s.logger.Info("debt confirmed", "debt_id", debtID)
	return s.GetDebt(ctx, actorID, debtID)
}

// RejectDebt closes a pending mutual debt without generating installments.
func (s *LedgerService) RejectDebt(ctx context.Context, debtID, actorID string) (DebtDetails, error) {
	err := s.run(ctx, func(u *unit) error {
		debt, err := s.lockPendingForConfirmingParty(ctx, u, debtID, actorID)
		if err != nil {
			return err
		}
		debt.Status = domain.DebtRejected
		debt.UpdatedAt = u.now
		if err := u.tx.UpdateDebt(ctx, debt); err != nil {
			return err
		}
		if err := u.notify(ctx, debt.CreatorID(), domain.NotifyDebtRejected, debt, nil); err != nil {
			return err
		}
		u.project(debt.ID)
		return nil
	})
	if err != nil {
		return DebtDetails{}, err
	}
	s.logger.Info("debt rejected", "debt_id", debtID)
	return s.GetDebt(ctx, actorID, debtID)
}

func (s *LedgerService) lockPendingForConfirmingParty(ctx context.Context, u *unit, debtID, actorID string) (domain.Debt, error) {
	debt, err := u.tx.LockDebt(ctx, debtID)
	if err != nil {
		return domain.Debt{}, lookupErr(err, "debt")
	}
	if debt.Mode != domain.ModeMutual || actorID == "" || actorID != debt.ConfirmingPartyID() {
		return domain.Debt{}, ErrForbidden
	}
	if debt.Status != domain.DebtPending {
		return domain.Debt{}, ErrAlreadyProcessed
	}
	return debt, nil
}

// DeleteDebt removes a debt and everything it owns. Only the creator may
// delete, and a shared debt only before it became active.
func (s *LedgerService) DeleteDebt(ctx context.Context, debtID, actorID string) error {
	err := s.run(ctx, func(u *unit) error {
		debt, err := u.tx.LockDebt(ctx, debtID)
		if err != nil {
			return lookupErr(err, "debt")
		}
		if actorID == "" || debt.CreatorID() != actorID {
			return ErrForbidden
		}
		if debt.Mode == domain.ModeMutual {
			switch debt.Status {
			case domain.DebtPending, domain.DebtRejected:
			case domain.DebtActive, domain.DebtSettled:
				return invalid("status", "a confirmed shared debt can't be deleted")
			}
		}
		if err := u.tx.DeleteDebt(ctx, debt.ID); err != nil {
			return err
		}
		u.project(debt.ID)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("debt deleted", "debt_id", debtID)
	return nil
}

// GetDebt returns the debt view if the actor is a party, the upgrade
// nominee or a witness.
func (s *LedgerService) GetDebt(ctx context.Context, actorID, debtID string) (DebtDetails, error) {
	var out DebtDetails
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		debt, err := tx.GetDebt(ctx, debtID)
		if err != nil {
			return lookupErr(err, "debt")
		}
		if !debt.IsParty(actorID) && (debt.UpgradeRecipientID == "" || debt.UpgradeRecipientID != actorID) {
			if _, err := tx.GetWitness(ctx, debtID, actorID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrForbidden
				}
				return err
			}
		}
		out, err = loadDetails(ctx, tx, debt)
		return err
	})
	return out, err
}

func loadDetails(ctx context.Context, tx repository.Tx, debt domain.Debt) (DebtDetails, error) {
	installments, err := tx.ListInstallments(ctx, debt.ID)
	if err != nil {
		return DebtDetails{}, err
	}
	payments, err := tx.ListPayments(ctx, debt.ID)
	if err != nil {
		return DebtDetails{}, err
	}
	witnesses, err := tx.ListWitnesses(ctx, debt.ID)
	if err != nil {
		return DebtDetails{}, err
	}
	paid, err := tx.SumApprovedPayments(ctx, debt.ID)
	if err != nil {
		return DebtDetails{}, err
	}
	return DebtDetails{
		Debt:         debt,
		Installments: installments,
		Payments:     payments,
		Witnesses:    witnesses,
		Paid:         paid,
		Remaining:    debt.Remaining(paid),
	}, nil
}

// ListDebts returns the debts visible to the user, newest first.
func (s *LedgerService) ListDebts(ctx context.Context, params ListDebtsParams) ([]domain.Debt, error) {
	var out []domain.Debt
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListDebts(ctx, repository.ListDebtsOptions{
			UserID: params.UserID,
			Status: params.Status,
			Role:   params.Role,
			Limit:  params.Limit,
		})
		return err
	})
	return out, err
}

func resolveUser(ctx context.Context, tx repository.Tx, ref UserRef) (domain.User, error) {
	if ref.ID != "" {
		u, err := tx.GetUser(ctx, ref.ID)
		if err != nil {
			return domain.User{}, lookupErr(err, "user")
		}
		return u, nil
	}
	code, err := usercode.Normalize(ref.Code)
	if err != nil {
		return domain.User{}, ErrNotFound
	}
	u, err := tx.GetUserByCode(ctx, code)
	if err != nil {
		return domain.User{}, lookupErr(err, "user")
	}
	return u, nil
}
