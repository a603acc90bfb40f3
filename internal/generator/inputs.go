package generator

import (
	"fmt"
	"time"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/service"
)

// UserInputs converts the user seeds into registration requests.
func (d Dataset) UserInputs() []service.RegisterUserInput {
	out := make([]service.RegisterUserInput, len(d.Users))
	for i, u := range d.Users {
		out[i] = service.RegisterUserInput{DisplayName: u.DisplayName, Email: u.Email}
	}
	return out
}

// DebtInputs resolves the debt seeds against registered users, given in the
// same order as Users. Seeds referring to a user that failed to register are
// skipped; the returned indexes point back into Debts.
func (d Dataset) DebtInputs(users []domain.User) ([]service.CreateDebtInput, []int, error) {
	if len(users) != len(d.Users) {
		return nil, nil, fmt.Errorf("dataset has %d users, got %d registered", len(d.Users), len(users))
	}
	id := func(idx int) string {
		if idx < 0 || idx >= len(users) {
			return ""
		}
		return users[idx].ID
	}

	var (
		out     []service.CreateDebtInput
		indexes []int
	)
	for i, seed := range d.Debts {
		creator := id(seed.Creator)
		if creator == "" {
			continue
		}
		deadline, err := time.Parse(domain.DateLayout, seed.Deadline)
		if err != nil {
			return nil, nil, fmt.Errorf("debt %d: parse deadline: %w", i, err)
		}
		in := service.CreateDebtInput{
			CreatorID:        creator,
			Mode:             seed.Mode,
			CreatorRole:      seed.CreatorRole,
			CounterpartyName: seed.CounterpartyName,
			Amount:           seed.Amount,
			Currency:         seed.Currency,
			Deadline:         deadline,
			Description:      seed.Description,
			InstallmentType:  seed.InstallmentType,
		}
		if seed.Mode == domain.ModeMutual {
			other := id(seed.Counterparty)
			if other == "" {
				continue
			}
			in.Counterparty = service.UserRef{ID: other}
		}
		if w := id(seed.Witness); w != "" {
			in.Witnesses = []service.UserRef{{ID: w}}
		}
		out = append(out, in)
		indexes = append(indexes, i)
	}
	return out, indexes, nil
}
