package service

import (
	"context"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/repository"
)

// GraphRebuilder is a Projector that can also wipe its projection.
type GraphRebuilder interface {
	Projector
	Reset(ctx context.Context) error
}

// RebuildGraph clears the projection and replays every active shared debt.
// It returns the number of debts projected.
func (s *LedgerService) RebuildGraph(ctx context.Context, g GraphRebuilder, pageSize int) (int, error) {
	if err := g.Reset(ctx); err != nil {
		return 0, err
	}
	total := 0
	after := ""
	for {
		var page []projection
		err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
			debts, err := tx.ScanDebts(ctx, repository.ScanDebtsOptions{
				Mode:    domain.ModeMutual,
				Status:  domain.DebtActive,
				AfterID: after,
				Limit:   pageSize,
			})
			if err != nil {
				return err
			}
			page = make([]projection, 0, len(debts))
			for _, d := range debts {
				approved, err := tx.SumApprovedPayments(ctx, d.ID)
				if err != nil {
					return err
				}
				page = append(page, projection{debt: d, remaining: d.Remaining(approved)})
			}
			return nil
		})
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			break
		}
		err = s.pool.run(ctx, len(page), func(idx int) error {
			return g.ProjectDebt(ctx, page[idx].debt, page[idx].remaining)
		})
		if err != nil {
			return total, err
		}
		total += len(page)
		after = page[len(page)-1].debt.ID
	}
	s.logger.Info("graph rebuilt", "debts", total)
	return total, nil
}
