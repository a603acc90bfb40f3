package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/repository"
)

// MaintenanceReport summarises one maintenance pass.
type MaintenanceReport struct {
	Scanned int
	Changed int
}

// WithWorkers sets the concurrency of the maintenance passes.
func (s *LedgerService) WithWorkers(n int) {
	s.pool = newPool(n)
}

// MarkOverdueInstallments flips upcoming installments of active debts whose
// due date is before today to overdue and tells the payer. Running it twice
// on the same day changes nothing the second time.
func (s *LedgerService) MarkOverdueInstallments(ctx context.Context, today time.Time) (MaintenanceReport, error) {
	today = domain.DateOf(today)
	due, err := s.listDue(ctx, repository.DueInstallmentsOptions{
		Status:    domain.InstallmentUpcoming,
		DueBefore: &today,
	})
	if err != nil {
		return MaintenanceReport{}, err
	}

	changed := make([]bool, len(due))
	err = s.pool.run(ctx, len(due), func(idx int) error {
		item := due[idx]
		return s.run(ctx, func(u *unit) error {
			ok, err := u.tx.MarkInstallmentOverdue(ctx, item.Installment.ID, u.now)
			if err != nil || !ok {
				return err
			}
			changed[idx] = true
			return u.notify(ctx, item.Debt.PayerID(), domain.NotifyInstallmentOverdue, item.Debt, installmentParams(item.Installment, today))
		})
	})

	report := MaintenanceReport{Scanned: len(due), Changed: countTrue(changed)}
	s.logger.Info("overdue pass finished", "scanned", report.Scanned, "marked", report.Changed)
	return report, err
}

// SendDueReminders reminds payers of upcoming installments due exactly
// daysBefore days from today. An installment reminded within dedupe is skipped.
func (s *LedgerService) SendDueReminders(ctx context.Context, today time.Time, daysBefore []int, dedupe time.Duration) (MaintenanceReport, error) {
	today = domain.DateOf(today)
	var report MaintenanceReport
	var errs []error

	for _, days := range daysBefore {
		if days < 0 {
			continue
		}
		target := today.AddDate(0, 0, days)
		due, err := s.listDue(ctx, repository.DueInstallmentsOptions{
			Status: domain.InstallmentUpcoming,
			DueOn:  &target,
		})
		if err != nil {
			return report, err
		}

		sent := make([]bool, len(due))
		err = s.pool.run(ctx, len(due), func(idx int) error {
			item := due[idx]
			return s.run(ctx, func(u *unit) error {
				inst, err := u.tx.LockInstallment(ctx, item.Installment.ID)
				if err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						return nil
					}
					return err
				}
				if inst.Status != domain.InstallmentUpcoming {
					return nil
				}
				if inst.LastRemindedAt != nil && u.now.Sub(*inst.LastRemindedAt) < dedupe {
					return nil
				}
				if err := u.tx.TouchInstallmentReminder(ctx, inst.ID, u.now); err != nil {
					return err
				}
				sent[idx] = true
				return u.notify(ctx, item.Debt.PayerID(), domain.NotifyInstallmentReminder, item.Debt, installmentParams(inst, today))
			})
		})
		if err != nil {
			errs = append(errs, err)
		}
		report.Scanned += len(due)
		report.Changed += countTrue(sent)
	}

	s.logger.Info("reminder pass finished", "scanned", report.Scanned, "sent", report.Changed)
	return report, errors.Join(errs...)
}

// defaultPageSize is how many due installments are read per query.
const defaultPageSize = 500

// listDue reads every matching installment, one page at a time.
func (s *LedgerService) listDue(ctx context.Context, opts repository.DueInstallmentsOptions) ([]repository.DueInstallment, error) {
	opts.Limit = s.pageSize
	var out []repository.DueInstallment
	for {
		var page []repository.DueInstallment
		err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
			var err error
			page, err = tx.ListDueInstallments(ctx, opts)
			return err
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < opts.Limit {
			return out, nil
		}
		opts.AfterID = page[len(page)-1].Installment.ID
	}
}

func installmentParams(inst domain.Installment, today time.Time) map[string]string {
	days := int(inst.DueDate.Sub(today).Hours() / 24)
	return map[string]string{
		"installment_id":     inst.ID,
		"installment_amount": domain.FormatMoney(inst.Amount),
		"due_date":           inst.DueDate.Format(domain.DateLayout),
		"days":               strconv.Itoa(days),
	}
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
