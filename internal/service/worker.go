package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

// TaskError accumulates multiple errors produced during a bulk pass.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// pool fans indexed work out to a fixed number of goroutines.
type pool struct {
	workers int
}

func newPool(workers int) pool {
	if workers <= 0 {
		workers = 4
	}
	return pool{workers: workers}
}

func (p pool) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	if err := ctx.Err(); err != nil {
		return err
	}
	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}

// BulkLoader registers users and records debts concurrently. It backs the
// seed command.
type BulkLoader struct {
	ledger *LedgerService
	pool   pool
}

// NewBulkLoader creates a BulkLoader with the provided concurrency.
func NewBulkLoader(ledger *LedgerService, workers int) *BulkLoader {
	return &BulkLoader{ledger: ledger, pool: newPool(workers)}
}

// RegisterUsers creates every user and returns them in input order. Entries
// that failed are left zero and reported in the returned TaskError.
func (bl *BulkLoader) RegisterUsers(ctx context.Context, users []RegisterUserInput) ([]domain.User, error) {
	out := make([]domain.User, len(users))
	err := bl.pool.run(ctx, len(users), func(idx int) error {
		u, err := bl.ledger.RegisterUser(ctx, users[idx])
		if err != nil {
			return err
		}
		out[idx] = u
		return nil
	})
	return out, err
}

// CreateDebts records every debt and returns the resulting views in input
// order. Entries that failed are left zero.
func (bl *BulkLoader) CreateDebts(ctx context.Context, debts []CreateDebtInput) ([]DebtDetails, error) {
	out := make([]DebtDetails, len(debts))
	err := bl.pool.run(ctx, len(debts), func(idx int) error {
		details, err := bl.ledger.CreateDebt(ctx, debts[idx])
		if err != nil {
			return err
		}
		out[idx] = details
		return nil
	})
	return out, err
}

// DebtAnswer is one confirmation to replay against a pending debt.
type DebtAnswer struct {
	DebtID  string
	ActorID string
}

// ConfirmDebts confirms the listed debts and reports how many succeeded.
func (bl *BulkLoader) ConfirmDebts(ctx context.Context, answers []DebtAnswer) (int, error) {
	var confirmed atomic.Int64
	err := bl.pool.run(ctx, len(answers), func(idx int) error {
		a := answers[idx]
		if _, err := bl.ledger.ConfirmDebt(ctx, a.DebtID, a.ActorID); err != nil {
			return err
		}
		confirmed.Add(1)
		return nil
	})
	return int(confirmed.Load()), err
}
