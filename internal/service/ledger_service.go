package service

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/repository"
	"github.com/vanshika/debtledger/backend/internal/usercode"
)

// Dispatcher delivers persisted notifications outside the transaction.
// Implementations must not block the caller.
type Dispatcher interface {
	Enqueue(n domain.Notification)
}

// Projector mirrors committed debts into the relationship graph.
type Projector interface {
	ProjectDebt(ctx context.Context, debt domain.Debt, remaining decimal.Decimal) error
	RemoveDebt(ctx context.Context, debtID string) error
}

// LedgerService owns the debt lifecycle: creation, confirmation, upgrade,
// witnesses, payments, installment status and settlement.
type LedgerService struct {
	store      repository.Store
	logger     *slog.Logger
	dispatcher Dispatcher
	projector  Projector
	location   *time.Location
	nowFn      func() time.Time
	newID      func() string
	newCode    func() (string, error)
	pool       pool
	pageSize   int

	projectMu [64]sync.Mutex
}

// NewLedgerService constructs a LedgerService. A nil logger discards output.
func NewLedgerService(store repository.Store, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LedgerService{
		store:    store,
		logger:   logger,
		location: time.UTC,
		nowFn:    time.Now,
		newID:    func() string { return uuid.NewString() },
		newCode:  usercode.Generate,
		pool:     newPool(4),
		pageSize: defaultPageSize,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *LedgerService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// WithCodeGenerator overrides how personal codes are drawn.
func (s *LedgerService) WithCodeGenerator(fn func() (string, error)) {
	if fn != nil {
		s.newCode = fn
	}
}

// WithLocation sets the calendar used to decide what "today" is.
func (s *LedgerService) WithLocation(loc *time.Location) {
	if loc != nil {
		s.location = loc
	}
}

// WithDispatcher routes committed notifications to d.
func (s *LedgerService) WithDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// WithProjector mirrors committed debts through p.
func (s *LedgerService) WithProjector(p Projector) {
	s.projector = p
}

func (s *LedgerService) now() time.Time {
	return s.nowFn().UTC()
}

func (s *LedgerService) today() time.Time {
	return domain.DateOf(s.nowFn().In(s.location))
}

// unit is the state of one transaction: the side effects it queued are
// released only after commit.
type unit struct {
	tx      repository.Tx
	now     time.Time
	newID   func() string
	outbox  []domain.Notification
	touched map[string]struct{}
}

type projection struct {
	debt      domain.Debt
	remaining decimal.Decimal
}

func (s *LedgerService) run(ctx context.Context, fn func(u *unit) error) error {
	var work *unit
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		work = &unit{
			tx:      tx,
			now:     s.now(),
			newID:   s.newID,
			touched: map[string]struct{}{},
		}
		return fn(work)
	})
	if err != nil {
		return err
	}
	s.afterCommit(ctx, work)
	return nil
}

func (s *LedgerService) afterCommit(ctx context.Context, u *unit) {
	if s.dispatcher != nil {
		for _, n := range u.outbox {
			s.dispatcher.Enqueue(n)
		}
	}
	if s.projector == nil {
		return
	}
	for id := range u.touched {
		if err := s.syncProjection(ctx, id); err != nil {
			s.logger.Warn("graph projection failed", "debt_id", id, "error", err)
		}
	}
}

// syncProjection writes the debt's latest committed state to the graph.
// Projections of the same debt are serialized and each one re-reads the
// store, so a late writer can never leave an older state behind.
func (s *LedgerService) syncProjection(ctx context.Context, debtID string) error {
	mu := s.projectionLock(debtID)
	mu.Lock()
	defer mu.Unlock()

	var (
		current projection
		gone    bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		debt, err := tx.GetDebt(ctx, debtID)
		if errors.Is(err, repository.ErrNotFound) {
			gone = true
			return nil
		}
		if err != nil {
			return err
		}
		approved, err := tx.SumApprovedPayments(ctx, debtID)
		if err != nil {
			return err
		}
		current = projection{debt: debt, remaining: debt.Remaining(approved)}
		return nil
	})
	if err != nil {
		return err
	}
	if gone {
		return s.projector.RemoveDebt(ctx, debtID)
	}
	return s.projector.ProjectDebt(ctx, current.debt, current.remaining)
}

func (s *LedgerService) projectionLock(debtID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(debtID))
	return &s.projectMu[h.Sum32()%uint32(len(s.projectMu))]
}

// notify persists a notification inside the unit and queues it for delivery.
func (u *unit) notify(ctx context.Context, userID string, typ domain.NotificationType, debt domain.Debt, params map[string]string) error {
	if userID == "" {
		return nil
	}
	if params == nil {
		params = map[string]string{}
	}
	params["amount"] = domain.FormatMoney(debt.Amount)
	params["currency"] = debt.Currency
	n := domain.Notification{
		ID:        u.newID(),
		UserID:    userID,
		Type:      typ,
		DebtID:    debt.ID,
		Message:   notificationMessage(typ, params),
		Params:    params,
		CreatedAt: u.now,
	}
	if err := u.tx.InsertNotification(ctx, n); err != nil {
		return err
	}
	u.outbox = append(u.outbox, n)
	return nil
}

// project marks the debt for re-projection once the unit commits.
func (u *unit) project(debtID string) {
	u.touched[debtID] = struct{}{}
}
