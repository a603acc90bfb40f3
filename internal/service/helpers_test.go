package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type captureDispatcher struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (d *captureDispatcher) Enqueue(n domain.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
}

func (d *captureDispatcher) count(userID string, typ domain.NotificationType) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, item := range d.sent {
		if item.UserID == userID && item.Type == typ {
			n++
		}
	}
	return n
}

func (d *captureDispatcher) total(typ domain.NotificationType) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, item := range d.sent {
		if item.Type == typ {
			n++
		}
	}
	return n
}

type captureProjector struct {
	mu        sync.Mutex
	projected map[string]domain.Debt
	removed   []string
}

func (p *captureProjector) ProjectDebt(_ context.Context, debt domain.Debt, _ decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.projected == nil {
		p.projected = map[string]domain.Debt{}
	}
	p.projected[debt.ID] = debt
	return nil
}

func (p *captureProjector) RemoveDebt(_ context.Context, debtID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, debtID)
	return nil
}

type fixture struct {
	ledger     *LedgerService
	store      *repository.MemoryStore
	clock      *testClock
	dispatcher *captureDispatcher
	projector  *captureProjector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	dispatcher := &captureDispatcher{}
	projector := &captureProjector{}

	ledger := NewLedgerService(store, nil)
	ledger.WithClock(clock.Now)
	ledger.WithDispatcher(dispatcher)
	ledger.WithProjector(projector)
	ledger.WithWorkers(3)

	return &fixture{ledger: ledger, store: store, clock: clock, dispatcher: dispatcher, projector: projector}
}

func (f *fixture) user(t *testing.T, name string) domain.User {
	t.Helper()
	u, err := f.ledger.RegisterUser(context.Background(), RegisterUserInput{DisplayName: name})
	if err != nil {
		t.Fatalf("RegisterUser(%s) returned error: %v", name, err)
	}
	return u
}

func (f *fixture) date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) mutualDebt(t *testing.T, creator, other domain.User, role domain.Role, amount string, kind domain.InstallmentType) DebtDetails {
	t.Helper()
	details, err := f.ledger.CreateDebt(context.Background(), CreateDebtInput{
		CreatorID:       creator.ID,
		Mode:            domain.ModeMutual,
		CreatorRole:     role,
		Counterparty:    UserRef{ID: other.ID},
		Amount:          decimal.RequireFromString(amount),
		Currency:        "USD",
		Deadline:        f.date(2026, 6, 1),
		InstallmentType: kind,
	})
	if err != nil {
		t.Fatalf("CreateDebt returned error: %v", err)
	}
	return details
}

func (f *fixture) activeMutualDebt(t *testing.T, lender, borrower domain.User, amount string, kind domain.InstallmentType) DebtDetails {
	t.Helper()
	created := f.mutualDebt(t, lender, borrower, domain.RoleLender, amount, kind)
	details, err := f.ledger.ConfirmDebt(context.Background(), created.Debt.ID, borrower.ID)
	if err != nil {
		t.Fatalf("ConfirmDebt returned error: %v", err)
	}
	return details
}

func (f *fixture) personalDebt(t *testing.T, creator domain.User, role domain.Role, amount string, kind domain.InstallmentType) DebtDetails {
	t.Helper()
	details, err := f.ledger.CreateDebt(context.Background(), CreateDebtInput{
		CreatorID:        creator.ID,
		Mode:             domain.ModePersonal,
		CreatorRole:      role,
		CounterpartyName: "Sam from work",
		Amount:           decimal.RequireFromString(amount),
		Currency:         "USD",
		Deadline:         f.date(2026, 6, 1),
		InstallmentType:  kind,
	})
	if err != nil {
		t.Fatalf("CreateDebt returned error: %v", err)
	}
	return details
}

func (f *fixture) submit(t *testing.T, debtID string, payer domain.User, amount string) domain.Payment {
	t.Helper()
	p, err := f.ledger.SubmitPayment(context.Background(), SubmitPaymentInput{
		DebtID:      debtID,
		SubmitterID: payer.ID,
		Amount:      decimal.RequireFromString(amount),
	})
	if err != nil {
		t.Fatalf("SubmitPayment(%s) returned error: %v", amount, err)
	}
	return p
}

func (f *fixture) details(t *testing.T, actorID, debtID string) DebtDetails {
	t.Helper()
	d, err := f.ledger.GetDebt(context.Background(), actorID, debtID)
	if err != nil {
		t.Fatalf("GetDebt returned error: %v", err)
	}
	return d
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
