package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

// MemoryStore is an in-process Store used by tests and the memory storage
// driver. Units of work run one at a time, which gives the same
// serialization the row locks give in Postgres. A failed unit restores the
// state captured when it began.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
}

type memoryState struct {
	users         map[string]domain.User
	debts         map[string]domain.Debt
	installments  map[string]domain.Installment
	payments      map[string]domain.Payment
	witnesses     map[string]domain.Witness
	notifications map[string]domain.Notification
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

func newMemoryState() memoryState {
	return memoryState{
		users:         map[string]domain.User{},
		debts:         map[string]domain.Debt{},
		installments:  map[string]domain.Installment{},
		payments:      map[string]domain.Payment{},
		witnesses:     map[string]domain.Witness{},
		notifications: map[string]domain.Notification{},
	}
}

func (s memoryState) clone() memoryState {
	out := newMemoryState()
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.debts {
		out.debts[k] = v
	}
	for k, v := range s.installments {
		out.installments[k] = v
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	for k, v := range s.witnesses {
		out.witnesses[k] = v
	}
	for k, v := range s.notifications {
		out.notifications[k] = v
	}
	return out
}

// WithinTx runs fn against a working copy and publishes it only on success.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := &memoryTx{state: m.state.clone()}
	if err := fn(work); err != nil {
		return err
	}
	m.state = work.state
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

type memoryTx struct {
	state memoryState
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

func (t *memoryTx) InsertUser(_ context.Context, u domain.User) error {
	if _, ok := t.state.users[u.ID]; ok {
		return fmt.Errorf("%w: users_pkey", ErrDuplicate)
	}
	for _, other := range t.state.users {
		if other.Code == u.Code {
			return fmt.Errorf("%w: users_code_key", ErrDuplicate)
		}
	}
	t.state.users[u.ID] = u
	return nil
}

func (t *memoryTx) GetUser(_ context.Context, id string) (domain.User, error) {
	u, ok := t.state.users[id]
	if !ok {
		return domain.User{}, notFound("user", id)
	}
	return u, nil
}

func (t *memoryTx) GetUserByCode(_ context.Context, code string) (domain.User, error) {
	for _, u := range t.state.users {
		if u.Code == code {
			return u, nil
		}
	}
	return domain.User{}, notFound("user code", code)
}

func (t *memoryTx) InsertDebt(_ context.Context, d domain.Debt) error {
	if _, ok := t.state.debts[d.ID]; ok {
		return fmt.Errorf("%w: debts_pkey", ErrDuplicate)
	}
	t.state.debts[d.ID] = d
	return nil
}

func (t *memoryTx) GetDebt(_ context.Context, id string) (domain.Debt, error) {
	d, ok := t.state.debts[id]
	if !ok {
		return domain.Debt{}, notFound("debt", id)
	}
	return d, nil
}

func (t *memoryTx) LockDebt(ctx context.Context, id string) (domain.Debt, error) {
	return t.GetDebt(ctx, id)
}

func (t *memoryTx) UpdateDebt(_ context.Context, d domain.Debt) error {
	if _, ok := t.state.debts[d.ID]; !ok {
		return notFound("debt", d.ID)
	}
	t.state.debts[d.ID] = d
	return nil
}

func (t *memoryTx) DeleteDebt(_ context.Context, id string) error {
	if _, ok := t.state.debts[id]; !ok {
		return notFound("debt", id)
	}
	for k, v := range t.state.notifications {
		if v.DebtID == id {
			delete(t.state.notifications, k)
		}
	}
	for k, v := range t.state.payments {
		if v.DebtID == id {
			delete(t.state.payments, k)
		}
	}
	for k, v := range t.state.witnesses {
		if v.DebtID == id {
			delete(t.state.witnesses, k)
		}
	}
	for k, v := range t.state.installments {
		if v.DebtID == id {
			delete(t.state.installments, k)
		}
	}
	delete(t.state.debts, id)
	return nil
}

func (t *memoryTx) ListDebts(_ context.Context, opts ListDebtsOptions) ([]domain.Debt, error) {
	var out []domain.Debt
	for _, d := range t.state.debts {
		if !t.visibleTo(d, opts.UserID) {
			continue
		}
		if opts.Status != "" && d.Status != opts.Status {
			continue
		}
		if opts.Role != "" && !holdsRole(d, opts.UserID, opts.Role) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit := normalizeLimit(opts.Limit, 50, 200); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memoryTx) ScanDebts(_ context.Context, opts ScanDebtsOptions) ([]domain.Debt, error) {
	var out []domain.Debt
	for _, d := range t.state.debts {
		if opts.Mode != "" && d.Mode != opts.Mode {
			continue
		}
		if opts.Status != "" && d.Status != opts.Status {
			continue
		}
		if opts.AfterID != "" && d.ID <= opts.AfterID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit := normalizeLimit(opts.Limit, 500, 5000); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memoryTx) visibleTo(d domain.Debt, userID string) bool {
	if d.IsParty(userID) || (d.UpgradeRecipientID != "" && d.UpgradeRecipientID == userID) {
		return true
	}
	for _, w := range t.state.witnesses {
		if w.DebtID == d.ID && w.UserID == userID {
			return true
		}
	}
	return false
}

func holdsRole(d domain.Debt, userID string, role domain.Role) bool {
	switch role {
	case domain.RoleLender:
		return d.LenderID == userID && (d.Mode == domain.ModeMutual || d.CreatorRole == domain.RoleLender)
	case domain.RoleBorrower:
		if d.Mode == domain.ModeMutual {
			return d.BorrowerID == userID
		}
		return d.LenderID == userID && d.CreatorRole == domain.RoleBorrower
	}
	return false
}

func (t *memoryTx) InsertInstallments(_ context.Context, items []domain.Installment) error {
	for _, it := range items {
		if _, ok := t.state.debts[it.DebtID]; !ok {
			return notFound("debt", it.DebtID)
		}
		t.state.installments[it.ID] = it
	}
	return nil
}

func (t *memoryTx) ListInstallments(_ context.Context, debtID string) ([]domain.Installment, error) {
	var out []domain.Installment
	for _, it := range t.state.installments {
		if it.DebtID == debtID {
			out = append(out, it)
		}
	}
	sortInstallments(out)
	return out, nil
}

func sortInstallments(items []domain.Installment) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].DueDate.Equal(items[j].DueDate) {
			return items[i].DueDate.Before(items[j].DueDate)
		}
		return items[i].ID < items[j].ID
	})
}

func (t *memoryTx) LockInstallment(_ context.Context, id string) (domain.Installment, error) {
	it, ok := t.state.installments[id]
	if !ok {
		return domain.Installment{}, notFound("installment", id)
	}
	return it, nil
}

func (t *memoryTx) UpdateInstallmentStatus(_ context.Context, id string, status domain.InstallmentStatus, at time.Time) error {
	it, ok := t.state.installments[id]
	if !ok {
		return notFound("installment", id)
	}
	it.Status = status
	it.UpdatedAt = at
	t.state.installments[id] = it
	return nil
}

func (t *memoryTx) ListDueInstallments(_ context.Context, opts DueInstallmentsOptions) ([]DueInstallment, error) {
	var items []domain.Installment
	for _, it := range t.state.installments {
		d, ok := t.state.debts[it.DebtID]
		if !ok || d.Status != domain.DebtActive || it.Status != opts.Status {
			continue
		}
		if opts.DueBefore != nil && !it.DueDate.Before(*opts.DueBefore) {
			continue
		}
		if opts.DueOn != nil && !it.DueDate.Equal(*opts.DueOn) {
			continue
		}
		if opts.AfterID != "" && it.ID <= opts.AfterID {
			continue
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit := normalizeLimit(opts.Limit, 500, 5000); len(items) > limit {
		items = items[:limit]
	}

	out := make([]DueInstallment, 0, len(items))
	for _, it := range items {
		out = append(out, DueInstallment{Installment: it, Debt: t.state.debts[it.DebtID]})
	}
	return out, nil
}

func (t *memoryTx) MarkInstallmentOverdue(_ context.Context, id string, at time.Time) (bool, error) {
	it, ok := t.state.installments[id]
	if !ok || it.Status != domain.InstallmentUpcoming {
		return false, nil
	}
	it.Status = domain.InstallmentOverdue
	it.UpdatedAt = at
	t.state.installments[id] = it
	return true, nil
}

func (t *memoryTx) TouchInstallmentReminder(_ context.Context, id string, at time.Time) error {
	it, ok := t.state.installments[id]
	if !ok {
		return notFound("installment", id)
	}
	it.LastRemindedAt = &at
	t.state.installments[id] = it
	return nil
}

func (t *memoryTx) InsertPayment(_ context.Context, p domain.Payment) error {
	if _, ok := t.state.debts[p.DebtID]; !ok {
		return notFound("debt", p.DebtID)
	}
	t.state.payments[p.ID] = p
	return nil
}

func (t *memoryTx) GetPayment(_ context.Context, id string) (domain.Payment, error) {
	p, ok := t.state.payments[id]
	if !ok {
		return domain.Payment{}, notFound("payment", id)
	}
	return p, nil
}

func (t *memoryTx) LockPayment(ctx context.Context, id string) (domain.Payment, error) {
	return t.GetPayment(ctx, id)
}

func (t *memoryTx) UpdatePayment(_ context.Context, p domain.Payment) error {
	if _, ok := t.state.payments[p.ID]; !ok {
		return notFound("payment", p.ID)
	}
	t.state.payments[p.ID] = p
	return nil
}

func (t *memoryTx) ListPayments(_ context.Context, debtID string) ([]domain.Payment, error) {
	return t.filterPayments(func(p domain.Payment) bool { return p.DebtID == debtID }), nil
}

func (t *memoryTx) ListInstallmentPayments(_ context.Context, installmentID string) ([]domain.Payment, error) {
	return t.filterPayments(func(p domain.Payment) bool { return p.InstallmentID == installmentID }), nil
}

func (t *memoryTx) filterPayments(keep func(domain.Payment) bool) []domain.Payment {
	var out []domain.Payment
	for _, p := range t.state.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *memoryTx) SumApprovedPayments(_ context.Context, debtID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range t.state.payments {
		if p.DebtID == debtID && p.Status == domain.PaymentApproved {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (t *memoryTx) InsertWitness(_ context.Context, w domain.Witness) error {
	for _, other := range t.state.witnesses {
		if other.DebtID == w.DebtID && other.UserID == w.UserID {
			return fmt.Errorf("%w: witnesses_debt_id_user_id_key", ErrDuplicate)
		}
	}
	t.state.witnesses[w.ID] = w
	return nil
}

func (t *memoryTx) ListWitnesses(_ context.Context, debtID string) ([]domain.Witness, error) {
	var out []domain.Witness
	for _, w := range t.state.witnesses {
		if w.DebtID == debtID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memoryTx) GetWitness(_ context.Context, debtID, userID string) (domain.Witness, error) {
	for _, w := range t.state.witnesses {
		if w.DebtID == debtID && w.UserID == userID {
			return w, nil
		}
	}
	return domain.Witness{}, notFound("witness", userID)
}

func (t *memoryTx) UpdateWitness(_ context.Context, w domain.Witness) error {
	if _, ok := t.state.witnesses[w.ID]; !ok {
		return notFound("witness", w.ID)
	}
	t.state.witnesses[w.ID] = w
	return nil
}

func (t *memoryTx) InsertNotification(_ context.Context, n domain.Notification) error {
	t.state.notifications[n.ID] = n
	return nil
}

func (t *memoryTx) ListNotifications(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range t.state.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit = normalizeLimit(limit, 50, 200); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memoryTx) MarkNotificationRead(_ context.Context, id, userID string, at time.Time) (bool, error) {
	n, ok := t.state.notifications[id]
	if !ok || n.UserID != userID || n.ReadAt != nil {
		return false, nil
	}
	n.ReadAt = &at
	t.state.notifications[id] = n
	return true, nil
}
