package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func seedDebt(t *testing.T, store *MemoryStore, d domain.Debt, installments ...domain.Installment) {
	t.Helper()
	err := store.WithinTx(context.Background(), func(tx Tx) error {
		if err := tx.InsertDebt(context.Background(), d); err != nil {
			return err
		}
		return tx.InsertInstallments(context.Background(), installments)
	})
	if err != nil {
		t.Fatalf("seed debt %s: %v", d.ID, err)
	}
}

func activeDebt(id, lender, borrower string) domain.Debt {
	return domain.Debt{
		ID:              id,
		Mode:            domain.ModeMutual,
		CreatorRole:     domain.RoleLender,
		Status:          domain.DebtActive,
		LenderID:        lender,
		BorrowerID:      borrower,
		Amount:          decimal.RequireFromString("300.00"),
		Currency:        "USD",
		InstallmentType: domain.InstallmentMonthly,
		CreatedAt:       baseTime,
		UpdatedAt:       baseTime,
	}
}

func TestMemoryStoreRollsBackFailedUnit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.InsertUser(ctx, domain.User{ID: "u1", Code: "AAAA2222"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = store.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.GetUser(ctx, "u1")
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected user to be rolled back, got %v", err)
	}
}

func TestMemoryStoreRejectsDuplicateCode(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.InsertUser(ctx, domain.User{ID: "u1", Code: "AAAA2222"}); err != nil {
			return err
		}
		return tx.InsertUser(ctx, domain.User{ID: "u2", Code: "AAAA2222"})
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestMemoryStoreDueInstallments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	seedDebt(t, store, activeDebt("d1", "lender", "borrower"),
		domain.Installment{ID: "i2", DebtID: "d1", Amount: decimal.RequireFromString("150.00"), DueDate: april, Status: domain.InstallmentUpcoming},
		domain.Installment{ID: "i1", DebtID: "d1", Amount: decimal.RequireFromString("150.00"), DueDate: march, Status: domain.InstallmentUpcoming},
	)
	pending := activeDebt("d2", "lender", "borrower")
	pending.Status = domain.DebtPending
	seedDebt(t, store, pending,
		domain.Installment{ID: "i3", DebtID: "d2", Amount: decimal.RequireFromString("300.00"), DueDate: march, Status: domain.InstallmentUpcoming},
	)

	cutoff := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	err := store.WithinTx(ctx, func(tx Tx) error {
		due, err := tx.ListDueInstallments(ctx, DueInstallmentsOptions{Status: domain.InstallmentUpcoming, DueBefore: &cutoff})
		if err != nil {
			return err
		}
		if len(due) != 1 || due[0].Installment.ID != "i1" || due[0].Debt.ID != "d1" {
			t.Fatalf("unexpected due installments: %+v", due)
		}

		on, err := tx.ListDueInstallments(ctx, DueInstallmentsOptions{Status: domain.InstallmentUpcoming, DueOn: &april})
		if err != nil {
			return err
		}
		if len(on) != 1 || on[0].Installment.ID != "i2" {
			t.Fatalf("unexpected installments due on april 1: %+v", on)
		}

		changed, err := tx.MarkInstallmentOverdue(ctx, "i1", baseTime)
		if err != nil || !changed {
			t.Fatalf("expected first mark to change, got %v %v", changed, err)
		}
		changed, err = tx.MarkInstallmentOverdue(ctx, "i1", baseTime)
		if err != nil || changed {
			t.Fatalf("expected second mark to be a no-op, got %v %v", changed, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unit failed: %v", err)
	}
}

func TestMemoryStoreListDebtsByRole(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seedDebt(t, store, activeDebt("d1", "alice", "bob"))
	seedDebt(t, store, activeDebt("d2", "bob", "alice"))
	personal := domain.Debt{
		ID:          "d3",
		Mode:        domain.ModePersonal,
		CreatorRole: domain.RoleBorrower,
		Status:      domain.DebtActive,
		LenderID:    "alice",
		Amount:      decimal.RequireFromString("20.00"),
		CreatedAt:   baseTime.Add(time.Hour),
	}
	seedDebt(t, store, personal)

	tests := []struct {
		name string
		role domain.Role
		want []string
	}{
		{name: "all", want: []string{"d3", "d1", "d2"}},
		{name: "lender", role: domain.RoleLender, want: []string{"d1"}},
		{name: "borrower", role: domain.RoleBorrower, want: []string{"d3", "d2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []domain.Debt
			err := store.WithinTx(ctx, func(tx Tx) error {
				var err error
				got, err = tx.ListDebts(ctx, ListDebtsOptions{UserID: "alice", Role: tt.role})
				return err
			})
			if err != nil {
				t.Fatalf("list debts: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d debts, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestMemoryStoreScanDebtsPages(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"d1", "d2", "d3"} {
		seedDebt(t, store, activeDebt(id, "alice", "bob"))
	}

	var seen []string
	after := ""
	for {
		var page []domain.Debt
		err := store.WithinTx(ctx, func(tx Tx) error {
			var err error
			page, err = tx.ScanDebts(ctx, ScanDebtsOptions{AfterID: after, Limit: 2})
			return err
		})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if len(page) == 0 {
			break
		}
		for _, d := range page {
			seen = append(seen, d.ID)
		}
		after = page[len(page)-1].ID
	}
	if len(seen) != 3 || seen[0] != "d1" || seen[2] != "d3" {
		t.Fatalf("unexpected scan order: %v", seen)
	}
}

func TestMemoryStoreDeleteDebtCascades(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedDebt(t, store, activeDebt("d1", "alice", "bob"),
		domain.Installment{ID: "i1", DebtID: "d1", Amount: decimal.RequireFromString("300.00"), DueDate: baseTime, Status: domain.InstallmentUpcoming},
	)

	err := store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.InsertPayment(ctx, domain.Payment{ID: "p1", DebtID: "d1", InstallmentID: "i1", Amount: decimal.RequireFromString("10.00"), Status: domain.PaymentApproved}); err != nil {
			return err
		}
		if err := tx.InsertNotification(ctx, domain.Notification{ID: "n1", UserID: "bob", DebtID: "d1"}); err != nil {
			return err
		}
		return tx.DeleteDebt(ctx, "d1")
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	err = store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.GetPayment(ctx, "p1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected payment to be removed, got %v", err)
		}
		sum, err := tx.SumApprovedPayments(ctx, "d1")
		if err != nil {
			return err
		}
		if !sum.IsZero() {
			t.Fatalf("expected zero approved sum, got %s", sum)
		}
		notes, err := tx.ListNotifications(ctx, "bob", 0)
		if err != nil {
			return err
		}
		if len(notes) != 0 {
			t.Fatalf("expected notifications to be removed, got %d", len(notes))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestMemoryStoreMarkNotificationRead(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.InsertNotification(ctx, domain.Notification{ID: "n1", UserID: "bob", CreatedAt: baseTime}); err != nil {
			return err
		}
		if ok, _ := tx.MarkNotificationRead(ctx, "n1", "alice", baseTime); ok {
			t.Fatal("expected another user's mark to be refused")
		}
		if ok, _ := tx.MarkNotificationRead(ctx, "n1", "bob", baseTime); !ok {
			t.Fatal("expected owner's mark to succeed")
		}
		if ok, _ := tx.MarkNotificationRead(ctx, "n1", "bob", baseTime); ok {
			t.Fatal("expected second mark to be a no-op")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unit failed: %v", err)
	}
}

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 50},
		{-3, 50},
		{10, 10},
		{500, 200},
	}
	for _, tt := range tests {
		if got := normalizeLimit(tt.in, 50, 200); got != tt.want {
			t.Errorf("normalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
