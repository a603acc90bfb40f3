package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

func TestCreateMutualDebtStartsPending(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")

	details := f.mutualDebt(t, alice, bob, domain.RoleLender, "100.00", domain.InstallmentMonthly)

	if details.Debt.Status != domain.DebtPending {
		t.Fatalf("expected pending debt, got %s", details.Debt.Status)
	}
	if details.Debt.LenderID != alice.ID || details.Debt.BorrowerID != bob.ID {
		t.Fatalf("unexpected parties: lender=%s borrower=%s", details.Debt.LenderID, details.Debt.BorrowerID)
	}
	if len(details.Installments) != 0 {
		t.Fatalf("pending debt must not have installments, got %d", len(details.Installments))
	}
	if got := f.dispatcher.count(bob.ID, domain.NotifyDebtRequest); got != 1 {
		t.Fatalf("expected one debt request for bob, got %d", got)
	}
}

func TestCreateDebtByCounterpartyCode(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")

	details, err := f.ledger.CreateDebt(context.Background(), CreateDebtInput{
		CreatorID:       bob.ID,
		Mode:            domain.ModeMutual,
		CreatorRole:     domain.RoleBorrower,
		Counterparty:    UserRef{Code: "  " + strings.ToLower(alice.Code) + " "},
		Amount:          money("40"),
		Currency:        "EUR",
		Deadline:        f.date(2026, 4, 1),
		InstallmentType: domain.InstallmentLumpSum,
	})
	if err != nil {
		t.Fatalf("CreateDebt returned error: %v", err)
	}
	if details.Debt.LenderID != alice.ID || details.Debt.BorrowerID != bob.ID {
		t.Fatalf("borrower-created debt has wrong sides: %+v", details.Debt)
	}
	if f.dispatcher.count(alice.ID, domain.NotifyDebtRequest) != 1 {
		t.Fatalf("expected the lender to be asked for confirmation")
	}
}

func TestCreateDebtValidation(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")

	_, err := f.ledger.CreateDebt(context.Background(), CreateDebtInput{
		CreatorID:       alice.ID,
		Mode:            domain.ModeMutual,
		CreatorRole:     "banker",
		Amount:          money("10.123"),
		Deadline:        f.date(2026, 3, 1),
		InstallmentType: "weekly",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"amount", "currency", "deadline", "counterparty", "creator_role", "installment_type"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected a problem for %q, got %v", field, verr.Fields)
		}
	}
}

func TestAmountsAboveStorageLimitAreRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")

	_, err := f.ledger.CreateDebt(ctx, CreateDebtInput{
		CreatorID:        alice.ID,
		Mode:             domain.ModePersonal,
		CreatorRole:      domain.RoleLender,
		CounterpartyName: "Sam from work",
		Amount:           money("1000000000000"),
		Currency:         "USD",
		Deadline:         f.date(2026, 6, 1),
		InstallmentType:  domain.InstallmentLumpSum,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["amount"] == "" {
		t.Fatalf("expected amount validation error, got %v", err)
	}

	debt := f.personalDebt(t, alice, domain.RoleBorrower, "100", domain.InstallmentLumpSum)
	_, err = f.ledger.SubmitPayment(ctx, SubmitPaymentInput{
		DebtID:      debt.Debt.ID,
		SubmitterID: alice.ID,
		Amount:      money("1000000000000"),
	})
	if !errors.As(err, &verr) || verr.Fields["amount"] != "must be at most 999999999999.99" {
		t.Fatalf("expected payment amount validation error, got %v", err)
	}
}

func TestCreateDebtRejectsSelfAsCounterparty(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")

	_, err := f.ledger.CreateDebt(context.Background(), CreateDebtInput{
		CreatorID:       alice.ID,
		Mode:            domain.ModeMutual,
		CreatorRole:     domain.RoleLender,
		Counterparty:    UserRef{ID: alice.ID},
		Amount:          money("10"),
		Currency:        "USD",
		Deadline:        f.date(2026, 5, 1),
		InstallmentType: domain.InstallmentLumpSum,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["counterparty"] == "" {
		t.Fatalf("expected counterparty validation error, got %v", err)
	}
}

func TestConfirmDebtGeneratesScheduleFromToday(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")

	details := f.activeMutualDebt(t, alice, bob, "100.00", domain.InstallmentMonthly)

	if details.Debt.Status != domain.DebtActive {
		t.Fatalf("expected active debt, got %s", details.Debt.Status)
	}
	want := []struct {
		amount string
		due    string
	}{
		{"33.33", "2026-04-01"},
		{"33.33", "2026-05-01"},
		{"33.34", "2026-06-01"},
	}
	if len(details.Installments) != len(want) {
		t.Fatalf("expected %d installments, got %d", len(want), len(details.Installments))
	}
	for i, w := range want {
		inst := details.Installments[i]
		if !inst.Amount.Equal(money(w.amount)) || inst.DueDate.Format(domain.DateLayout) != w.due {
			t.Errorf("installment %d = %s on %s, want %s on %s", i, inst.Amount, inst.DueDate.Format(domain.DateLayout), w.amount, w.due)
		}
		if inst.Status != domain.InstallmentUpcoming {
			t.Errorf("installment %d status = %s", i, inst.Status)
		}
	}
	if f.dispatcher.count(alice.ID, domain.NotifyDebtConfirmed) != 1 {
		t.Fatalf("expected the creator to hear about the confirmation")
	}
	if _, ok := f.projector.projected[details.Debt.ID]; !ok {
		t.Fatalf("expected confirmed debt to be projected")
	}
}

func TestConfirmDebtGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	carol := f.user(t, "Carol")

	created := f.mutualDebt(t, alice, bob, domain.RoleLender, "50", domain.InstallmentLumpSum)

	if _, err := f.ledger.ConfirmDebt(ctx, created.Debt.ID, alice.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("creator confirming: expected ErrForbidden, got %v", err)
	}
	if _, err := f.ledger.ConfirmDebt(ctx, created.Debt.ID, carol.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger confirming: expected ErrForbidden, got %v", err)
	}
	if _, err := f.ledger.ConfirmDebt(ctx, created.Debt.ID, bob.ID); err != nil {
		t.Fatalf("ConfirmDebt returned error: %v", err)
	}

	_, err := f.ledger.ConfirmDebt(ctx, created.Debt.ID, bob.ID)
	if !errors.Is(err, ErrAlreadyProcessed) || !errors.Is(err, ErrConflict) {
		t.Fatalf("second confirm: expected ErrAlreadyProcessed, got %v", err)
	}
	if _, err := f.ledger.RejectDebt(ctx, created.Debt.ID, bob.ID); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("reject after confirm: expected ErrAlreadyProcessed, got %v", err)
	}

	details := f.details(t, bob.ID, created.Debt.ID)
	if details.Debt.Status != domain.DebtActive || len(details.Installments) != 1 {
		t.Fatalf("debt changed by a refused action: %s with %d installments", details.Debt.Status, len(details.Installments))
	}
}

func TestRejectDebt(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	created := f.mutualDebt(t, alice, bob, domain.RoleLender, "50", domain.InstallmentMonthly)

	details, err := f.ledger.RejectDebt(context.Background(), created.Debt.ID, bob.ID)
	if err != nil {
		t.Fatalf("RejectDebt returned error: %v", err)
	}
	if details.Debt.Status != domain.DebtRejected || len(details.Installments) != 0 {
		t.Fatalf("unexpected rejected debt: %s with %d installments", details.Debt.Status, len(details.Installments))
	}
	if f.dispatcher.count(alice.ID, domain.NotifyDebtRejected) != 1 {
		t.Fatalf("expected the creator to hear about the rejection")
	}
}

func TestPersonalDebtIsActiveImmediately(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")

	details := f.personalDebt(t, alice, domain.RoleBorrower, "90", domain.InstallmentMonthly)
	if details.Debt.Status != domain.DebtActive {
		t.Fatalf("expected active personal debt, got %s", details.Debt.Status)
	}
	if details.Debt.LenderID != alice.ID || details.Debt.BorrowerID != "" {
		t.Fatalf("personal debt must be owned by its creator: %+v", details.Debt)
	}
	if details.Debt.PayerID() != alice.ID {
		t.Fatalf("creator records payments on a personal debt")
	}
	if len(details.Installments) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(details.Installments))
	}
	if len(f.dispatcher.sent) != 0 {
		t.Fatalf("personal debts notify nobody, got %d notifications", len(f.dispatcher.sent))
	}
	if _, err := f.ledger.ConfirmDebt(context.Background(), details.Debt.ID, alice.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("personal debts can't be confirmed, got %v", err)
	}
}

func TestCustomSplitHasNoInstallments(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")
	details := f.personalDebt(t, alice, domain.RoleLender, "90", domain.InstallmentCustomSplit)
	if len(details.Installments) != 0 {
		t.Fatalf("custom split must not generate installments, got %d", len(details.Installments))
	}
}

func TestCreateDebtWithInvalidWitnessRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")

	_, err := f.ledger.CreateDebt(ctx, CreateDebtInput{
		CreatorID:       alice.ID,
		Mode:            domain.ModeMutual,
		CreatorRole:     domain.RoleLender,
		Counterparty:    UserRef{ID: bob.ID},
		Amount:          money("100"),
		Currency:        "USD",
		Deadline:        f.date(2026, 6, 1),
		InstallmentType: domain.InstallmentLumpSum,
		Witnesses:       []UserRef{{ID: bob.ID}},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["witness"] == "" {
		t.Fatalf("expected witness validation error, got %v", err)
	}

	debts, err := f.ledger.ListDebts(ctx, ListDebtsParams{UserID: alice.ID})
	if err != nil {
		t.Fatalf("ListDebts returned error: %v", err)
	}
	if len(debts) != 0 {
		t.Fatalf("expected no debt after a failed create, got %d", len(debts))
	}
	if len(f.dispatcher.sent) != 0 {
		t.Fatalf("rolled back work must not notify, got %d", len(f.dispatcher.sent))
	}
}

func TestDeleteDebtRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")

	pending := f.mutualDebt(t, alice, bob, domain.RoleLender, "10", domain.InstallmentLumpSum)
	if err := f.ledger.DeleteDebt(ctx, pending.Debt.ID, bob.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-creator delete: expected ErrForbidden, got %v", err)
	}
	if err := f.ledger.DeleteDebt(ctx, pending.Debt.ID, alice.ID); err != nil {
		t.Fatalf("DeleteDebt(pending) returned error: %v", err)
	}
	if _, err := f.ledger.GetDebt(ctx, alice.ID, pending.Debt.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted debt should be gone, got %v", err)
	}
	if len(f.projector.removed) != 1 || f.projector.removed[0] != pending.Debt.ID {
		t.Fatalf("expected deleted debt to be removed from the graph, got %v", f.projector.removed)
	}

	active := f.activeMutualDebt(t, alice, bob, "10", domain.InstallmentLumpSum)
	var verr *ValidationError
	if err := f.ledger.DeleteDebt(ctx, active.Debt.ID, alice.ID); !errors.As(err, &verr) {
		t.Fatalf("active mutual delete: expected validation error, got %v", err)
	}

	personal := f.personalDebt(t, alice, domain.RoleLender, "10", domain.InstallmentLumpSum)
	f.submit(t, personal.Debt.ID, alice, "4")
	if err := f.ledger.DeleteDebt(ctx, personal.Debt.ID, alice.ID); err != nil {
		t.Fatalf("DeleteDebt(personal) returned error: %v", err)
	}
}

func TestGetDebtVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	carol := f.user(t, "Carol")
	dave := f.user(t, "Dave")

	created := f.mutualDebt(t, alice, bob, domain.RoleLender, "10", domain.InstallmentLumpSum)
	if _, err := f.ledger.InviteWitness(ctx, created.Debt.ID, alice.ID, UserRef{ID: carol.ID}); err != nil {
		t.Fatalf("InviteWitness returned error: %v", err)
	}

	for _, id := range []string{alice.ID, bob.ID, carol.ID} {
		if _, err := f.ledger.GetDebt(ctx, id, created.Debt.ID); err != nil {
			t.Errorf("GetDebt as %s returned error: %v", id, err)
		}
	}
	if _, err := f.ledger.GetDebt(ctx, dave.ID, created.Debt.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger read: expected ErrForbidden, got %v", err)
	}
	if _, err := f.ledger.GetDebt(ctx, alice.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing debt: expected ErrNotFound, got %v", err)
	}
}

func TestListDebtsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")

	f.mutualDebt(t, alice, bob, domain.RoleLender, "10", domain.InstallmentLumpSum)
	f.activeMutualDebt(t, alice, bob, "20", domain.InstallmentLumpSum)
	f.personalDebt(t, alice, domain.RoleBorrower, "30", domain.InstallmentLumpSum)

	all, err := f.ledger.ListDebts(ctx, ListDebtsParams{UserID: alice.ID})
	if err != nil {
		t.Fatalf("ListDebts returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 debts for alice, got %d", len(all))
	}

	active, err := f.ledger.ListDebts(ctx, ListDebtsParams{UserID: alice.ID, Status: domain.DebtActive})
	if err != nil {
		t.Fatalf("ListDebts returned error: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active debts, got %d", len(active))
	}

	bobs, err := f.ledger.ListDebts(ctx, ListDebtsParams{UserID: bob.ID})
	if err != nil {
		t.Fatalf("ListDebts returned error: %v", err)
	}
	if len(bobs) != 2 {
		t.Fatalf("bob should only see the shared debts, got %d", len(bobs))
	}
}
