package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

func TestWitnessLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	carol := f.user(t, "Carol")
	dave := f.user(t, "Dave")

	debt := f.mutualDebt(t, alice, bob, domain.RoleLender, "100", domain.InstallmentLumpSum)

	if _, err := f.ledger.InviteWitness(ctx, debt.Debt.ID, bob.ID, UserRef{ID: carol.ID}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-creator invite: expected ErrForbidden, got %v", err)
	}
	details, err := f.ledger.InviteWitness(ctx, debt.Debt.ID, alice.ID, UserRef{Code: carol.Code})
	if err != nil {
		t.Fatalf("InviteWitness returned error: %v", err)
	}
	if len(details.Witnesses) != 1 || details.Witnesses[0].Status != domain.WitnessInvited {
		t.Fatalf("unexpected witnesses %+v", details.Witnesses)
	}
	if f.dispatcher.count(carol.ID, domain.NotifyWitnessInvited) != 1 {
		t.Fatalf("expected carol to be invited")
	}

	if _, err := f.ledger.ConfirmWitness(ctx, debt.Debt.ID, dave.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("uninvited confirm: expected ErrForbidden, got %v", err)
	}
	w, err := f.ledger.ConfirmWitness(ctx, debt.Debt.ID, carol.ID)
	if err != nil {
		t.Fatalf("ConfirmWitness returned error: %v", err)
	}
	if w.Status != domain.WitnessConfirmed || w.ConfirmedAt == nil {
		t.Fatalf("unexpected witness %+v", w)
	}
	if f.dispatcher.count(alice.ID, domain.NotifyWitnessConfirmed) != 1 {
		t.Fatalf("expected the creator to hear about the confirmation")
	}

	again, err := f.ledger.ConfirmWitness(ctx, debt.Debt.ID, carol.ID)
	if !errors.Is(err, ErrAlreadyProcessed) || again.Status != domain.WitnessConfirmed {
		t.Fatalf("second confirm: expected ErrAlreadyProcessed with current state, got %v %+v", err, again)
	}
	if _, err := f.ledger.DeclineWitness(ctx, debt.Debt.ID, carol.ID); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("decline after confirm: expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestDeclineWitness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	carol := f.user(t, "Carol")
	debt := f.personalDebt(t, alice, domain.RoleLender, "10", domain.InstallmentLumpSum)

	if _, err := f.ledger.InviteWitness(ctx, debt.Debt.ID, alice.ID, UserRef{ID: carol.ID}); err != nil {
		t.Fatalf("InviteWitness returned error: %v", err)
	}
	w, err := f.ledger.DeclineWitness(ctx, debt.Debt.ID, carol.ID)
	if err != nil {
		t.Fatalf("DeclineWitness returned error: %v", err)
	}
	if w.Status != domain.WitnessDeclined || w.ConfirmedAt != nil {
		t.Fatalf("unexpected witness %+v", w)
	}
	if f.dispatcher.count(alice.ID, domain.NotifyWitnessDeclined) != 1 {
		t.Fatalf("expected the creator to hear about the decline")
	}
}

func TestWitnessConstraints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	carol := f.user(t, "Carol")
	dave := f.user(t, "Dave")
	erin := f.user(t, "Erin")

	debt := f.mutualDebt(t, alice, bob, domain.RoleLender, "100", domain.InstallmentLumpSum)
	invite := func(ref UserRef) error {
		_, err := f.ledger.InviteWitness(ctx, debt.Debt.ID, alice.ID, ref)
		return err
	}
	expectWitnessProblem := func(name string, err error) {
		t.Helper()
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Fields["witness"] == "" {
			t.Fatalf("%s: expected witness validation error, got %v", name, err)
		}
	}

	expectWitnessProblem("creator", invite(UserRef{ID: alice.ID}))
	expectWitnessProblem("counterparty", invite(UserRef{ID: bob.ID}))
	expectWitnessProblem("unknown code", invite(UserRef{Code: "ZZZZZZZZ"}))

	if err := invite(UserRef{ID: carol.ID}); err != nil {
		t.Fatalf("invite carol: %v", err)
	}
	expectWitnessProblem("duplicate", invite(UserRef{ID: carol.ID}))
	if err := invite(UserRef{ID: dave.ID}); err != nil {
		t.Fatalf("invite dave: %v", err)
	}
	expectWitnessProblem("third witness", invite(UserRef{ID: erin.ID}))

	if _, err := f.ledger.RejectDebt(ctx, debt.Debt.ID, bob.ID); err != nil {
		t.Fatalf("RejectDebt returned error: %v", err)
	}
	closed := f.mutualDebt(t, alice, bob, domain.RoleLender, "5", domain.InstallmentLumpSum)
	if _, err := f.ledger.RejectDebt(ctx, closed.Debt.ID, bob.ID); err != nil {
		t.Fatalf("RejectDebt returned error: %v", err)
	}
	_, err := f.ledger.InviteWitness(ctx, closed.Debt.ID, alice.ID, UserRef{ID: erin.ID})
	expectWitnessProblem("closed debt", err)
}

func TestCreateDebtWithWitnesses(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	carol := f.user(t, "Carol")
	dave := f.user(t, "Dave")

	details, err := f.ledger.CreateDebt(context.Background(), CreateDebtInput{
		CreatorID:       alice.ID,
		Mode:            domain.ModeMutual,
		CreatorRole:     domain.RoleLender,
		Counterparty:    UserRef{ID: bob.ID},
		Amount:          money("100"),
		Currency:        "USD",
		Deadline:        f.date(2026, 6, 1),
		InstallmentType: domain.InstallmentLumpSum,
		Witnesses:       []UserRef{{ID: carol.ID}, {Code: dave.Code}},
	})
	if err != nil {
		t.Fatalf("CreateDebt returned error: %v", err)
	}
	if len(details.Witnesses) != 2 {
		t.Fatalf("expected 2 witnesses, got %d", len(details.Witnesses))
	}
	if f.dispatcher.total(domain.NotifyWitnessInvited) != 2 {
		t.Fatalf("expected both witnesses to be invited")
	}
}
