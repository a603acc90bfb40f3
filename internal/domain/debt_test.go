package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDebt_CreatorAndConfirmingParty(t *testing.T) {
	cases := []struct {
		name       string
		debt       Debt
		creator    string
		confirming string
		payer      string
	}{
		{
			name:       "mutual created by lender",
			debt:       Debt{Mode: ModeMutual, CreatorRole: RoleLender, LenderID: "L", BorrowerID: "B"},
			creator:    "L",
			confirming: "B",
			payer:      "B",
		},
		{
			name:       "mutual created by borrower",
			debt:       Debt{Mode: ModeMutual, CreatorRole: RoleBorrower, LenderID: "L", BorrowerID: "B"},
			creator:    "B",
			confirming: "L",
			payer:      "B",
		},
		{
			name:       "personal acting as borrower",
			debt:       Debt{Mode: ModePersonal, CreatorRole: RoleBorrower, LenderID: "C", CounterpartyName: "Anton"},
			creator:    "C",
			confirming: "",
			payer:      "C",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.debt.CreatorID(); got != tc.creator {
				t.Errorf("creator: want %q got %q", tc.creator, got)
			}
			if got := tc.debt.ConfirmingPartyID(); got != tc.confirming {
				t.Errorf("confirming party: want %q got %q", tc.confirming, got)
			}
			if got := tc.debt.PayerID(); got != tc.payer {
				t.Errorf("payer: want %q got %q", tc.payer, got)
			}
		})
	}
}

func TestDebt_IsParty(t *testing.T) {
	d := Debt{Mode: ModePersonal, LenderID: "C"}
	if d.IsParty("") {
		t.Fatal("empty id must never be a party")
	}
	if !d.IsParty("C") {
		t.Fatal("lender must be a party")
	}
	if d.IsParty("X") {
		t.Fatal("stranger must not be a party")
	}
}

func TestParseEnumsRejectUnknown(t *testing.T) {
	if _, err := ParseMode("group"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := ParseRole("guarantor"); err == nil {
		t.Error("expected error for unknown role")
	}
	if _, err := ParseDebtStatus("closed"); err == nil {
		t.Error("expected error for unknown debt status")
	}
	if _, err := ParseInstallmentType("weekly"); err == nil {
		t.Error("expected error for unknown installment type")
	}
	if _, err := ParsePaymentStatus(""); err == nil {
		t.Error("expected error for empty payment status")
	}
	if s, err := ParseInstallmentType("bi_weekly"); err != nil || s != InstallmentBiWeekly {
		t.Errorf("expected bi_weekly, got %q (%v)", s, err)
	}
}

func TestHasMoneyScale(t *testing.T) {
	if !HasMoneyScale(decimal.RequireFromString("10.50")) {
		t.Error("10.50 has two decimals")
	}
	if !HasMoneyScale(decimal.RequireFromString("10.500")) {
		t.Error("trailing zeros do not add precision")
	}
	if HasMoneyScale(decimal.RequireFromString("10.005")) {
		t.Error("10.005 has three decimals")
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	in := time.Date(2026, 3, 1, 1, 30, 0, 0, loc)
	got := DateOf(in)
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %s got %s", want, got)
	}
}
