package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vanshika/debtledger/backend/internal/usercode"
)

func TestRegisterUserAssignsCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.ledger.RegisterUser(ctx, RegisterUserInput{DisplayName: "  Alice  ", Email: "alice@example.com", TelegramChatID: 42})
	if err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}
	if u.DisplayName != "Alice" || len(u.Code) != usercode.Length {
		t.Fatalf("unexpected user %+v", u)
	}

	found, err := f.ledger.LookupByCode(ctx, strings.ToLower(u.Code))
	if err != nil {
		t.Fatalf("LookupByCode returned error: %v", err)
	}
	if found.ID != u.ID {
		t.Fatalf("lookup resolved %s, want %s", found.ID, u.ID)
	}
	if _, err := f.ledger.LookupByCode(ctx, "not a code!"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("malformed code: expected ErrNotFound, got %v", err)
	}
	if _, err := f.ledger.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user: expected ErrNotFound, got %v", err)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.RegisterUser(context.Background(), RegisterUserInput{DisplayName: " ", Email: "nope", TelegramChatID: -1})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"display_name", "email", "telegram_chat_id"} {
		if verr.Fields[field] == "" {
			t.Errorf("expected a problem for %q", field)
		}
	}
}

func TestRegisterUserRetriesCollisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	codes := []string{"AAAA2222", "AAAA2222", "AAAA2222", "BBBB3333"}
	calls := 0
	f.ledger.WithCodeGenerator(func() (string, error) {
		code := codes[calls]
		calls++
		return code, nil
	})

	first, err := f.ledger.RegisterUser(ctx, RegisterUserInput{DisplayName: "First"})
	if err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}
	second, err := f.ledger.RegisterUser(ctx, RegisterUserInput{DisplayName: "Second"})
	if err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}
	if first.Code != "AAAA2222" || second.Code != "BBBB3333" {
		t.Fatalf("codes = %s, %s", first.Code, second.Code)
	}
	if calls != 4 {
		t.Fatalf("expected 4 candidates drawn, got %d", calls)
	}
}

func TestRegisterUserGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	calls := 0
	f.ledger.WithCodeGenerator(func() (string, error) {
		calls++
		return "CCCC4444", nil
	})
	if _, err := f.ledger.RegisterUser(ctx, RegisterUserInput{DisplayName: "Holder"}); err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}

	calls = 0
	_, err := f.ledger.RegisterUser(ctx, RegisterUserInput{DisplayName: "Unlucky"})
	if !errors.Is(err, usercode.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if calls != usercode.MaxAttempts {
		t.Fatalf("expected %d attempts, got %d", usercode.MaxAttempts, calls)
	}
}

func TestRegisterUserGeneratorError(t *testing.T) {
	f := newFixture(t)
	boom := fmt.Errorf("entropy unavailable")
	f.ledger.WithCodeGenerator(func() (string, error) { return "", boom })

	if _, err := f.ledger.RegisterUser(context.Background(), RegisterUserInput{DisplayName: "X"}); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}
