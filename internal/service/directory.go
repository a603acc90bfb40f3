package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/repository"
	"github.com/vanshika/debtledger/backend/internal/usercode"
)

// RegisterUserInput is the inbound payload for creating a user.
type RegisterUserInput struct {
	DisplayName    string
	Email          string
	TelegramChatID int64
}

// RegisterUser creates a user with a fresh personal code. Code collisions are
// retried with new candidates, each in its own transaction, and fail with
// usercode.ErrExhausted once MaxAttempts candidates have collided.
func (s *LedgerService) RegisterUser(ctx context.Context, in RegisterUserInput) (domain.User, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Email = strings.TrimSpace(in.Email)

	var v validation
	if in.DisplayName == "" {
		v.add("display_name", "can't be blank")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			v.add("email", "is not a valid address")
		}
	}
	if in.TelegramChatID < 0 {
		v.add("telegram_chat_id", "must not be negative")
	}
	if err := v.err(); err != nil {
		return domain.User{}, err
	}

	for attempt := 1; attempt <= usercode.MaxAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return domain.User{}, err
		}
		user := domain.User{
			ID:             s.newID(),
			Code:           code,
			DisplayName:    in.DisplayName,
			Email:          in.Email,
			TelegramChatID: in.TelegramChatID,
			CreatedAt:      s.now(),
		}
		err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
			return tx.InsertUser(ctx, user)
		})
		if err == nil {
			s.logger.Info("user registered", "user_id", user.ID, "attempts", attempt)
			return user, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, err
		}
		s.logger.Debug("user code collision", "attempt", attempt)
	}
	return domain.User{}, fmt.Errorf("register user after %d attempts: %w", usercode.MaxAttempts, usercode.ErrExhausted)
}

// LookupByCode resolves a personal code to its user. Malformed codes are
// reported as not found.
func (s *LedgerService) LookupByCode(ctx context.Context, code string) (domain.User, error) {
	var out domain.User
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = resolveUser(ctx, tx, UserRef{Code: code})
		return err
	})
	return out, err
}

// GetUser returns a user by id.
func (s *LedgerService) GetUser(ctx context.Context, id string) (domain.User, error) {
	var out domain.User
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.GetUser(ctx, id)
		return lookupErr(err, "user")
	})
	return out, err
}
