package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

// UserLookup resolves the recipient of a notification.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
}

// botAPI is the part of *tgbotapi.BotAPI the sender uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender delivers notifications as direct messages to users that
// linked a Telegram chat. Users without one are skipped.
type TelegramSender struct {
	api    botAPI
	users  UserLookup
	logger *slog.Logger
}

// NewTelegramBot connects to the Bot API with token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return api, nil
}

// NewTelegramSender returns a sender posting through api.
func NewTelegramSender(api botAPI, users UserLookup, logger *slog.Logger) *TelegramSender {
	return &TelegramSender{api: api, users: users, logger: logger}
}

func (s *TelegramSender) Send(ctx context.Context, n domain.Notification) error {
	user, err := s.users.GetUser(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", n.UserID, err)
	}
	if user.TelegramChatID == 0 {
		s.logger.Debug("recipient has no telegram chat", "user_id", user.ID)
		return nil
	}
	msg := tgbotapi.NewMessage(user.TelegramChatID, n.Message)
	msg.DisableWebPagePreview = true
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
