package notify

import (
	"context"
	"log/slog"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

// LogSender writes notifications to the log. Used when no bot is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, n domain.Notification) error {
	s.logger.Info("notification",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"type", n.Type,
		"debt_id", n.DebtID,
		"message", n.Message,
	)
	return nil
}
