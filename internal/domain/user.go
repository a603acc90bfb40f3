package domain

import "time"

// User is a registered account. Identity itself is managed elsewhere; the
// ledger only needs a display name, the personal lookup code and an optional
// Telegram chat for delivery.
type User struct {
	ID             string
	Code           string
	DisplayName    string
	Email          string
	TelegramChatID int64
	CreatedAt      time.Time
}

// Notification is an in-app message persisted alongside the state change
// that produced it.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	DebtID    string
	Message   string
	Params    map[string]string
	CreatedAt time.Time
	ReadAt    *time.Time
}
