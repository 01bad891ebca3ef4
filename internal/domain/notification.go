package domain

import "time"

// NotificationStatus tracks inbox read-state.
type NotificationStatus string

const (
	NotificationStatusUnread NotificationStatus = "UNREAD"
	NotificationStatusRead   NotificationStatus = "READ"
)

// Notification is a durable inbox entry for a user. It is mutated exactly
// once, when the owner acknowledges it (UNREAD -> READ).
type Notification struct {
	ID        string
	UserID    string
	EventType string
	EventID   string
	Title     string
	Body      string
	Status    NotificationStatus
	CreatedAt time.Time
	ReadAt    *time.Time
}
