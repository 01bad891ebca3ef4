package dto

import (
	"time"

	"github.com/spec-kit/consult-service/internal/domain"
)

// NotificationResponse is the wire shape of an inbox entry.
type NotificationResponse struct {
	ID        string     `json:"id"`
	EventType string     `json:"event_type"`
	EventID   string     `json:"event_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// NotificationListResponse is the inbox page plus the unread counter.
type NotificationListResponse struct {
	Items  []NotificationResponse `json:"items"`
	Total  int64                  `json:"total"`
	Unread int64                  `json:"unread"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// FromNotification maps a domain notification to its response.
func FromNotification(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		EventType: n.EventType,
		EventID:   n.EventID,
		Title:     n.Title,
		Body:      n.Body,
		Status:    string(n.Status),
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
}
