package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/consult-service/internal/domain"
	"github.com/spec-kit/consult-service/internal/repository"
	apperrors "github.com/spec-kit/consult-service/pkg/util"
)

// NotificationService reads and acknowledges a user's notification inbox.
type NotificationService struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(notifications repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, logger: logger}
}

// NotificationListFilter scopes inbox listing.
type NotificationListFilter struct {
	Status *domain.NotificationStatus
	Limit  int
	Offset int
}

// List returns the caller's notifications newest-first, with the total count
// and the unread count.
func (s *NotificationService) List(ctx context.Context, userID string, filter NotificationListFilter) ([]domain.Notification, int64, int64, error) {
	items, total, err := s.notifications.ListByUser(ctx, userID, repository.NotificationFilter{
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, 0, 0, err
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}
	return items, total, unread, nil
}

// MarkRead acknowledges a notification. A notification that does not exist
// or belongs to another user reads as not found, so non-owners cannot probe
// for existence. Marking an already-read notification is an idempotent no-op.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	notification, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return nil, err
	}
	if notification.UserID != userID {
		return nil, apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	if notification.Status == domain.NotificationStatusRead {
		return notification, nil
	}

	changed, err := s.notifications.MarkRead(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !changed {
		s.logger.Debug("mark-read raced; returning stored state", zap.String("notification_id", id))
	}
	return s.notifications.GetByID(ctx, id)
}
