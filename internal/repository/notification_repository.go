package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/consult-service/internal/domain"
)

// NotificationFilter captures inbox listing parameters.
type NotificationFilter struct {
	Status *domain.NotificationStatus
	Limit  int
	Offset int
}

// NotificationRepository persists per-user inbox notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, filter NotificationFilter) ([]domain.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// MarkRead stamps read_at and flips status; conditional on UNREAD so a
	// repeat call changes nothing. Returns true when a row changed.
	MarkRead(ctx context.Context, id string, readAt time.Time) (bool, error)
}

type notificationRepository struct {
	db DB
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(db DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, user_id, event_type, event_id, title, body, status, created_at, read_at`

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, event_type, event_id, title, body, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	if notification.Status == "" {
		notification.Status = domain.NotificationStatusUnread
	}
	return r.db.QueryRow(ctx, query,
		notification.UserID,
		notification.EventType,
		notification.EventID,
		notification.Title,
		notification.Body,
		notification.Status,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id=$1`
	var n domain.Notification
	if err := scanNotification(r.db.QueryRow(ctx, query, id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, filter NotificationFilter) ([]domain.Notification, int64, error) {
	clauses := []string{"user_id=$1"}
	args := []any{userID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM notifications WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		notificationColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, 0, err
		}
		result = append(result, n)
	}
	return result, total, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND status=$2`
	var count int64
	err := r.db.QueryRow(ctx, query, userID, domain.NotificationStatusUnread).Scan(&count)
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string, readAt time.Time) (bool, error) {
	const query = `
        UPDATE notifications SET status=$1, read_at=$2
        WHERE id=$3 AND status=$4`
	cmd, err := r.db.Exec(ctx, query, domain.NotificationStatusRead, readAt, id, domain.NotificationStatusUnread)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanNotification(row rowScanner, n *domain.Notification) error {
	return row.Scan(
		&n.ID,
		&n.UserID,
		&n.EventType,
		&n.EventID,
		&n.Title,
		&n.Body,
		&n.Status,
		&n.CreatedAt,
		&n.ReadAt,
	)
}
