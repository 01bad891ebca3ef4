package repository

import (
	"context"

	"github.com/spec-kit/consult-service/internal/domain"
)

// MessageRepository manages consultation thread messages. Messages are
// append-only and never updated or deleted.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListByConsultation(ctx context.Context, consultationID string, limit, offset int) ([]domain.Message, int64, error)
}

type messageRepository struct {
	db DB
}

// NewMessageRepository builds repository.
func NewMessageRepository(db DB) MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `id, consultation_id, sender_role, sender_id, display_name, content_type,
               content, sent_at, delivery_status, visible, created_at`

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (consultation_id, sender_role, sender_id, display_name, content_type, content, sent_at, delivery_status, visible)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		msg.ConsultationID,
		msg.SenderRole,
		msg.SenderID,
		msg.DisplayName,
		msg.ContentType,
		msg.Content,
		msg.SentAt,
		msg.DeliveryStatus,
		msg.Visible,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id=$1`
	var msg domain.Message
	if err := scanMessage(r.db.QueryRow(ctx, query, id), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByConsultation(ctx context.Context, consultationID string, limit, offset int) ([]domain.Message, int64, error) {
	var total int64
	const countQuery = `SELECT COUNT(*) FROM messages WHERE consultation_id=$1`
	if err := r.db.QueryRow(ctx, countQuery, consultationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	// Oldest-first; id breaks ties between messages sent in the same instant.
	query := `SELECT ` + messageColumns + `
        FROM messages WHERE consultation_id=$1 ORDER BY sent_at ASC, id ASC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, consultationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := scanMessage(rows, &msg); err != nil {
			return nil, 0, err
		}
		result = append(result, msg)
	}
	return result, total, rows.Err()
}

func scanMessage(row rowScanner, msg *domain.Message) error {
	return row.Scan(
		&msg.ID,
		&msg.ConsultationID,
		&msg.SenderRole,
		&msg.SenderID,
		&msg.DisplayName,
		&msg.ContentType,
		&msg.Content,
		&msg.SentAt,
		&msg.DeliveryStatus,
		&msg.Visible,
		&msg.CreatedAt,
	)
}
