package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/consult-service/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	// CreateBatch inserts all attachments for a message in one batch.
	// Callers run it inside the same transaction as the message insert so
	// the pair is all-or-nothing.
	CreateBatch(ctx context.Context, messageID string, attachments []domain.Attachment) error
	ListByMessage(ctx context.Context, messageID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	db DB
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(db DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) CreateBatch(ctx context.Context, messageID string, attachments []domain.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}
	const query = `
        INSERT INTO attachments (message_id, url, thumbnail_url, duration_seconds, size_bytes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`

	batch := &pgx.Batch{}
	for i := range attachments {
		att := &attachments[i]
		batch.Queue(query, messageID, att.URL, att.ThumbnailURL, att.DurationSeconds, att.SizeBytes)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := range attachments {
		att := &attachments[i]
		if err := results.QueryRow().Scan(&att.ID, &att.CreatedAt); err != nil {
			return err
		}
		att.MessageID = messageID
	}
	return nil
}

func (r *attachmentRepository) ListByMessage(ctx context.Context, messageID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, message_id, url, thumbnail_url, duration_seconds, size_bytes, created_at
        FROM attachments WHERE message_id=$1 ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(
			&att.ID,
			&att.MessageID,
			&att.URL,
			&att.ThumbnailURL,
			&att.DurationSeconds,
			&att.SizeBytes,
			&att.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}
