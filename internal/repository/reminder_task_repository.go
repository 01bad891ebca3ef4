package repository

import (
	"context"
	"time"

	"github.com/spec-kit/consult-service/internal/domain"
)

// ReminderTaskRepository persists scheduled reminder tasks.
type ReminderTaskRepository interface {
	Create(ctx context.Context, task *domain.ReminderTask) error
	GetByID(ctx context.Context, id string) (*domain.ReminderTask, error)
	// ListDue returns PENDING tasks whose fire time has passed, ordered by
	// fire time then id, bounded by limit.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ReminderTask, error)
	// MarkSent, MarkFailed and Cancel are conditional on PENDING: a task
	// transitions out of PENDING exactly once and is never re-queued.
	MarkSent(ctx context.Context, id string) (bool, error)
	MarkFailed(ctx context.Context, id, reason string) (bool, error)
	Cancel(ctx context.Context, id string) (bool, error)
}

type reminderTaskRepository struct {
	db DB
}

// NewReminderTaskRepository instantiates repository.
func NewReminderTaskRepository(db DB) ReminderTaskRepository {
	return &reminderTaskRepository{db: db}
}

const reminderColumns = `id, event_type, event_id, user_id, channel, title, body, fire_at, status, failure_reason, created_at, updated_at`

func (r *reminderTaskRepository) Create(ctx context.Context, task *domain.ReminderTask) error {
	const query = `
        INSERT INTO reminder_tasks (event_type, event_id, user_id, channel, title, body, fire_at, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	if task.Status == "" {
		task.Status = domain.ReminderStatusPending
	}
	return r.db.QueryRow(ctx, query,
		task.EventType,
		task.EventID,
		task.UserID,
		task.Channel,
		task.Title,
		task.Body,
		task.FireAt,
		task.Status,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *reminderTaskRepository) GetByID(ctx context.Context, id string) (*domain.ReminderTask, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminder_tasks WHERE id=$1`
	var task domain.ReminderTask
	if err := scanReminderTask(r.db.QueryRow(ctx, query, id), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *reminderTaskRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ReminderTask, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + reminderColumns + `
        FROM reminder_tasks WHERE status=$1 AND fire_at <= $2
        ORDER BY fire_at ASC, id ASC LIMIT $3`
	rows, err := r.db.Query(ctx, query, domain.ReminderStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ReminderTask
	for rows.Next() {
		var task domain.ReminderTask
		if err := scanReminderTask(rows, &task); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

func (r *reminderTaskRepository) MarkSent(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, domain.ReminderStatusSent, nil)
}

func (r *reminderTaskRepository) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	return r.transition(ctx, id, domain.ReminderStatusFailed, &reason)
}

func (r *reminderTaskRepository) Cancel(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, domain.ReminderStatusCancelled, nil)
}

func (r *reminderTaskRepository) transition(ctx context.Context, id string, to domain.ReminderTaskStatus, reason *string) (bool, error) {
	const query = `
        UPDATE reminder_tasks SET status=$1, failure_reason=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := r.db.Exec(ctx, query, to, reason, id, domain.ReminderStatusPending)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanReminderTask(row rowScanner, task *domain.ReminderTask) error {
	return row.Scan(
		&task.ID,
		&task.EventType,
		&task.EventID,
		&task.UserID,
		&task.Channel,
		&task.Title,
		&task.Body,
		&task.FireAt,
		&task.Status,
		&task.FailureReason,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
}
