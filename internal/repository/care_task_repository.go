package repository

import (
	"context"
	"time"

	"github.com/spec-kit/consult-service/internal/domain"
)

// CareTaskRepository reads scheduled care plan task instances. The daily
// sweep only consumes them; creation belongs to the care-plan producer.
type CareTaskRepository interface {
	ListPendingForDate(ctx context.Context, date time.Time) ([]domain.CareTask, error)
}

type careTaskRepository struct {
	db DB
}

// NewCareTaskRepository instantiates repository.
func NewCareTaskRepository(db DB) CareTaskRepository {
	return &careTaskRepository{db: db}
}

func (r *careTaskRepository) ListPendingForDate(ctx context.Context, date time.Time) ([]domain.CareTask, error) {
	const query = `
        SELECT t.id, t.plan_id, p.title, t.user_id, t.name, t.scheduled_on, t.status, t.created_at
        FROM care_tasks t
        JOIN care_task_plans p ON p.id = t.plan_id
        WHERE t.scheduled_on = $1::date AND t.status = $2
        ORDER BY t.user_id, t.id`
	rows, err := r.db.Query(ctx, query, date, domain.CareTaskStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CareTask
	for rows.Next() {
		var task domain.CareTask
		if err := rows.Scan(
			&task.ID,
			&task.PlanID,
			&task.PlanTitle,
			&task.UserID,
			&task.Name,
			&task.ScheduledOn,
			&task.Status,
			&task.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}
