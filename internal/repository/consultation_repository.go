package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/consult-service/internal/domain"
)

// ConsultationFilter captures listing parameters. Filters combine
// conjunctively.
type ConsultationFilter struct {
	Status        *domain.ConsultationStatus
	CreatorID     *string
	TargetStaffID *string
	Category      *string
	Limit         int
	Offset        int
	// OrderBy must already be validated against the sortable-field
	// allow-list by the service layer.
	OrderBy string
}

// ConsultationRepository encapsulates consultation persistence.
type ConsultationRepository interface {
	Create(ctx context.Context, consultation *domain.Consultation) error
	GetByID(ctx context.Context, id string) (*domain.Consultation, error)
	ListWithFilter(ctx context.Context, filter ConsultationFilter) ([]domain.Consultation, int64, error)
	// AdvanceStatus moves a consultation from one status to another.
	// The update is conditional on the current status, so concurrent
	// identical transitions are idempotent no-ops. Returns true when a
	// row actually changed.
	AdvanceStatus(ctx context.Context, id string, from, to domain.ConsultationStatus) (bool, error)
}

type consultationRepository struct {
	db DB
}

// NewConsultationRepository instantiates repository.
func NewConsultationRepository(db DB) ConsultationRepository {
	return &consultationRepository{db: db}
}

const consultationColumns = `id, code, title, description, creator_role, creator_id, target_staff_id,
               category, status, priority, anonymous, created_at, updated_at, resolved_at, closed_at`

func (r *consultationRepository) Create(ctx context.Context, consultation *domain.Consultation) error {
	const query = `
        INSERT INTO consultations (code, title, description, creator_role, creator_id, target_staff_id, category, status, priority, anonymous)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		consultation.Code,
		consultation.Title,
		consultation.Description,
		consultation.CreatorRole,
		consultation.CreatorID,
		consultation.TargetStaffID,
		consultation.Category,
		consultation.Status,
		consultation.Priority,
		consultation.Anonymous,
	).Scan(&consultation.ID, &consultation.CreatedAt, &consultation.UpdatedAt)
}

func (r *consultationRepository) GetByID(ctx context.Context, id string) (*domain.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id=$1`
	var c domain.Consultation
	if err := scanConsultation(r.db.QueryRow(ctx, query, id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *consultationRepository) ListWithFilter(ctx context.Context, filter ConsultationFilter) ([]domain.Consultation, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.TargetStaffID != nil {
		args = append(args, *filter.TargetStaffID)
		clauses = append(clauses, fmt.Sprintf("target_staff_id=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM consultations WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := filter.OrderBy
	if strings.TrimSpace(orderBy) == "" {
		orderBy = "created_at DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM consultations WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		consultationColumns, where, orderBy, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Consultation
	for rows.Next() {
		var c domain.Consultation
		if err := scanConsultation(rows, &c); err != nil {
			return nil, 0, err
		}
		result = append(result, c)
	}
	return result, total, rows.Err()
}

func (r *consultationRepository) AdvanceStatus(ctx context.Context, id string, from, to domain.ConsultationStatus) (bool, error) {
	query := `UPDATE consultations SET status=$1, updated_at=NOW()`
	switch to {
	case domain.ConsultationStatusResolved:
		query += `, resolved_at=NOW()`
	case domain.ConsultationStatusClosed:
		query += `, closed_at=NOW()`
	}
	query += ` WHERE id=$2 AND status=$3`

	cmd, err := r.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsultation(row rowScanner, c *domain.Consultation) error {
	return row.Scan(
		&c.ID,
		&c.Code,
		&c.Title,
		&c.Description,
		&c.CreatorRole,
		&c.CreatorID,
		&c.TargetStaffID,
		&c.Category,
		&c.Status,
		&c.Priority,
		&c.Anonymous,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ResolvedAt,
		&c.ClosedAt,
	)
}
