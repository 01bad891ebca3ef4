package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/consult-service/internal/domain"
	"github.com/spec-kit/consult-service/internal/realtime"
	"github.com/spec-kit/consult-service/internal/repository"
	apperrors "github.com/spec-kit/consult-service/pkg/util"
)

// ConsultationService coordinates consultation workflows: thread creation,
// transactional message appends and status advancement.
type ConsultationService struct {
	consultations repository.ConsultationRepository
	messages      repository.MessageRepository
	attachments   repository.AttachmentRepository
	uow           repository.UnitOfWork
	publisher     realtime.Publisher
	logger        *zap.Logger
}

// ConsultationDependencies bundles collaborators for the service.
type ConsultationDependencies struct {
	ConsultationRepo repository.ConsultationRepository
	MessageRepo      repository.MessageRepository
	AttachmentRepo   repository.AttachmentRepository
	UnitOfWork       repository.UnitOfWork
	Publisher        realtime.Publisher
	Logger           *zap.Logger
}

// ConsultationCreateInput describes thread creation payload.
type ConsultationCreateInput struct {
	Title         string
	Description   *string
	CreatorRole   domain.ActorRole
	CreatorID     string
	TargetStaffID string
	Category      *string
	Priority      domain.ConsultationPriority
	Anonymous     bool
}

// ConsultationListFilter describes listing filters. Filters combine
// conjunctively; SortBy/SortDir must name an allow-listed field.
type ConsultationListFilter struct {
	Status        *domain.ConsultationStatus
	CreatorID     *string
	TargetStaffID *string
	Category      *string
	SortBy        string
	SortDir       string
	Limit         int
	Offset        int
}

// MessageAttachmentInput defines attachment metadata.
type MessageAttachmentInput struct {
	URL             string
	ThumbnailURL    *string
	DurationSeconds *int
	SizeBytes       *int64
}

// MessageCreateInput describes a message append payload.
type MessageCreateInput struct {
	SenderRole  domain.ActorRole
	SenderID    *string
	DisplayName *string
	ContentType domain.MessageContentType
	Content     *string
	Attachments []MessageAttachmentInput
}

// NewConsultationService constructs the service.
func NewConsultationService(deps ConsultationDependencies) *ConsultationService {
	return &ConsultationService{
		consultations: deps.ConsultationRepo,
		messages:      deps.MessageRepo,
		attachments:   deps.AttachmentRepo,
		uow:           deps.UnitOfWork,
		publisher:     deps.Publisher,
		logger:        deps.Logger,
	}
}

// sortableFields enumerates the allowed ORDER BY columns for listings.
var sortableFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"priority":   true,
	"status":     true,
}

// CreateConsultation opens a new thread in PENDING state.
func (s *ConsultationService) CreateConsultation(ctx context.Context, input ConsultationCreateInput) (*domain.Consultation, error) {
	consultation := &domain.Consultation{
		Code:          generateConsultationCode(),
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		CreatorRole:   input.CreatorRole,
		CreatorID:     input.CreatorID,
		TargetStaffID: input.TargetStaffID,
		Category:      input.Category,
		Status:        domain.ConsultationStatusPending,
		Priority:      input.Priority,
		Anonymous:     input.Anonymous,
	}
	if consultation.Priority == "" {
		consultation.Priority = domain.ConsultationPriorityNormal
	}

	if err := s.consultations.Create(ctx, consultation); err != nil {
		return nil, apperrors.NewPersistenceError("create consultation", err)
	}

	stored, err := s.consultations.GetByID(ctx, consultation.ID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("re-read created consultation", err)
	}
	return stored, nil
}

// GetConsultation fetches a thread by id.
func (s *ConsultationService) GetConsultation(ctx context.Context, id string) (*domain.Consultation, error) {
	consultation, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("consultation", map[string]any{"id": id})
		}
		return nil, err
	}
	return consultation, nil
}

// ListConsultations returns a filtered page of threads.
func (s *ConsultationService) ListConsultations(ctx context.Context, filter ConsultationListFilter) ([]domain.Consultation, int64, error) {
	orderBy, err := buildOrderBy(filter.SortBy, filter.SortDir)
	if err != nil {
		return nil, 0, err
	}
	repoFilter := repository.ConsultationFilter{
		Status:        filter.Status,
		CreatorID:     filter.CreatorID,
		TargetStaffID: filter.TargetStaffID,
		Category:      filter.Category,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
		OrderBy:       orderBy,
	}
	return s.consultations.ListWithFilter(ctx, repoFilter)
}

// PostMessage appends a message (plus attachments) to a thread. The thread
// re-read, message insert and attachment batch run inside one transaction;
// on any failure before commit nothing persists and the error propagates
// unchanged. The PENDING -> IN_PROGRESS bump and the live publish happen
// after commit and are best-effort: their failure never undoes the message.
func (s *ConsultationService) PostMessage(ctx context.Context, consultationID string, input MessageCreateInput) (*domain.Message, error) {
	var created *domain.Message
	var preStatus domain.ConsultationStatus

	err := s.uow.WithinTx(ctx, func(tx repository.TxRepos) error {
		// Re-read inside the transaction to avoid racing a delete.
		consultation, err := tx.Consultations.GetByID(ctx, consultationID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("consultation", map[string]any{"id": consultationID})
			}
			return err
		}
		preStatus = consultation.Status

		msg := &domain.Message{
			ConsultationID: consultationID,
			SenderRole:     input.SenderRole,
			SenderID:       input.SenderID,
			DisplayName:    input.DisplayName,
			ContentType:    input.ContentType,
			Content:        input.Content,
			SentAt:         time.Now().UTC(),
			DeliveryStatus: domain.DeliveryStatusSent,
			Visible:        true,
		}
		if err := tx.Messages.Create(ctx, msg); err != nil {
			return err
		}

		if len(input.Attachments) > 0 {
			attachments := make([]domain.Attachment, 0, len(input.Attachments))
			for _, att := range input.Attachments {
				attachments = append(attachments, domain.Attachment{
					URL:             att.URL,
					ThumbnailURL:    att.ThumbnailURL,
					DurationSeconds: att.DurationSeconds,
					SizeBytes:       att.SizeBytes,
				})
			}
			if err := tx.Attachments.CreateBatch(ctx, msg.ID, attachments); err != nil {
				return err
			}
			msg.Attachments = attachments
		}

		created = msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	stored, err := s.messages.GetByID(ctx, created.ID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("re-read created message", err)
	}
	stored.Attachments = created.Attachments

	// First reply moves the thread out of PENDING. The conditional update
	// is a no-op once another writer already advanced it.
	if preStatus == domain.ConsultationStatusPending {
		if _, err := s.consultations.AdvanceStatus(ctx, consultationID, domain.ConsultationStatusPending, domain.ConsultationStatusInProgress); err != nil {
			s.logger.Warn("status bump failed after message commit",
				zap.String("consultation_id", consultationID),
				zap.Error(err))
		}
	}

	if s.publisher != nil {
		s.publisher.PublishMessage(ctx, consultationID, stored)
	}
	return stored, nil
}

// ListMessages returns a thread's messages oldest-first with attachments
// resolved per message.
func (s *ConsultationService) ListMessages(ctx context.Context, consultationID string, limit, offset int) ([]domain.Message, int64, error) {
	if _, err := s.consultations.GetByID(ctx, consultationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, apperrors.NewNotFound("consultation", map[string]any{"id": consultationID})
		}
		return nil, 0, err
	}

	msgs, total, err := s.messages.ListByConsultation(ctx, consultationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range msgs {
		attachments, err := s.attachments.ListByMessage(ctx, msgs[i].ID)
		if err != nil {
			return nil, 0, err
		}
		msgs[i].Attachments = attachments
	}
	return msgs, total, nil
}

// statusRank orders the consultation lifecycle; transitions only move forward.
var statusRank = map[domain.ConsultationStatus]int{
	domain.ConsultationStatusPending:    0,
	domain.ConsultationStatusInProgress: 1,
	domain.ConsultationStatusResolved:   2,
	domain.ConsultationStatusClosed:     3,
}

// UpdateStatus advances a thread's lifecycle state. Backward transitions are
// rejected; a concurrent identical transition resolves to the current state.
func (s *ConsultationService) UpdateStatus(ctx context.Context, id string, newStatus domain.ConsultationStatus) (*domain.Consultation, error) {
	newRank, ok := statusRank[newStatus]
	if !ok {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}

	consultation, err := s.GetConsultation(ctx, id)
	if err != nil {
		return nil, err
	}
	if statusRank[consultation.Status] >= newRank {
		return nil, apperrors.NewValidationError("status may only move forward", map[string]any{
			"current":   consultation.Status,
			"requested": newStatus,
		})
	}

	changed, err := s.consultations.AdvanceStatus(ctx, id, consultation.Status, newStatus)
	if err != nil {
		return nil, err
	}
	if !changed {
		s.logger.Info("status transition raced; returning current state",
			zap.String("consultation_id", id),
			zap.String("requested", string(newStatus)))
	}
	return s.GetConsultation(ctx, id)
}

// generateConsultationCode derives a human-readable code from the current
// time plus a short random suffix; the store's unique constraint backstops
// the unlikely collision.
func generateConsultationCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("CSL-%s-%s", time.Now().UTC().Format("20060102150405"), suffix)
}

func buildOrderBy(sortBy, sortDir string) (string, error) {
	sortBy = strings.TrimSpace(strings.ToLower(sortBy))
	if sortBy == "" {
		return "created_at DESC", nil
	}
	if !sortableFields[sortBy] {
		return "", apperrors.NewValidationError("unsupported sort field", map[string]any{"sort_by": sortBy})
	}
	dir := strings.ToUpper(strings.TrimSpace(sortDir))
	switch dir {
	case "":
		dir = "DESC"
	case "ASC", "DESC":
	default:
		return "", apperrors.NewValidationError("unsupported sort direction", map[string]any{"sort_dir": sortDir})
	}
	return sortBy + " " + dir, nil
}
