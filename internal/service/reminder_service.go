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

// ReminderService manages scheduled reminder tasks ahead of dispatch.
type ReminderService struct {
	tasks  repository.ReminderTaskRepository
	logger *zap.Logger
}

// NewReminderService constructs the service.
func NewReminderService(tasks repository.ReminderTaskRepository, logger *zap.Logger) *ReminderService {
	return &ReminderService{tasks: tasks, logger: logger}
}

// ReminderCreateInput describes a scheduled reminder.
type ReminderCreateInput struct {
	EventType string
	EventID   string
	UserID    string
	Channel   domain.ReminderChannel
	Title     string
	Body      string
	FireAt    time.Time
}

var validChannels = map[domain.ReminderChannel]bool{
	domain.ChannelInApp:         true,
	domain.ChannelSystemMessage: true,
	domain.ChannelSMS:           true,
	domain.ChannelPush:          true,
}

// Create schedules a reminder task. Any known channel is accepted at
// creation time; unsupported channels fail at dispatch instead.
func (s *ReminderService) Create(ctx context.Context, input ReminderCreateInput) (*domain.ReminderTask, error) {
	if input.UserID == "" {
		return nil, apperrors.NewValidationError("user_id required", nil)
	}
	if input.EventType == "" {
		return nil, apperrors.NewValidationError("event_type required", nil)
	}
	if !validChannels[input.Channel] {
		return nil, apperrors.NewValidationError("unknown channel", map[string]any{"channel": input.Channel})
	}
	if input.FireAt.IsZero() {
		return nil, apperrors.NewValidationError("fire_at required", nil)
	}

	task := &domain.ReminderTask{
		EventType: input.EventType,
		EventID:   input.EventID,
		UserID:    input.UserID,
		Channel:   input.Channel,
		Title:     input.Title,
		Body:      input.Body,
		FireAt:    input.FireAt.UTC(),
		Status:    domain.ReminderStatusPending,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.NewPersistenceError("create reminder task", err)
	}
	return task, nil
}

// Get fetches a reminder task by id.
func (s *ReminderService) Get(ctx context.Context, id string) (*domain.ReminderTask, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("reminder task", map[string]any{"id": id})
		}
		return nil, err
	}
	return task, nil
}

// Cancel withdraws a still-pending task. A task already dispatched, failed
// or cancelled is reported as a conflict.
func (s *ReminderService) Cancel(ctx context.Context, id string) (*domain.ReminderTask, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := s.tasks.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperrors.NewConflict("reminder task is no longer pending", map[string]any{
			"id":     id,
			"status": task.Status,
		})
	}
	return s.Get(ctx, id)
}
