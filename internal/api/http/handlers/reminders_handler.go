package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/consult-service/internal/domain"
	"github.com/spec-kit/consult-service/internal/service"
	apperrors "github.com/spec-kit/consult-service/pkg/util"
)

// RemindersHandler manages scheduled reminder tasks. Staff only.
type RemindersHandler struct {
	reminders *service.ReminderService
}

// NewRemindersHandler constructs the handler.
func NewRemindersHandler(reminders *service.ReminderService) *RemindersHandler {
	return &RemindersHandler{reminders: reminders}
}

type createReminderRequest struct {
	EventType string    `json:"event_type"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Channel   string    `json:"channel"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	FireAt    time.Time `json:"fire_at"`
}

type reminderResponse struct {
	ID            string    `json:"id"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	Channel       string    `json:"channel"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	FireAt        time.Time `json:"fire_at"`
	Status        string    `json:"status"`
	FailureReason *string   `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Create schedules a reminder task.
func (h *RemindersHandler) Create(c *fiber.Ctx) error {
	var req createReminderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	task, err := h.reminders.Create(c.Context(), service.ReminderCreateInput{
		EventType: req.EventType,
		EventID:   req.EventID,
		UserID:    req.UserID,
		Channel:   domain.ReminderChannel(req.Channel),
		Title:     req.Title,
		Body:      req.Body,
		FireAt:    req.FireAt,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toReminderResponse(task))
}

// Get returns one reminder task.
func (h *RemindersHandler) Get(c *fiber.Ctx) error {
	task, err := h.reminders.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toReminderResponse(task))
}

// Cancel withdraws a pending reminder task.
func (h *RemindersHandler) Cancel(c *fiber.Ctx) error {
	task, err := h.reminders.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toReminderResponse(task))
}

func toReminderResponse(task *domain.ReminderTask) reminderResponse {
	return reminderResponse{
		ID:            task.ID,
		EventType:     task.EventType,
		EventID:       task.EventID,
		UserID:        task.UserID,
		Channel:       string(task.Channel),
		Title:         task.Title,
		Body:          task.Body,
		FireAt:        task.FireAt,
		Status:        string(task.Status),
		FailureReason: task.FailureReason,
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
	}
}
