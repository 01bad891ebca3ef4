package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/consult-service/internal/scheduler"
)

// AdminHandler exposes operational triggers. Staff only.
type AdminHandler struct {
	dispatcher *scheduler.ReminderDispatcher
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(dispatcher *scheduler.ReminderDispatcher) *AdminHandler {
	return &AdminHandler{dispatcher: dispatcher}
}

// TriggerDispatch runs one reminder sweep immediately.
func (h *AdminHandler) TriggerDispatch(c *fiber.Ctx) error {
	result, err := h.dispatcher.RunOnce(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// TriggerCareSweep runs the care-task sweep immediately.
func (h *AdminHandler) TriggerCareSweep(c *fiber.Ctx) error {
	notified, err := h.dispatcher.RunCareSweep(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users_notified": notified})
}
