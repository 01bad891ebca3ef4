package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/consult-service/internal/api/dto"
	"github.com/spec-kit/consult-service/internal/auth"
	"github.com/spec-kit/consult-service/internal/domain"
	"github.com/spec-kit/consult-service/internal/service"
	apperrors "github.com/spec-kit/consult-service/pkg/util"
)

// NotificationsHandler exposes the notification inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs the handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List returns the caller's inbox newest-first plus the unread counter.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing principal")
	}

	filter := service.NotificationListFilter{
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	if v := c.Query("status"); v != "" {
		status := domain.NotificationStatus(v)
		filter.Status = &status
	}

	items, total, unread, err := h.notifications.List(c.Context(), principal.UserID, filter)
	if err != nil {
		return err
	}

	resp := dto.NotificationListResponse{
		Items:  make([]dto.NotificationResponse, 0, len(items)),
		Total:  total,
		Unread: unread,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for i := range items {
		resp.Items = append(resp.Items, dto.FromNotification(&items[i]))
	}
	return c.JSON(resp)
}

// MarkRead acknowledges one notification for the caller.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing principal")
	}

	notification, err := h.notifications.MarkRead(c.Context(), c.Params("id"), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromNotification(notification))
}
