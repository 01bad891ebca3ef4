package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/consult-service/internal/api/dto"
	"github.com/spec-kit/consult-service/internal/auth"
	"github.com/spec-kit/consult-service/internal/domain"
	"github.com/spec-kit/consult-service/internal/service"
	apperrors "github.com/spec-kit/consult-service/pkg/util"
)

// ConsultationsHandler exposes consultation thread endpoints.
type ConsultationsHandler struct {
	consultations *service.ConsultationService
}

// NewConsultationsHandler constructs the handler.
func NewConsultationsHandler(consultations *service.ConsultationService) *ConsultationsHandler {
	return &ConsultationsHandler{consultations: consultations}
}

// Create opens a new thread for the authenticated caller.
func (h *ConsultationsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing principal")
	}

	var req dto.CreateConsultationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if req.Title == "" {
		return apperrors.NewValidationError("title required", nil)
	}
	if req.TargetStaffID == "" {
		return apperrors.NewValidationError("target_staff_id required", nil)
	}

	created, err := h.consultations.CreateConsultation(c.Context(), service.ConsultationCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		CreatorRole:   principal.Role,
		CreatorID:     principal.UserID,
		TargetStaffID: req.TargetStaffID,
		Category:      req.Category,
		Priority:      domain.ConsultationPriority(req.Priority),
		Anonymous:     req.Anonymous,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromConsultation(created))
}

// Get returns one thread.
func (h *ConsultationsHandler) Get(c *fiber.Ctx) error {
	consultation, err := h.consultations.GetConsultation(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromConsultation(consultation))
}

// List returns a filtered page of threads.
func (h *ConsultationsHandler) List(c *fiber.Ctx) error {
	filter := service.ConsultationListFilter{
		SortBy:  c.Query("sort_by"),
		SortDir: c.Query("sort_dir"),
		Limit:   queryInt(c, "limit", 20),
		Offset:  queryInt(c, "offset", 0),
	}
	if v := c.Query("status"); v != "" {
		status := domain.ConsultationStatus(v)
		filter.Status = &status
	}
	if v := c.Query("creator_id"); v != "" {
		filter.CreatorID = &v
	}
	if v := c.Query("target_staff_id"); v != "" {
		filter.TargetStaffID = &v
	}
	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}

	items, total, err := h.consultations.ListConsultations(c.Context(), filter)
	if err != nil {
		return err
	}

	resp := dto.ListResponse[dto.ConsultationResponse]{
		Items:  make([]dto.ConsultationResponse, 0, len(items)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for i := range items {
		resp.Items = append(resp.Items, dto.FromConsultation(&items[i]))
	}
	return c.JSON(resp)
}

// PostMessage appends a message to a thread.
func (h *ConsultationsHandler) PostMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing principal")
	}

	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if req.ContentType == "" {
		return apperrors.NewValidationError("content_type required", nil)
	}

	input := service.MessageCreateInput{
		SenderRole:  principal.Role,
		SenderID:    &principal.UserID,
		DisplayName: req.DisplayName,
		ContentType: domain.MessageContentType(req.ContentType),
		Content:     req.Content,
	}
	for _, att := range req.Attachments {
		if att.URL == "" {
			return apperrors.NewValidationError("attachment url required", nil)
		}
		input.Attachments = append(input.Attachments, service.MessageAttachmentInput{
			URL:             att.URL,
			ThumbnailURL:    att.ThumbnailURL,
			DurationSeconds: att.DurationSeconds,
			SizeBytes:       att.SizeBytes,
		})
	}

	msg, err := h.consultations.PostMessage(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromMessage(msg))
}

// ListMessages returns a thread's messages oldest-first.
func (h *ConsultationsHandler) ListMessages(c *fiber.Ctx) error {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	msgs, total, err := h.consultations.ListMessages(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}

	resp := dto.ListResponse[dto.MessageResponse]{
		Items:  make([]dto.MessageResponse, 0, len(msgs)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i := range msgs {
		resp.Items = append(resp.Items, dto.FromMessage(&msgs[i]))
	}
	return c.JSON(resp)
}

// UpdateStatus advances a thread's lifecycle state. Staff only.
func (h *ConsultationsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	updated, err := h.consultations.UpdateStatus(c.Context(), c.Params("id"), domain.ConsultationStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromConsultation(updated))
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	val := c.Query(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
