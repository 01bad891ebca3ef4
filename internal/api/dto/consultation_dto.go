package dto

import (
	"time"

	"github.com/spec-kit/consult-service/internal/domain"
)

// CreateConsultationRequest is the thread-creation payload.
type CreateConsultationRequest struct {
	Title         string  `json:"title"`
	Description   *string `json:"description,omitempty"`
	TargetStaffID string  `json:"target_staff_id"`
	Category      *string `json:"category,omitempty"`
	Priority      string  `json:"priority,omitempty"`
	Anonymous     bool    `json:"anonymous"`
}

// UpdateStatusRequest advances a thread's lifecycle state.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AttachmentRequest is attachment metadata on a posted message.
type AttachmentRequest struct {
	URL             string  `json:"url"`
	ThumbnailURL    *string `json:"thumbnail_url,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
	SizeBytes       *int64  `json:"size_bytes,omitempty"`
}

// PostMessageRequest appends a message to a thread.
type PostMessageRequest struct {
	ContentType string              `json:"content_type"`
	Content     *string             `json:"content,omitempty"`
	DisplayName *string             `json:"display_name,omitempty"`
	Attachments []AttachmentRequest `json:"attachments,omitempty"`
}

// ConsultationResponse is the wire shape of a thread.
type ConsultationResponse struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	CreatorRole   string     `json:"creator_role"`
	CreatorID     string     `json:"creator_id,omitempty"`
	TargetStaffID string     `json:"target_staff_id"`
	Category      *string    `json:"category,omitempty"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	Anonymous     bool       `json:"anonymous"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

// AttachmentResponse is the wire shape of an attachment.
type AttachmentResponse struct {
	ID              string  `json:"id"`
	URL             string  `json:"url"`
	ThumbnailURL    *string `json:"thumbnail_url,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
	SizeBytes       *int64  `json:"size_bytes,omitempty"`
}

// MessageResponse is the wire shape of a message.
type MessageResponse struct {
	ID             string               `json:"id"`
	ConsultationID string               `json:"consultation_id"`
	SenderRole     string               `json:"sender_role"`
	SenderID       *string              `json:"sender_id,omitempty"`
	DisplayName    *string              `json:"display_name,omitempty"`
	ContentType    string               `json:"content_type"`
	Content        *string              `json:"content,omitempty"`
	SentAt         time.Time            `json:"sent_at"`
	DeliveryStatus string               `json:"delivery_status"`
	Attachments    []AttachmentResponse `json:"attachments,omitempty"`
}

// ListResponse wraps a paged collection.
type ListResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// FromConsultation maps a domain thread to its response. An anonymous
// thread's creator id is withheld from the wire shape.
func FromConsultation(c *domain.Consultation) ConsultationResponse {
	resp := ConsultationResponse{
		ID:            c.ID,
		Code:          c.Code,
		Title:         c.Title,
		Description:   c.Description,
		CreatorRole:   string(c.CreatorRole),
		CreatorID:     c.CreatorID,
		TargetStaffID: c.TargetStaffID,
		Category:      c.Category,
		Status:        string(c.Status),
		Priority:      string(c.Priority),
		Anonymous:     c.Anonymous,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		ResolvedAt:    c.ResolvedAt,
		ClosedAt:      c.ClosedAt,
	}
	if c.Anonymous {
		resp.CreatorID = ""
	}
	return resp
}

// FromMessage maps a domain message to its response.
func FromMessage(m *domain.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID,
		ConsultationID: m.ConsultationID,
		SenderRole:     string(m.SenderRole),
		SenderID:       m.SenderID,
		DisplayName:    m.DisplayName,
		ContentType:    string(m.ContentType),
		Content:        m.Content,
		SentAt:         m.SentAt,
		DeliveryStatus: string(m.DeliveryStatus),
	}
	for _, att := range m.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			ID:              att.ID,
			URL:             att.URL,
			ThumbnailURL:    att.ThumbnailURL,
			DurationSeconds: att.DurationSeconds,
			SizeBytes:       att.SizeBytes,
		})
	}
	return resp
}
