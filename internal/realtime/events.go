package realtime

import (
	"time"

	"github.com/spec-kit/consult-service/internal/domain"
)

// Event names on the live boundary. Names and payload shapes are part of the
// client protocol and must not change.
const (
	EventJoinedQuestion  = "joined_question"
	EventLeftQuestion    = "left_question"
	EventNewMessage      = "new_message"
	EventNotificationNew = "notification:new"
	EventSendMessageAck  = "send_message:ack"
	EventBindUserAck     = "bind_user:ack"
	EventError           = "error"
)

// Error codes carried by error events.
const (
	ErrCodeInvalidPayload   = "INVALID_PAYLOAD"
	ErrCodeQuestionNotFound = "QUESTION_NOT_FOUND"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// Envelope is one fanout unit: an event published to a room.
type Envelope struct {
	Room  string `json:"room"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// RoomForQuestion names the room shared by everyone viewing a consultation.
func RoomForQuestion(consultationID string) string {
	return "question:" + consultationID
}

// RoomForUser names a user's personal room.
func RoomForUser(userID string) string {
	return "user:" + userID
}

// MessagePayload is the wire shape of a broadcast message.
type MessagePayload struct {
	ID             string              `json:"id"`
	QuestionID     string              `json:"question_id"`
	SenderType     string              `json:"sender_type"`
	SenderID       *string             `json:"sender_id,omitempty"`
	DisplayName    *string             `json:"role_display_name,omitempty"`
	ContentType    string              `json:"content_type"`
	ContentText    *string             `json:"content_text,omitempty"`
	SentAt         string              `json:"sent_at"`
	DeliveryStatus string              `json:"delivery_status"`
	Attachments    []AttachmentPayload `json:"attachments,omitempty"`
}

// AttachmentPayload is the wire shape of a message attachment.
type AttachmentPayload struct {
	ID              string  `json:"id"`
	URL             string  `json:"url"`
	ThumbnailURL    *string `json:"thumbnail_url,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
	SizeBytes       *int64  `json:"size_bytes,omitempty"`
}

// NotificationPayload is the wire shape of a pushed notification.
type NotificationPayload struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	EventID   string `json:"event_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// MessageToPayload converts a stored message into its wire shape.
func MessageToPayload(msg *domain.Message) MessagePayload {
	payload := MessagePayload{
		ID:             msg.ID,
		QuestionID:     msg.ConsultationID,
		SenderType:     string(msg.SenderRole),
		SenderID:       msg.SenderID,
		DisplayName:    msg.DisplayName,
		ContentType:    string(msg.ContentType),
		ContentText:    msg.Content,
		SentAt:         msg.SentAt.UTC().Format(time.RFC3339),
		DeliveryStatus: string(msg.DeliveryStatus),
	}
	for _, att := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, AttachmentPayload{
			ID:              att.ID,
			URL:             att.URL,
			ThumbnailURL:    att.ThumbnailURL,
			DurationSeconds: att.DurationSeconds,
			SizeBytes:       att.SizeBytes,
		})
	}
	return payload
}

// NotificationToPayload converts a stored notification into its wire shape.
func NotificationToPayload(n *domain.Notification) NotificationPayload {
	return NotificationPayload{
		ID:        n.ID,
		EventType: n.EventType,
		EventID:   n.EventID,
		Title:     n.Title,
		Body:      n.Body,
		Status:    string(n.Status),
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
}
