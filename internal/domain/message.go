package domain

import "time"

// MessageContentType differentiates message payload kinds.
type MessageContentType string

const (
	ContentTypeText   MessageContentType = "TEXT"
	ContentTypeImage  MessageContentType = "IMAGE"
	ContentTypeAudio  MessageContentType = "AUDIO"
	ContentTypeSystem MessageContentType = "SYSTEM"
)

// MessageDeliveryStatus tracks delivery state of a message.
type MessageDeliveryStatus string

const (
	DeliveryStatusSent      MessageDeliveryStatus = "SENT"
	DeliveryStatusDelivered MessageDeliveryStatus = "DELIVERED"
	DeliveryStatusRead      MessageDeliveryStatus = "READ"
	DeliveryStatusFailed    MessageDeliveryStatus = "FAILED"
)

// Message is an append-only entry in a consultation thread,
// strictly ordered by (sent_at, id) within its consultation.
type Message struct {
	ID             string
	ConsultationID string
	SenderRole     ActorRole
	SenderID       *string
	DisplayName    *string
	ContentType    MessageContentType
	Content        *string
	SentAt         time.Time
	DeliveryStatus MessageDeliveryStatus
	Visible        bool
	CreatedAt      time.Time
	Attachments    []Attachment
}

// Attachment stores media metadata owned by a message. Attachments are
// written atomically with their message and never modified afterwards.
type Attachment struct {
	ID              string
	MessageID       string
	URL             string
	ThumbnailURL    *string
	DurationSeconds *int
	SizeBytes       *int64
	CreatedAt       time.Time
}
