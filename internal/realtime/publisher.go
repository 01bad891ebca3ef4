package realtime

import (
	"context"

	"github.com/spec-kit/consult-service/internal/domain"
	"github.com/spec-kit/consult-service/internal/observability"
)

// Publisher pushes newly created records to the relevant room. Both methods
// are best-effort: the durable row is already committed when they run, and a
// failed or dropped push is never surfaced to the write path.
type Publisher interface {
	PublishMessage(ctx context.Context, consultationID string, msg *domain.Message)
	PublishNotification(ctx context.Context, userID string, notification *domain.Notification)
}

// HubPublisher fans out to sessions connected to this process.
type HubPublisher struct {
	hub     *Hub
	metrics *observability.Metrics
}

// NewHubPublisher binds a publisher to a hub.
func NewHubPublisher(hub *Hub, metrics *observability.Metrics) *HubPublisher {
	return &HubPublisher{hub: hub, metrics: metrics}
}

func (p *HubPublisher) PublishMessage(ctx context.Context, consultationID string, msg *domain.Message) {
	p.metrics.RecordPublish(EventNewMessage)
	p.hub.Publish(Envelope{
		Room:  RoomForQuestion(consultationID),
		Event: EventNewMessage,
		Data:  MessageToPayload(msg),
	})
}

func (p *HubPublisher) PublishNotification(ctx context.Context, userID string, notification *domain.Notification) {
	p.metrics.RecordPublish(EventNotificationNew)
	p.hub.Publish(Envelope{
		Room:  RoomForUser(userID),
		Event: EventNotificationNew,
		Data:  NotificationToPayload(notification),
	})
}
