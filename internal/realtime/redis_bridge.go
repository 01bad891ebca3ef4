package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/consult-service/internal/domain"
	"github.com/spec-kit/consult-service/internal/observability"
)

// RedisBridge routes publishes through a Redis channel so sessions connected
// to a different process instance still receive them. Every instance runs a
// forwarder that re-broadcasts bridged envelopes into its local hub; the
// publishing instance reaches its own sessions the same way.
type RedisBridge struct {
	logger  *zap.Logger
	client  *redis.Client
	channel string
	metrics *observability.Metrics
}

// NewRedisBridge builds a bridge over the given client and channel.
func NewRedisBridge(logger *zap.Logger, client *redis.Client, channel string, metrics *observability.Metrics) *RedisBridge {
	return &RedisBridge{
		logger:  logger.With(zap.String("component", "redis_bridge")),
		client:  client,
		channel: channel,
		metrics: metrics,
	}
}

func (b *RedisBridge) PublishMessage(ctx context.Context, consultationID string, msg *domain.Message) {
	b.publish(ctx, Envelope{
		Room:  RoomForQuestion(consultationID),
		Event: EventNewMessage,
		Data:  MessageToPayload(msg),
	})
}

func (b *RedisBridge) PublishNotification(ctx context.Context, userID string, notification *domain.Notification) {
	b.publish(ctx, Envelope{
		Room:  RoomForUser(userID),
		Event: EventNotificationNew,
		Data:  NotificationToPayload(notification),
	})
}

func (b *RedisBridge) publish(ctx context.Context, env Envelope) {
	b.metrics.RecordPublish(env.Event)
	raw, err := json.Marshal(env)
	if err != nil {
		b.logger.Warn("marshal envelope", zap.Error(err))
		return
	}
	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		b.logger.Warn("publish envelope", zap.Error(err), zap.String("event", env.Event))
	}
}

// StartForwarder subscribes to the bridge channel and re-broadcasts every
// received envelope into the local hub until ctx is cancelled.
func (b *RedisBridge) StartForwarder(ctx context.Context, hub *Hub) error {
	sub := b.client.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				b.forward(hub, m.Payload)
			}
		}
	}()

	return nil
}

// forward re-broadcasts one bridged payload into the local hub. A payload
// that does not decode is logged and dropped; it never stops the forwarder.
func (b *RedisBridge) forward(hub *Hub, payload string) {
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("bad bridged envelope", zap.Error(err))
		return
	}
	hub.Publish(env)
}
