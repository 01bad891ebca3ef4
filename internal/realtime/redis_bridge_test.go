package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/consult-service/internal/domain"
	"github.com/spec-kit/consult-service/internal/observability"
)

func TestForwardDeliversBridgedEnvelope(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	session := hub.NewSession("user-1", domain.RolePatient)
	hub.Join(session, RoomForUser("user-1"))

	bridge := NewRedisBridge(zap.NewNop(), nil, "consult:fanout", observability.NewMetrics())

	raw, err := json.Marshal(Envelope{
		Room:  RoomForUser("user-1"),
		Event: EventNotificationNew,
		Data:  NotificationPayload{ID: "n-1", EventType: "FOLLOW_UP"},
	})
	require.NoError(t, err)

	bridge.forward(hub, string(raw))

	select {
	case env := <-session.Outbound:
		assert.Equal(t, EventNotificationNew, env.Event)
		assert.Equal(t, RoomForUser("user-1"), env.Room)
	default:
		t.Fatal("bridged envelope not delivered to local session")
	}
}

func TestForwardDropsMalformedPayload(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	session := hub.NewSession("user-1", domain.RolePatient)
	hub.Join(session, RoomForUser("user-1"))

	bridge := NewRedisBridge(zap.NewNop(), nil, "consult:fanout", observability.NewMetrics())
	bridge.forward(hub, "{not json")

	select {
	case env := <-session.Outbound:
		t.Fatalf("unexpected delivery of %q", env.Event)
	default:
	}
}

func TestForwardToForeignRoomReachesNobody(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	session := hub.NewSession("user-1", domain.RolePatient)
	hub.Join(session, RoomForUser("user-1"))

	bridge := NewRedisBridge(zap.NewNop(), nil, "consult:fanout", observability.NewMetrics())

	raw, err := json.Marshal(Envelope{Room: RoomForUser("user-2"), Event: EventNotificationNew})
	require.NoError(t, err)
	bridge.forward(hub, string(raw))

	select {
	case env := <-session.Outbound:
		t.Fatalf("unexpected delivery of %q", env.Event)
	default:
	}
}
