package ws

import (
	"context"
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/consult-service/internal/auth"
	"github.com/spec-kit/consult-service/internal/domain"
	"github.com/spec-kit/consult-service/internal/realtime"
	"github.com/spec-kit/consult-service/internal/service"
	apperrors "github.com/spec-kit/consult-service/pkg/util"
)

// Gateway bridges WebSocket connections to the realtime hub and the
// consultation service. Each connection gets one hub session, a reader loop
// on the calling goroutine and a single writer goroutine draining the
// session's outbound channel.
type Gateway struct {
	hub           *realtime.Hub
	consultations *service.ConsultationService
	logger        *zap.Logger
}

// NewGateway constructs the gateway.
func NewGateway(hub *realtime.Hub, consultations *service.ConsultationService, logger *zap.Logger) *Gateway {
	return &Gateway{
		hub:           hub,
		consultations: consultations,
		logger:        logger.With(zap.String("component", "ws_gateway")),
	}
}

// clientFrame is an inbound client event.
type clientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// serverFrame is an outbound event.
type serverFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type roomPayload struct {
	QuestionID string `json:"question_id"`
}

type bindUserPayload struct {
	UserID string `json:"user_id"`
}

// sendMessagePayload mirrors the live protocol's field names. The sender
// identity always comes from the session, not from the payload.
type sendMessagePayload struct {
	QuestionID  string                       `json:"question_id"`
	ContentType string                       `json:"content_type"`
	ContentText *string                      `json:"content_text,omitempty"`
	DisplayName *string                      `json:"role_display_name,omitempty"`
	Attachments []sendMessageAttachmentInput `json:"attachments,omitempty"`
}

type sendMessageAttachmentInput struct {
	URL             string  `json:"url"`
	ThumbnailURL    *string `json:"thumbnail_url,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
	SizeBytes       *int64  `json:"size_bytes,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type sendMessageAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type bindUserAck struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
}

// Handler is the connection entry point, mounted behind the upgrade guard
// and the auth middleware.
func (g *Gateway) Handler() fiber.Handler {
	return websocket.New(g.serve)
}

func (g *Gateway) serve(conn *websocket.Conn) {
	principal, ok := auth.PrincipalFromLocals(conn.Locals(auth.PrincipalLocalsKey()))
	if !ok {
		g.logger.Warn("connection without principal; closing")
		_ = conn.Close()
		return
	}

	session := g.hub.NewSession(principal.UserID, principal.Role)
	defer g.hub.CloseSession(session)

	go g.writeLoop(conn, session)
	g.readLoop(conn, session)
}

// writeLoop drains the session's outbound channel onto the socket. It is the
// sole writer for the connection.
func (g *Gateway) writeLoop(conn *websocket.Conn, session *realtime.Session) {
	for env := range session.Outbound {
		if err := conn.WriteJSON(serverFrame{Event: env.Event, Data: env.Data}); err != nil {
			g.logger.Debug("write failed; closing session",
				zap.String("session_id", session.ID.String()),
				zap.Error(err))
			_ = conn.Close()
			return
		}
	}
	_ = conn.Close()
}

func (g *Gateway) readLoop(conn *websocket.Conn, session *realtime.Session) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			g.sendError(session, realtime.ErrCodeInvalidPayload, "malformed frame")
			continue
		}

		switch frame.Event {
		case "join_question":
			g.handleJoin(session, frame.Data)
		case "leave_question":
			g.handleLeave(session, frame.Data)
		case "bind_user":
			g.handleBindUser(session, frame.Data)
		case "send_message":
			g.handleSendMessage(session, frame.Data)
		default:
			g.sendError(session, realtime.ErrCodeInvalidPayload, "unknown event "+frame.Event)
		}
	}
}

func (g *Gateway) handleJoin(session *realtime.Session, data json.RawMessage) {
	var payload roomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.QuestionID == "" {
		g.sendError(session, realtime.ErrCodeInvalidPayload, "question_id required")
		return
	}
	g.hub.Join(session, realtime.RoomForQuestion(payload.QuestionID))
	g.hub.Send(session, realtime.Envelope{
		Event: realtime.EventJoinedQuestion,
		Data:  roomPayload{QuestionID: payload.QuestionID},
	})
}

func (g *Gateway) handleLeave(session *realtime.Session, data json.RawMessage) {
	var payload roomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.QuestionID == "" {
		g.sendError(session, realtime.ErrCodeInvalidPayload, "question_id required")
		return
	}
	g.hub.Leave(session, realtime.RoomForQuestion(payload.QuestionID))
	g.hub.Send(session, realtime.Envelope{
		Event: realtime.EventLeftQuestion,
		Data:  roomPayload{QuestionID: payload.QuestionID},
	})
}

// handleBindUser subscribes the connection to its personal room. The room is
// always derived from the session's verified identity; a client asking to
// bind another user id is refused.
func (g *Gateway) handleBindUser(session *realtime.Session, data json.RawMessage) {
	var payload bindUserPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(session, realtime.ErrCodeInvalidPayload, "malformed bind_user payload")
		return
	}
	if payload.UserID != "" && payload.UserID != session.UserID {
		g.sendError(session, realtime.ErrCodeInvalidPayload, "cannot bind another user")
		return
	}
	g.hub.Join(session, realtime.RoomForUser(session.UserID))
	g.hub.Send(session, realtime.Envelope{
		Event: realtime.EventBindUserAck,
		Data:  bindUserAck{Success: true, UserID: session.UserID},
	})
}

func (g *Gateway) handleSendMessage(session *realtime.Session, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.QuestionID == "" || payload.ContentType == "" {
		g.sendError(session, realtime.ErrCodeInvalidPayload, "question_id and content_type required")
		return
	}

	input := service.MessageCreateInput{
		SenderRole:  session.Role,
		SenderID:    &session.UserID,
		DisplayName: payload.DisplayName,
		ContentType: domain.MessageContentType(payload.ContentType),
		Content:     payload.ContentText,
	}
	for _, att := range payload.Attachments {
		input.Attachments = append(input.Attachments, service.MessageAttachmentInput{
			URL:             att.URL,
			ThumbnailURL:    att.ThumbnailURL,
			DurationSeconds: att.DurationSeconds,
			SizeBytes:       att.SizeBytes,
		})
	}

	msg, err := g.consultations.PostMessage(context.Background(), payload.QuestionID, input)
	if err != nil {
		g.hub.Send(session, realtime.Envelope{
			Event: realtime.EventSendMessageAck,
			Data:  sendMessageAck{Success: false, Message: err.Error()},
		})
		if apperrors.IsNotFound(err) {
			g.sendError(session, realtime.ErrCodeQuestionNotFound, "question not found")
		} else {
			g.sendError(session, realtime.ErrCodeInternal, "failed to send message")
		}
		return
	}

	// The service broadcasts new_message to the room; the sender additionally
	// gets a direct ack carrying the persisted record.
	g.hub.Send(session, realtime.Envelope{
		Event: realtime.EventSendMessageAck,
		Data:  sendMessageAck{Success: true, Message: "sent", Data: realtime.MessageToPayload(msg)},
	})
}

func (g *Gateway) sendError(session *realtime.Session, code, message string) {
	g.hub.Send(session, realtime.Envelope{
		Event: realtime.EventError,
		Data:  errorPayload{Code: code, Message: message},
	})
}
