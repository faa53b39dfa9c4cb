package handler

import (
	"context"
	"encoding/json"
	"time"

	"research-collab-be/internal/dto"
	"research-collab-be/internal/pkg/logger"
	"research-collab-be/internal/pkg/serverutils"
	"research-collab-be/internal/service"
	internalWS "research-collab-be/internal/websocket"
	"research-collab-be/pkg/collab"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// closeJoinFailed is sent when the session cannot be joined; the connection
// must not stay open in an unjoined state.
const closeJoinFailed = 4001

type CollabHandler struct {
	service service.ICollabService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewCollabHandler(service service.ICollabService, hub *internalWS.Hub, log logger.ILogger) *CollabHandler {
	return &CollabHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

func (h *CollabHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/collaboration/v1/sessions/:id/ws", h.ServeWs)
}

// ServeWs authenticates the handshake, joins the session, and runs the
// bidirectional message loop until the peer disconnects.
func (h *CollabHandler) ServeWs(c *fiber.Ctx) error {
	claims, err := serverutils.ParseWsToken(c)
	if err != nil {
		h.logger.Warn("CollabHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing user_id"})
	}
	username, _ := claims["username"].(string)
	if username == "" {
		username = userID
	}

	sessionID := c.Params("id")
	role := collab.Role(c.Query("role", string(collab.RoleCollaborator)))

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		snapshot, joinErr := h.service.JoinSession(c.UserContext(), sessionID, collab.User{
			UserID:   userID,
			Username: username,
			Role:     role,
		})
		if joinErr != nil {
			h.logger.Warn("CollabHandler", "Join rejected", map[string]interface{}{
				"session_id": sessionID,
				"user_id":    userID,
				"error":      joinErr.Error(),
			})
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(closeJoinFailed, "Failed to join session"),
				time.Now().Add(time.Second))
			conn.Close()
			return
		}

		// Full state snapshot goes straight to the socket before the pumps
		// start, so the joiner never sees activity frames first.
		if err := conn.WriteJSON(snapshot); err != nil {
			conn.Close()
			h.service.LeaveSession(c.UserContext(), sessionID, userID)
			return
		}

		h.logger.Info("CollabHandler", "Starting collaboration session channel", map[string]interface{}{
			"session_id": sessionID,
			"user_id":    userID,
		})

		internalWS.ServeWs(h.hub, conn, sessionID, userID, func(data []byte) {
			h.handleMessage(sessionID, userID, data)
		})

		h.service.LeaveSession(c.UserContext(), sessionID, userID)
		h.logger.Info("CollabHandler", "Collaboration session channel ended", map[string]interface{}{
			"session_id": sessionID,
			"user_id":    userID,
		})
	})(c)
}

func (h *CollabHandler) handleMessage(sessionID, userID string, data []byte) {
	var msg dto.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendResult(sessionID, userID, "edit_result", dto.EditResult{Success: false, Error: "malformed_message"})
		return
	}

	ctx := context.Background()
	switch msg.Type {
	case "edit":
		var edit collab.EditContent
		if msg.EditData != nil {
			edit = *msg.EditData
		}
		result := h.service.HandleRealTimeEdit(ctx, sessionID, userID, msg.SectionID, edit)
		h.sendResult(sessionID, userID, "edit_result", result)

	case "comment":
		var comment dto.CommentData
		if msg.CommentData != nil {
			comment = *msg.CommentData
		}
		result := h.service.AddComment(ctx, sessionID, userID, msg.SectionID, comment)
		h.sendResult(sessionID, userID, "comment_result", result)

	case "research":
		result := h.service.RequestResearch(ctx, sessionID, userID, msg.SectionID, msg.Query)
		h.sendResult(sessionID, userID, "edit_result", result)

	case "sync_request":
		result := h.service.SyncState(ctx, sessionID)
		h.sendResult(sessionID, userID, "sync_result", result)

	default:
		h.logger.Warn("CollabHandler", "Unknown message type", map[string]interface{}{
			"session_id": sessionID,
			"user_id":    userID,
			"type":       msg.Type,
		})
	}
}

func (h *CollabHandler) sendResult(sessionID, userID, frameType string, result any) {
	h.hub.SendToUser(sessionID, userID, dto.ResultMessage{
		Type:      frameType,
		Result:    result,
		Timestamp: time.Now().UTC(),
	})
}
