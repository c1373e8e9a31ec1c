package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"seniority/internal/models"
	"seniority/internal/notifications"
	"seniority/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// refuse writes a single error event and closes the socket.
func refuse(conn *websocket.Conn, message string) {
	data, err := json.Marshal(notifications.Event{
		Type:    notifications.EventError,
		Payload: map[string]string{"message": message},
	})
	if err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	_ = conn.Close()
}

// WebSocketNotificationsHandler streams the caller's notifications.
func (s *Server) WebSocketNotificationsHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok {
			refuse(conn, "unauthorized")
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			observability.GlobalLogger.Warn("notification socket refused",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
			refuse(conn, err.Error())
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}

// WebSocketGameHandler streams one session's state and accepts
// make_move and forfeit commands from its players.
func (s *Server) WebSocketGameHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok {
			refuse(conn, "unauthorized")
			return
		}
		sessionID, err := strconv.ParseUint(conn.Params("id"), 10, 32)
		if err != nil || sessionID == 0 {
			refuse(conn, "invalid session id")
			return
		}

		client, err := s.gameHub.Register(context.Background(), uint(sessionID), userID, conn)
		if err != nil {
			message := "internal error"
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
				message = appErr.Message
			} else if errors.Is(err, notifications.ErrSessionFull) {
				message = err.Error()
			}
			refuse(conn, message)
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
