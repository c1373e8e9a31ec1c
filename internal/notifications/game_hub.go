package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"seniority/internal/game"
	"seniority/internal/models"
	"seniority/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const maxConnsPerSession = 8

// ErrSessionFull is returned when a session already has too many sockets.
var ErrSessionFull = errors.New("session connection limit reached")

// GameActions is the part of the game service a socket can drive.
type GameActions interface {
	Get(ctx context.Context, sessionID, userID uint) (*models.GameSession, error)
	Move(ctx context.Context, sessionID, playerID uint, cell int) (*models.GameSession, game.MoveResult, error)
	Forfeit(ctx context.Context, sessionID, playerID uint) (*models.GameSession, game.MoveResult, error)
}

// GameCommand is a message sent by a player over the game socket.
type GameCommand struct {
	Type string `json:"type"` // "make_move" or "forfeit"
	Cell *int   `json:"cell,omitempty"`
}

// GameUpdate is the payload of game_state and move_rejected events.
type GameUpdate struct {
	Session *models.GameSession `json:"session"`
	Result  *game.MoveResult    `json:"result,omitempty"`
}

// GameHub fans session state out to the sockets of its participants and
// turns their socket commands into service calls.
type GameHub struct {
	mu       sync.RWMutex
	sessions map[uint]map[*Client]struct{}
	actions  GameActions
	log      *observability.WSLogger
}

// NewGameHub creates a new GameHub instance
func NewGameHub(actions GameActions) *GameHub {
	return &GameHub{
		sessions: make(map[uint]map[*Client]struct{}),
		actions:  actions,
		log:      observability.NewWSLogger("game"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *GameHub) Name() string { return "game hub" }

// Register attaches a participant's connection to a session and queues the
// current state for it. Non-participants are refused by the service.
func (h *GameHub) Register(ctx context.Context, sessionID, userID uint, conn *websocket.Conn) (*Client, error) {
	session, err := h.actions.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	m, ok := h.sessions[sessionID]
	if !ok {
		m = make(map[*Client]struct{})
		h.sessions[sessionID] = m
	}
	if len(m) >= maxConnsPerSession {
		h.mu.Unlock()
		return nil, ErrSessionFull
	}
	client := NewClient(h, conn, userID)
	client.SessionID = sessionID
	client.IncomingHandler = func(c *Client, raw []byte) {
		h.HandleMessage(context.Background(), c, raw)
	}
	m[client] = struct{}{}
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.WithLabelValues(h.Name()).Inc()
	h.log.LogConnect(ctx, userID, topic(sessionID))
	sendEvent(client, Event{Type: EventGameState, Payload: GameUpdate{Session: session}})
	return client, nil
}

// UnregisterClient detaches client from its session.
func (h *GameHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.sessions[client.SessionID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.sessions, client.SessionID)
	}
	client.close()
	observability.WebSocketConnectionsTotal.WithLabelValues(h.Name()).Dec()
	h.log.LogDisconnect(context.Background(), client.UserID, topic(client.SessionID), "closed")
}

// BroadcastToSession sends message to every socket watching sessionID.
func (h *GameHub) BroadcastToSession(sessionID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.sessions[sessionID] {
		c.TrySend(data)
	}
}

// HandleMessage runs one command from client. Accepted moves reach the
// sockets through the session channel; rejections and errors only go back
// to the sender.
func (h *GameHub) HandleMessage(ctx context.Context, client *Client, raw []byte) {
	var cmd GameCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		sendError(client, "invalid message")
		return
	}

	var (
		session *models.GameSession
		result  game.MoveResult
		err     error
	)
	switch cmd.Type {
	case "make_move":
		if cmd.Cell == nil {
			sendError(client, "cell is required")
			return
		}
		session, result, err = h.actions.Move(ctx, client.SessionID, client.UserID, *cmd.Cell)
	case "forfeit":
		session, result, err = h.actions.Forfeit(ctx, client.SessionID, client.UserID)
	default:
		sendError(client, "unknown message type")
		return
	}

	if err != nil {
		h.log.LogError(ctx, client.UserID, topic(client.SessionID), err, cmd.Type)
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
			sendError(client, appErr.Message)
			return
		}
		sendError(client, "internal error")
		return
	}
	if !result.Accepted {
		sendEvent(client, Event{Type: EventMoveRejected, Payload: GameUpdate{Session: session, Result: &result}})
	}
}

// StartWiring subscribes to the session channels and forwards each state
// change to the session's sockets.
func (h *GameHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartGameSubscriber(ctx, func(channel, payload string) {
		sessionID, err := parseChannelID(channel, sessionChannelFormat)
		if err != nil {
			observability.GlobalLogger.Warn("invalid game channel", slog.String("channel", channel))
			return
		}
		h.BroadcastToSession(sessionID, payload)
	})
}

// Shutdown stops every write pump.
func (h *GameHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.sessions {
		for c := range clients {
			c.close()
		}
	}
	h.sessions = make(map[uint]map[*Client]struct{})
	observability.WebSocketConnectionsTotal.WithLabelValues(h.Name()).Set(0)
	return nil
}

func topic(sessionID uint) string {
	return "session:" + strconv.FormatUint(uint64(sessionID), 10)
}

func sendEvent(client *Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		observability.GlobalLogger.Error("failed to marshal event",
			slog.String("type", event.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	client.TrySend(data)
}

func sendError(client *Client, message string) {
	sendEvent(client, Event{Type: EventError, Payload: map[string]string{"message": message}})
}
