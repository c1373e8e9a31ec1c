package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"seniority/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// Errors returned by Register when a limit is reached.
var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
)

// Hub is a websocket hub that maps userID -> set of Clients and delivers
// per-user notifications to every open tab.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
}

// NewHub creates a new Hub instance for managing notifications.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[uint]map[*Client]struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "notification hub" }

// Register a connection for a given userID. Returns the Client or error if limits exceeded.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserFull
	}

	client := NewClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnectionsTotal.WithLabelValues(h.Name()).Inc()
	return client, nil
}

// UnregisterClient removes client and stops its write pump.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.UserID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
	h.totalConns--
	client.close()
	observability.WebSocketConnectionsTotal.WithLabelValues(h.Name()).Dec()
}

// Broadcast sends message to all connections for userID
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.conns[userID]; ok {
		data := []byte(message)
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// IsOnline reports whether a user has at least one open connection here.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// StartWiring subscribes to the user notification channels and forwards
// each message to that user's connections.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		userID, err := parseChannelID(channel, userChannelFormat)
		if err != nil {
			observability.GlobalLogger.Warn("invalid notification channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(userID, payload)
	})
}

// parseChannelID extracts the numeric id from a channel built with format.
func parseChannelID(channel, format string) (uint, error) {
	prefix := strings.TrimSuffix(format, "%d")
	if !strings.HasPrefix(channel, prefix) {
		return 0, fmt.Errorf("channel %q does not match %q", channel, format)
	}
	var id uint
	if _, err := fmt.Sscanf(channel, format, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// Shutdown stops every write pump; each pump sends a close frame on its way out.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userConns := range h.conns {
		for client := range userConns {
			client.close()
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	observability.WebSocketConnectionsTotal.WithLabelValues(h.Name()).Set(0)
	return nil
}
