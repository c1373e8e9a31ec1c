// Package notifications provides real-time notification delivery over Redis
// pub/sub and WebSockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"seniority/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Event types carried on the notification and game channels.
const (
	EventPostLiked      = "post_liked"
	EventCommentCreated = "comment_created"
	EventFriendRequest  = "friend_request"
	EventFriendAccepted = "friend_accepted"
	EventGameChallenge  = "game_challenge"
	EventGroupInvite    = "group_invite"
	EventGameState      = "game_state"
	EventMoveRejected   = "move_rejected"
	EventError          = "error"
)

const (
	userChannelPattern   = "notifications:user:*"
	gameChannelPattern   = "game:session:*"
	userChannelFormat    = "notifications:user:%d"
	sessionChannelFormat = "game:session:%d"
)

// Event is the envelope of every message pushed to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// UserChannel returns the Redis channel for a user's notifications.
func UserChannel(userID uint) string {
	return fmt.Sprintf(userChannelFormat, userID)
}

// GameSessionChannel returns the Redis channel for a game session's state.
func GameSessionChannel(sessionID uint) string {
	return fmt.Sprintf(sessionChannelFormat, sessionID)
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, event Event) error {
	return n.publish(ctx, UserChannel(userID), event)
}

// PublishGameSession sends an event to everyone watching a session.
func (n *Notifier) PublishGameSession(ctx context.Context, sessionID uint, event Event) error {
	return n.publish(ctx, GameSessionChannel(sessionID), event)
}

func (n *Notifier) publish(ctx context.Context, channel string, event Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// StartPatternSubscriber subscribes to `notifications:user:*` and calls
// onMessage for each incoming message.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	return n.subscribe(ctx, "notifications", onMessage, userChannelPattern)
}

// StartGameSubscriber subscribes to `game:session:*`.
func (n *Notifier) StartGameSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	return n.subscribe(ctx, "game", onMessage, gameChannelPattern)
}

func (n *Notifier) subscribe(ctx context.Context, name string, onMessage func(string, string), patterns ...string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, patterns...)
	// Wait for the subscription so messages published right after are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", name, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in subscriber",
								slog.String("subscriber", name),
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
