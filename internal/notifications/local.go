package notifications

import (
	"context"
	"encoding/json"
)

// LocalPublisher delivers events straight to this process's hubs. It stands
// in for the Notifier when Redis is unavailable and only one instance runs.
type LocalPublisher struct {
	Users *Hub
	Games *GameHub
}

// PublishUser delivers event to the user's open connections.
func (p *LocalPublisher) PublishUser(_ context.Context, userID uint, event Event) error {
	if p.Users == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.Users.Broadcast(userID, string(data))
	return nil
}

// PublishGameSession delivers event to the session's sockets.
func (p *LocalPublisher) PublishGameSession(_ context.Context, sessionID uint, event Event) error {
	if p.Games == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.Games.BroadcastToSession(sessionID, string(data))
	return nil
}
