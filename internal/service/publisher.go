// Package service holds the business logic between HTTP handlers and repositories.
package service

import (
	"context"

	"seniority/internal/models"
	"seniority/internal/notifications"
	"seniority/internal/observability"
	"seniority/internal/repository"
)

// Publisher pushes events to users and game sessions. *notifications.Notifier
// and *notifications.LocalPublisher implement it.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, event notifications.Event) error
	PublishGameSession(ctx context.Context, sessionID uint, event notifications.Event) error
}

// Recorder is implemented by publishers that also keep each user's inbox.
type Recorder interface {
	Record(ctx context.Context, notification *models.Notification) error
}

// InboxPublisher stores user notifications before pushing them live.
type InboxPublisher struct {
	Publisher
	inbox repository.NotificationRepository
}

// NewInboxPublisher wraps next so every user notification is persisted.
func NewInboxPublisher(next Publisher, inbox repository.NotificationRepository) *InboxPublisher {
	return &InboxPublisher{Publisher: next, inbox: inbox}
}

// Record implements Recorder.
func (p *InboxPublisher) Record(ctx context.Context, notification *models.Notification) error {
	return p.inbox.Create(ctx, notification)
}

// notifyUser stores note in the recipient's inbox when p is a Recorder, then
// pushes event live. Both steps are best effort; neither fails the request.
func notifyUser(ctx context.Context, p Publisher, note models.Notification, event notifications.Event) {
	if p == nil || note.UserID == 0 {
		return
	}
	if r, ok := p.(Recorder); ok {
		if err := r.Record(ctx, &note); err != nil {
			observability.LogAsyncOperationError(ctx, "record_notification", err, map[string]interface{}{
				"user_id": note.UserID,
				"type":    string(note.Type),
			})
		}
	}
	if err := p.PublishUser(ctx, note.UserID, event); err != nil {
		observability.LogAsyncOperationError(ctx, "publish_user", err, map[string]interface{}{
			"user_id": note.UserID,
			"event":   event.Type,
		})
	}
}

func notifySession(ctx context.Context, p Publisher, sessionID uint, event notifications.Event) {
	if p == nil {
		return
	}
	if err := p.PublishGameSession(ctx, sessionID, event); err != nil {
		observability.LogAsyncOperationError(ctx, "publish_game_session", err, map[string]interface{}{
			"session_id": sessionID,
			"event":      event.Type,
		})
	}
}
