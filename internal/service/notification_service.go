package service

import (
	"context"

	"seniority/internal/models"
	"seniority/internal/repository"
)

// InboxSize is how many notifications a user sees at once.
const InboxSize = 20

// NotificationService reads and updates a user's inbox.
type NotificationService struct {
	inbox repository.NotificationRepository
}

// Inbox is the newest slice of a user's notifications.
type Inbox struct {
	Notifications []*models.Notification `json:"notifications"`
	Unread        int64                  `json:"unread"`
}

// NewNotificationService returns a new NotificationService.
func NewNotificationService(inbox repository.NotificationRepository) *NotificationService {
	return &NotificationService{inbox: inbox}
}

// List returns the newest InboxSize notifications for userID.
func (s *NotificationService) List(ctx context.Context, userID uint) (*Inbox, error) {
	rows, err := s.inbox.ListForUser(ctx, userID, InboxSize)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*models.Notification{}
	}
	unread, err := s.inbox.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Inbox{Notifications: rows, Unread: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	return s.inbox.MarkRead(ctx, notificationID, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.inbox.MarkAllRead(ctx, userID)
}
