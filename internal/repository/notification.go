package repository

import (
	"context"

	"seniority/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository stores user inboxes.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, userID uint, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if err := r.db.WithContext(ctx).Omit("Actor").Create(notification).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListForUser returns the newest entries first.
func (r *notificationRepository) ListForUser(ctx context.Context, userID uint, limit int) ([]*models.Notification, error) {
	var rows []*models.Notification
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

// MarkRead flags one entry as read. An entry in another user's inbox is
// reported as missing.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Notification", id)
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, models.NewInternalError(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
