package repository

import (
	"context"
	"errors"

	"seniority/internal/cache"
	"seniority/internal/models"

	"gorm.io/gorm"
)

// FriendRepository defines the interface for follow request operations
type FriendRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	GetByID(ctx context.Context, id uint) (*models.Friendship, error)
	GetFriendshipBetweenUsers(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error)
	GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error)
	GetFriends(ctx context.Context, userID uint) ([]models.User, error)
	GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error)
	UpdateStatus(ctx context.Context, friendshipID uint, status models.FriendshipStatus) error
	Delete(ctx context.Context, friendshipID uint) error
}

type friendRepository struct {
	db *gorm.DB
}

// NewFriendRepository creates a new friend repository
func NewFriendRepository(db *gorm.DB) FriendRepository {
	return &friendRepository{db: db}
}

func (r *friendRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	if err := r.db.WithContext(ctx).Omit("Requester", "Addressee").Create(friendship).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Follow request already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *friendRepository) GetByID(ctx context.Context, id uint) (*models.Friendship, error) {
	var friendship models.Friendship
	if err := r.db.WithContext(ctx).Preload("Requester").Preload("Addressee").First(&friendship, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Friendship", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &friendship, nil
}

func (r *friendRepository) GetFriendshipBetweenUsers(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error) {
	var friendship models.Friendship

	// Either user may be the requester
	if err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			userID1, userID2, userID2, userID1).
		First(&friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &friendship, nil
}

// GetFollowingIDs returns the users userID follows, read through the cache.
func (r *friendRepository) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := cache.Aside(ctx, cache.FollowingKey(userID), &ids, cache.FollowingTTL, func() error {
		var rows []models.Friendship
		if err := r.db.WithContext(ctx).
			Where("status = ? AND (requester_id = ? OR addressee_id = ?)",
				models.FriendshipStatusAccepted, userID, userID).
			Order("id ASC").
			Find(&rows).Error; err != nil {
			return models.NewInternalError(err)
		}
		ids = make([]uint, 0, len(rows))
		for i := range rows {
			ids = append(ids, rows[i].Other(userID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *friendRepository) GetFriends(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User

	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN friendships f ON (users.id = f.requester_id OR users.id = f.addressee_id)").
		Where("f.status = ? AND (f.requester_id = ? OR f.addressee_id = ?) AND users.id != ? AND users.deleted_at IS NULL",
			models.FriendshipStatusAccepted, userID, userID, userID).
		Order("users.id ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return users, nil
}

func (r *friendRepository) GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	var friendships []models.Friendship

	// Requests waiting on userID to answer
	if err := r.db.WithContext(ctx).
		Where("addressee_id = ? AND status = ?", userID, models.FriendshipStatusPending).
		Preload("Requester").
		Order("created_at DESC").
		Find(&friendships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return friendships, nil
}

func (r *friendRepository) UpdateStatus(ctx context.Context, friendshipID uint, status models.FriendshipStatus) error {
	var friendship models.Friendship
	if err := r.db.WithContext(ctx).First(&friendship, friendshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Friendship", friendshipID)
		}
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("id = ?", friendshipID).
		Update("status", status).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateFollowing(ctx, friendship.RequesterID, friendship.AddresseeID)
	return nil
}

func (r *friendRepository) Delete(ctx context.Context, friendshipID uint) error {
	var friendship models.Friendship
	if err := r.db.WithContext(ctx).First(&friendship, friendshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Friendship", friendshipID)
		}
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Delete(&friendship).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateFollowing(ctx, friendship.RequesterID, friendship.AddresseeID)
	return nil
}
