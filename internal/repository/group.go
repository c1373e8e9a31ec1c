package repository

import (
	"context"
	"errors"

	"seniority/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupRepository defines the interface for community group operations
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id, viewerID uint) (*models.Group, error)
	ListRecent(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Group, error)
	ListForUser(ctx context.Context, userID uint) ([]*models.Group, error)
	GetMembership(ctx context.Context, groupID, userID uint) (*models.GroupMembership, error)
	AddMember(ctx context.Context, groupID, userID uint) (bool, error)
	RemoveMember(ctx context.Context, groupID, userID uint) (bool, error)
	ListMembers(ctx context.Context, groupID uint, limit, offset int) ([]models.GroupMembership, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

// Create stores the group and makes its creator the owner in one transaction.
func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("CreatedByUser").Create(group).Error; err != nil {
			return err
		}
		return tx.Omit("User").Create(&models.GroupMembership{
			GroupID: group.ID,
			UserID:  group.CreatedByUserID,
			Role:    models.GroupRoleOwner,
		}).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	group.MemberCount = 1
	group.Joined = true
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Group, error) {
	var group models.Group
	if err := r.applyGroupDetails(r.db.WithContext(ctx)).
		Preload("CreatedByUser").
		First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Group", id)
		}
		return nil, models.NewInternalError(err)
	}
	groups := []*models.Group{&group}
	if err := r.markJoined(ctx, groups, viewerID); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListRecent returns groups newest first.
func (r *groupRepository) ListRecent(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Group, error) {
	var groups []*models.Group
	err := r.applyGroupDetails(r.db.WithContext(ctx)).
		Preload("CreatedByUser").
		Order("community_groups.created_at DESC").
		Order("community_groups.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&groups).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, r.markJoined(ctx, groups, viewerID)
}

// ListForUser returns the groups userID belongs to, most recently joined first.
func (r *groupRepository) ListForUser(ctx context.Context, userID uint) ([]*models.Group, error) {
	var groups []*models.Group
	err := r.applyGroupDetails(r.db.WithContext(ctx)).
		Preload("CreatedByUser").
		Joins("JOIN group_memberships mine ON mine.group_id = community_groups.id AND mine.user_id = ?", userID).
		Order("mine.created_at DESC").
		Order("community_groups.id DESC").
		Find(&groups).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, g := range groups {
		g.Joined = true
	}
	return groups, nil
}

func (r *groupRepository) GetMembership(ctx context.Context, groupID, userID uint) (*models.GroupMembership, error) {
	var membership models.GroupMembership
	if err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &membership, nil
}

// AddMember joins userID as a member. It reports false when already a member.
func (r *groupRepository) AddMember(ctx context.Context, groupID, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("User").
		Create(&models.GroupMembership{GroupID: groupID, UserID: userID, Role: models.GroupRoleMember})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMembership{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListMembers returns memberships oldest first, so the owner leads.
func (r *groupRepository) ListMembers(ctx context.Context, groupID uint, limit, offset int) ([]models.GroupMembership, error) {
	var members []models.GroupMembership
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Order("user_id ASC").
		Limit(limit).
		Offset(offset).
		Find(&members).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return members, nil
}

func (r *groupRepository) applyGroupDetails(db *gorm.DB) *gorm.DB {
	return db.Select("community_groups.*, " +
		"(SELECT COUNT(*) FROM group_memberships gm WHERE gm.group_id = community_groups.id) as member_count")
}

func (r *groupRepository) markJoined(ctx context.Context, groups []*models.Group, viewerID uint) error {
	if viewerID == 0 || len(groups) == 0 {
		return nil
	}
	ids := make([]uint, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	var joined []uint
	if err := r.db.WithContext(ctx).
		Model(&models.GroupMembership{}).
		Where("user_id = ? AND group_id IN ?", viewerID, ids).
		Pluck("group_id", &joined).Error; err != nil {
		return models.NewInternalError(err)
	}
	set := make(map[uint]struct{}, len(joined))
	for _, id := range joined {
		set[id] = struct{}{}
	}
	for _, g := range groups {
		_, g.Joined = set[g.ID]
	}
	return nil
}
