package service

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"seniority/internal/models"
	"seniority/internal/notifications"
	"seniority/internal/repository"
)

const (
	maxGroupNameLen        = 80
	maxGroupDescriptionLen = 500
)

// GroupService provides community group business logic.
type GroupService struct {
	groupRepo  repository.GroupRepository
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
	publisher  Publisher
}

// CreateGroupInput carries the fields of a new group.
type CreateGroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url"`
}

// NewGroupService returns a new GroupService.
func NewGroupService(
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	friendRepo repository.FriendRepository,
	publisher Publisher,
) *GroupService {
	return &GroupService{
		groupRepo:  groupRepo,
		userRepo:   userRepo,
		friendRepo: friendRepo,
		publisher:  publisher,
	}
}

// DefaultGroupAvatar returns the generated initials avatar for name.
func DefaultGroupAvatar(name string) string {
	return "https://api.dicebear.com/7.x/initials/svg?seed=" + url.QueryEscape(name)
}

// CreateGroup creates a group owned by userID.
func (s *GroupService) CreateGroup(ctx context.Context, userID uint, in CreateGroupInput) (*models.Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Group name is required")
	}
	if utf8.RuneCountInString(name) > maxGroupNameLen {
		return nil, models.NewValidationError("Group name is too long")
	}
	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxGroupDescriptionLen {
		return nil, models.NewValidationError("Description is too long")
	}
	avatar := strings.TrimSpace(in.AvatarURL)
	if avatar == "" {
		avatar = DefaultGroupAvatar(name)
	}

	group := &models.Group{
		Name:            name,
		Description:     description,
		AvatarURL:       avatar,
		CreatedByUserID: userID,
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *GroupService) GetGroup(ctx context.Context, groupID, viewerID uint) (*models.Group, error) {
	return s.groupRepo.GetByID(ctx, groupID, viewerID)
}

// ListGroups returns groups newest first.
func (s *GroupService) ListGroups(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Group, error) {
	groups, err := s.groupRepo.ListRecent(ctx, limit, offset, viewerID)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []*models.Group{}
	}
	return groups, nil
}

func (s *GroupService) MyGroups(ctx context.Context, userID uint) ([]*models.Group, error) {
	groups, err := s.groupRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []*models.Group{}
	}
	return groups, nil
}

// Join adds userID to the group. Joining twice is not an error.
func (s *GroupService) Join(ctx context.Context, userID, groupID uint) (*models.Group, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID, 0); err != nil {
		return nil, err
	}
	if _, err := s.groupRepo.AddMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.groupRepo.GetByID(ctx, groupID, userID)
}

// Leave removes userID from the group. The owner cannot leave.
func (s *GroupService) Leave(ctx context.Context, userID, groupID uint) error {
	membership, err := s.groupRepo.GetMembership(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if membership == nil {
		return models.NewNotFoundError("Membership", groupID)
	}
	if membership.Role == models.GroupRoleOwner {
		return models.NewConflictError("The owner cannot leave the group")
	}
	_, err = s.groupRepo.RemoveMember(ctx, groupID, userID)
	return err
}

func (s *GroupService) Members(ctx context.Context, groupID uint, limit, offset int) ([]models.GroupMembership, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID, 0); err != nil {
		return nil, err
	}
	members, err := s.groupRepo.ListMembers(ctx, groupID, limit, offset)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []models.GroupMembership{}
	}
	return members, nil
}

// Invite asks inviteeID to join. Only members may invite, and only people
// they follow.
func (s *GroupService) Invite(ctx context.Context, inviterID, groupID, inviteeID uint) error {
	if inviterID == inviteeID {
		return models.NewValidationError("You cannot invite yourself")
	}
	if _, err := s.groupRepo.GetByID(ctx, groupID, 0); err != nil {
		return err
	}
	inviter, err := s.groupRepo.GetMembership(ctx, groupID, inviterID)
	if err != nil {
		return err
	}
	if inviter == nil {
		return models.NewForbiddenError("Only members can invite")
	}
	if _, err := s.userRepo.GetByID(ctx, inviteeID); err != nil {
		return err
	}
	following, err := s.friendRepo.GetFollowingIDs(ctx, inviterID)
	if err != nil {
		return err
	}
	if !slices.Contains(following, inviteeID) {
		return models.NewForbiddenError("You can only invite people you follow")
	}
	existing, err := s.groupRepo.GetMembership(ctx, groupID, inviteeID)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewConflictError("Already a member")
	}

	notifyUser(ctx, s.publisher, models.Notification{
		UserID: inviteeID, ActorID: inviterID, Type: models.NotificationGroupInvite, RelatedID: groupID,
	}, notifications.Event{
		Type:    notifications.EventGroupInvite,
		Payload: map[string]uint{"group_id": groupID, "user_id": inviterID},
	})
	return nil
}
