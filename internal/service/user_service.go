package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"seniority/internal/models"
	"seniority/internal/repository"
)

// Profile limits are in characters, not bytes.
const (
	maxDisplayNameLen = 64
	maxBioLen         = 500
)

// UserService provides profile lookups and edits.
type UserService struct {
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
}

// UpdateProfileInput carries the editable profile fields. Nil means unchanged.
type UpdateProfileInput struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository, friendRepo repository.FriendRepository) *UserService {
	return &UserService{userRepo: userRepo, friendRepo: friendRepo}
}

// GetUser returns the user with the ids they follow.
func (s *UserService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := s.friendRepo.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Following = following
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" || utf8.RuneCountInString(name) > maxDisplayNameLen {
			return nil, models.NewValidationError("Display name must be 1-64 characters")
		}
		user.DisplayName = name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if utf8.RuneCountInString(bio) > maxBioLen {
			return nil, models.NewValidationError("Bio is too long")
		}
		user.Bio = bio
	}
	if in.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
