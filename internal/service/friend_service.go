package service

import (
	"context"

	"seniority/internal/models"
	"seniority/internal/notifications"
	"seniority/internal/repository"
)

// FriendService provides follow-request business logic. An accepted
// request makes both users follow each other.
type FriendService struct {
	friendRepo repository.FriendRepository
	userRepo   repository.UserRepository
	publisher  Publisher
}

// NewFriendService returns a new FriendService.
func NewFriendService(friendRepo repository.FriendRepository, userRepo repository.UserRepository, publisher Publisher) *FriendService {
	return &FriendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
		publisher:  publisher,
	}
}

// SendRequest asks targetUserID to accept a follow from userID.
func (s *FriendService) SendRequest(ctx context.Context, userID, targetUserID uint) (*models.Friendship, error) {
	if userID == targetUserID {
		return nil, models.NewValidationError("Cannot send a follow request to yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetUserID); err != nil {
		return nil, err
	}

	existing, err := s.friendRepo.GetFriendshipBetweenUsers(ctx, userID, targetUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch {
		case existing.Status == models.FriendshipStatusAccepted:
			return nil, models.NewConflictError("You already follow each other")
		case existing.RequesterID == userID:
			return nil, models.NewConflictError("Follow request already sent")
		default:
			return nil, models.NewConflictError("This user already sent you a follow request")
		}
	}

	friendship := &models.Friendship{
		RequesterID: userID,
		AddresseeID: targetUserID,
		Status:      models.FriendshipStatusPending,
	}
	if err := s.friendRepo.Create(ctx, friendship); err != nil {
		return nil, err
	}

	notifyUser(ctx, s.publisher, models.Notification{
		UserID: targetUserID, ActorID: userID, Type: models.NotificationFriendRequest, RelatedID: friendship.ID,
	}, notifications.Event{
		Type:    notifications.EventFriendRequest,
		Payload: map[string]uint{"request_id": friendship.ID, "user_id": userID},
	})
	return friendship, nil
}

// AcceptRequest accepts a pending request addressed to userID.
func (s *FriendService) AcceptRequest(ctx context.Context, userID, requestID uint) (*models.Friendship, error) {
	friendship, err := s.friendRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if friendship.AddresseeID != userID {
		return nil, models.NewForbiddenError("You can only accept requests sent to you")
	}
	if friendship.Status != models.FriendshipStatusPending {
		return nil, models.NewConflictError("Request is not pending")
	}

	if err := s.friendRepo.UpdateStatus(ctx, requestID, models.FriendshipStatusAccepted); err != nil {
		return nil, err
	}
	friendship.Status = models.FriendshipStatusAccepted

	notifyUser(ctx, s.publisher, models.Notification{
		UserID: friendship.RequesterID, ActorID: userID, Type: models.NotificationFriendAccepted, RelatedID: friendship.ID,
	}, notifications.Event{
		Type:    notifications.EventFriendAccepted,
		Payload: map[string]uint{"request_id": friendship.ID, "user_id": userID},
	})
	return friendship, nil
}

// RemoveRequest declines or cancels a pending request. Either side may do it.
func (s *FriendService) RemoveRequest(ctx context.Context, userID, requestID uint) error {
	friendship, err := s.friendRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if friendship.RequesterID != userID && friendship.AddresseeID != userID {
		return models.NewForbiddenError("Not your request")
	}
	if friendship.Status != models.FriendshipStatusPending {
		return models.NewConflictError("Request is not pending")
	}
	return s.friendRepo.Delete(ctx, requestID)
}

func (s *FriendService) PendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.friendRepo.GetPendingRequests(ctx, userID)
}

// Following lists the users userID follows.
func (s *FriendService) Following(ctx context.Context, userID uint) ([]models.User, error) {
	return s.friendRepo.GetFriends(ctx, userID)
}
