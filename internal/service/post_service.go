package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"seniority/internal/models"
	"seniority/internal/moderation"
	"seniority/internal/notifications"
	"seniority/internal/observability"
	"seniority/internal/repository"
)

const (
	maxPostLen    = 5000
	maxCommentLen = 1000
)

// PostService provides post, like and comment business logic.
type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	censor      *moderation.Censor
	publisher   Publisher
}

type CreatePostInput struct {
	UserID   uint
	Content  string
	ImageURL string
}

// NewPostService returns a new PostService.
func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	censor *moderation.Censor,
	publisher Publisher,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		censor:      censor,
		publisher:   publisher,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content, err := s.cleanText(ctx, "CreatePost", in.Content, maxPostLen)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:   in.UserID,
		Content:  content,
		ImageURL: strings.TrimSpace(in.ImageURL),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

func (s *PostService) GetPost(ctx context.Context, postID, currentUserID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID, currentUserID)
}

// DeletePost removes a post. Only its author may do so.
func (s *PostService) DeletePost(ctx context.Context, postID, userID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, postID)
}

// ToggleLike removes the viewer's like if present, otherwise adds it. The
// author hears about new likes from other users.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	removed, err := s.postRepo.Unlike(ctx, userID, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !removed {
		added, err := s.postRepo.Like(ctx, userID, postID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if added && post.UserID != userID {
			notifyUser(ctx, s.publisher, models.Notification{
				UserID: post.UserID, ActorID: userID, Type: models.NotificationLike, RelatedID: postID,
			}, notifications.Event{
				Type:    notifications.EventPostLiked,
				Payload: map[string]uint{"post_id": postID, "user_id": userID},
			})
		}
	}

	return s.postRepo.GetByID(ctx, postID, userID)
}

func (s *PostService) AddComment(ctx context.Context, userID, postID uint, content string) (*models.Comment, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	content, err = s.cleanText(ctx, "AddComment", content, maxCommentLen)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{UserID: userID, PostID: postID, Content: content}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	if post.UserID != userID {
		notifyUser(ctx, s.publisher, models.Notification{
			UserID: post.UserID, ActorID: userID, Type: models.NotificationComment, RelatedID: postID,
		}, notifications.Event{
			Type:    notifications.EventCommentCreated,
			Payload: map[string]uint{"post_id": postID, "comment_id": comment.ID, "user_id": userID},
		})
	}
	return comment, nil
}

func (s *PostService) ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID, limit, offset)
}

// cleanText trims, length-checks and censors user text.
func (s *PostService) cleanText(ctx context.Context, method, text string, maxLen int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(text) > maxLen {
		return "", models.NewValidationError("Content is too long")
	}
	if s.censor.Flagged(text) {
		observability.LogServiceCall(ctx, "PostService", method, map[string]interface{}{"censored": true})
		text = s.censor.Clean(text)
	}
	return text, nil
}
