package repository

import (
	"context"
	"errors"

	"seniority/internal/cache"
	"seniority/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error)
	GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error)
	List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error)
	Delete(ctx context.Context, id uint) error
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
	GetLikedBy(ctx context.Context, postID uint) ([]uint, error)
	Like(ctx context.Context, userID, postID uint) (bool, error)
	Unlike(ctx context.Context, userID, postID uint) (bool, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID loads a post with its counts and likers. The shared part is cached,
// the viewer's liked flag never is.
func (r *postRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := r.applyPostDetails(r.db.WithContext(ctx)).
			Preload("User").
			First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		likedBy, err := r.GetLikedBy(ctx, id)
		if err != nil {
			return err
		}
		post.LikedBy = likedBy
		return nil
	})
	if err != nil {
		return nil, err
	}

	if currentUserID != 0 {
		for _, uid := range post.LikedBy {
			if uid == currentUserID {
				post.Liked = true
				break
			}
		}
	}
	return &post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("User").
		Where("posts.user_id = ?", userID).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, r.markLiked(ctx, posts, currentUserID)
}

// List returns posts newest first. The home feed ranks a window of this list.
func (r *postRepository) List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx)).
		Preload("User").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, r.markLiked(ctx, posts, currentUserID)
}

// applyPostDetails adds subqueries to fetch counts in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB) *gorm.DB {
	return db.Select("posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) as comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) as likes_count")
}

func (r *postRepository) markLiked(ctx context.Context, posts []*models.Post, currentUserID uint) error {
	if currentUserID == 0 || len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	liked, err := r.GetLikedPostIDs(ctx, currentUserID, ids)
	if err != nil {
		return models.NewInternalError(err)
	}
	set := make(map[uint]struct{}, len(liked))
	for _, id := range liked {
		set[id] = struct{}{}
	}
	for _, p := range posts {
		_, p.Liked = set[p.ID]
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(id))
	return nil
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *postRepository) GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var likedPostIDs []uint
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &likedPostIDs).Error
	return likedPostIDs, err
}

func (r *postRepository) GetLikedBy(ctx context.Context, postID uint) ([]uint, error) {
	var userIDs []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Order("id ASC").
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return userIDs, nil
}

// Like records a like and reports whether a new row was written.
// ON CONFLICT DO NOTHING keeps concurrent likes from racing into duplicates.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{UserID: userID, PostID: postID})
	if result.Error != nil {
		return false, result.Error
	}
	cache.Invalidate(ctx, cache.PostKey(postID))
	return result.RowsAffected > 0, nil
}

// Unlike removes a like and reports whether one existed.
func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	if result.Error != nil {
		return false, result.Error
	}
	cache.Invalidate(ctx, cache.PostKey(postID))
	return result.RowsAffected > 0, nil
}
