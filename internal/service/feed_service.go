package service

import (
	"context"
	"time"

	"seniority/internal/feed"
	"seniority/internal/models"
	"seniority/internal/observability"
	"seniority/internal/repository"

	"golang.org/x/sync/errgroup"
)

// DefaultFeedWindow is how many of the newest posts the home tab ranks.
const DefaultFeedWindow = 50

// FeedService assembles the home, latest and profile timelines.
type FeedService struct {
	postRepo   repository.PostRepository
	friendRepo repository.FriendRepository
	weights    feed.Weights
	window     int
	now        func() time.Time
}

// FeedQuery selects a timeline page.
type FeedQuery struct {
	ViewerID uint
	Tab      feed.Tab
	AuthorID uint
	Limit    int
	Offset   int
}

// NewFeedService returns a FeedService ranking the newest window posts.
func NewFeedService(postRepo repository.PostRepository, friendRepo repository.FriendRepository, window int) *FeedService {
	if window <= 0 {
		window = DefaultFeedWindow
	}
	return &FeedService{
		postRepo:   postRepo,
		friendRepo: friendRepo,
		weights:    feed.DefaultWeights(),
		window:     window,
		now:        time.Now,
	}
}

// Feed returns one page of the requested tab. Only the home tab is ranked;
// the others keep the newest-first order of the store.
func (s *FeedService) Feed(ctx context.Context, q FeedQuery) ([]*models.Post, error) {
	switch q.Tab {
	case feed.TabLatest:
		return s.postRepo.List(ctx, q.Limit, q.Offset, q.ViewerID)
	case feed.TabProfile:
		if q.AuthorID == 0 {
			return nil, models.NewValidationError("user_id is required for the profile tab")
		}
		return s.postRepo.GetByUserID(ctx, q.AuthorID, q.Limit, q.Offset, q.ViewerID)
	}
	return s.home(ctx, q)
}

func (s *FeedService) home(ctx context.Context, q FeedQuery) ([]*models.Post, error) {
	ctx, span := observability.StartServiceSpan(ctx, "FeedService", "Home")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	var (
		posts     []*models.Post
		following []uint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var listErr error
		posts, listErr = s.postRepo.List(gctx, s.window, 0, q.ViewerID)
		return listErr
	})
	if q.ViewerID != 0 {
		g.Go(func() error {
			var followErr error
			following, followErr = s.friendRepo.GetFollowingIDs(gctx, q.ViewerID)
			return followErr
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	start := time.Now()
	ranked := feed.Rank(s.weights, feed.NewViewer(q.ViewerID, following), posts, s.now())
	observability.FeedRankDuration.WithLabelValues(string(feed.TabHome)).Observe(time.Since(start).Seconds())

	return page(ranked, q.Limit, q.Offset), nil
}

// page slices a ranked window. A non-positive limit returns the rest.
func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
