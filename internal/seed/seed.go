// Package seed fills a development database with users, posts, follows,
// groups and games. It writes through the repositories and services so
// seeded rows look exactly like ones created over the API.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"seniority/internal/game"
	"seniority/internal/models"
	"seniority/internal/observability"
	"seniority/internal/repository"
	"seniority/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/dustin/go-humanize"
	"gorm.io/gorm"
)

// Options controls how much data a run creates.
type Options struct {
	Users           int
	PostsPerUser    int
	CommentsPerPost int
	MaxLikesPerPost int
	FollowsPerUser  int
	Games           int
	Groups          int
	// MaxAge spreads post creation times over this window before now.
	MaxAge time.Duration
	Clean  bool
}

// DefaultOptions is a small but lively community.
var DefaultOptions = Options{
	Users:           25,
	PostsPerUser:    4,
	CommentsPerPost: 2,
	MaxLikesPerPost: 6,
	FollowsPerUser:  3,
	Games:           5,
	Groups:          3,
	MaxAge:          72 * time.Hour,
	Clean:           true,
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
	Follows  int
	Groups   int
	Members  int
	Games    int
	Moves    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%s users, %s posts, %s comments, %s likes, %s follows, %s groups (%s members), %s games (%s moves)",
		humanize.Comma(int64(s.Users)),
		humanize.Comma(int64(s.Posts)),
		humanize.Comma(int64(s.Comments)),
		humanize.Comma(int64(s.Likes)),
		humanize.Comma(int64(s.Follows)),
		humanize.Comma(int64(s.Groups)),
		humanize.Comma(int64(s.Members)),
		humanize.Comma(int64(s.Games)),
		humanize.Comma(int64(s.Moves)),
	)
}

// Seeder creates demo data. A fixed random seed yields the same community.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	friends  repository.FriendRepository
	groups   *service.GroupService
	games    *service.GameService
	registry *game.Registry
	faker    *gofakeit.Faker
	now      func() time.Time
}

// NewSeeder binds a Seeder to db.
func NewSeeder(db *gorm.DB, randomSeed int64) *Seeder {
	registry := game.DefaultRegistry()
	users := repository.NewUserRepository(db)
	friends := repository.NewFriendRepository(db)
	return &Seeder{
		db:       db,
		users:    users,
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		friends:  friends,
		groups:   service.NewGroupService(repository.NewGroupRepository(db), users, friends, nil),
		games:    service.NewGameService(repository.NewGameRepository(db), users, friends, game.NewEngine(registry), nil),
		registry: registry,
		faker:    gofakeit.New(randomSeed),
		now:      time.Now,
	}
}

// ClearAll removes every seeded table's rows, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []interface{}{
		&models.Notification{},
		&models.GroupMembership{},
		&models.Group{},
		&models.GameStats{},
		&models.GameMove{},
		&models.GameSession{},
		&models.Friendship{},
		&models.Like{},
		&models.Comment{},
		&models.Post{},
		&models.User{},
	}
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped()
	for _, table := range tables {
		if err := tx.Delete(table).Error; err != nil {
			return fmt.Errorf("clear %T: %w", table, err)
		}
	}
	return nil
}

// Run seeds according to opts.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary
	start := s.now()

	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return summary, err
		}
	}

	users, err := s.createUsers(ctx, opts.Users)
	if err != nil {
		return summary, fmt.Errorf("failed to create users: %w", err)
	}
	summary.Users = len(users)

	if summary.Follows, err = s.createFollows(ctx, users, opts.FollowsPerUser); err != nil {
		return summary, fmt.Errorf("failed to create follows: %w", err)
	}

	posts, err := s.createPosts(ctx, users, opts.PostsPerUser, opts.MaxAge)
	if err != nil {
		return summary, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)

	if summary.Likes, summary.Comments, err = s.createEngagement(ctx, users, posts, opts); err != nil {
		return summary, fmt.Errorf("failed to create engagement: %w", err)
	}

	if summary.Groups, summary.Members, err = s.createGroups(ctx, users, opts.Groups); err != nil {
		return summary, fmt.Errorf("failed to create groups: %w", err)
	}

	if summary.Games, summary.Moves, err = s.createGames(ctx, users, opts.Games); err != nil {
		return summary, fmt.Errorf("failed to create games: %w", err)
	}

	observability.GlobalLogger.InfoContext(ctx, "database seeded",
		slog.String("summary", summary.String()),
		slog.Duration("took", s.now().Sub(start)),
	)
	return summary, nil
}

func (s *Seeder) createUsers(ctx context.Context, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for len(users) < count {
		first, last := s.faker.FirstName(), s.faker.LastName()
		user := &models.User{
			Username:    fmt.Sprintf("%s%d", s.faker.Username(), s.faker.Number(100, 999)),
			DisplayName: first + " " + last,
			Bio:         s.faker.Sentence(10),
			AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
		}
		if err := s.users.Create(ctx, user); err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// createFollows links each user to up to perUser others with accepted friendships.
func (s *Seeder) createFollows(ctx context.Context, users []*models.User, perUser int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	created := 0
	for _, user := range users {
		for i := 0; i < perUser; i++ {
			other := users[s.faker.Number(0, len(users)-1)]
			if other.ID == user.ID {
				continue
			}
			existing, err := s.friends.GetFriendshipBetweenUsers(ctx, user.ID, other.ID)
			if err != nil {
				return created, err
			}
			if existing != nil {
				continue
			}
			if err := s.friends.Create(ctx, &models.Friendship{
				RequesterID: user.ID,
				AddresseeID: other.ID,
				Status:      models.FriendshipStatusAccepted,
			}); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func (s *Seeder) createPosts(ctx context.Context, users []*models.User, perUser int, maxAge time.Duration) ([]*models.Post, error) {
	if maxAge <= 0 {
		maxAge = DefaultOptions.MaxAge
	}
	now := s.now()
	posts := make([]*models.Post, 0, len(users)*perUser)
	for _, user := range users {
		for i := 0; i < perUser; i++ {
			age := time.Duration(s.faker.Number(0, int(maxAge/time.Minute))) * time.Minute
			post := &models.Post{
				Content:   s.faker.Paragraph(1, 3, 12, " "),
				UserID:    user.ID,
				CreatedAt: now.Add(-age),
			}
			if s.faker.Number(0, 3) == 0 {
				post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.faker.UUID())
			}
			if err := s.posts.Create(ctx, post); err != nil {
				return nil, err
			}
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (s *Seeder) createEngagement(ctx context.Context, users []*models.User, posts []*models.Post, opts Options) (likes, comments int, err error) {
	for _, post := range posts {
		for i := s.faker.Number(0, opts.MaxLikesPerPost); i > 0; i-- {
			liker := users[s.faker.Number(0, len(users)-1)]
			added, err := s.posts.Like(ctx, liker.ID, post.ID)
			if err != nil {
				return likes, comments, err
			}
			if added {
				likes++
			}
		}
		for i := 0; i < opts.CommentsPerPost; i++ {
			author := users[s.faker.Number(0, len(users)-1)]
			if err := s.comments.Create(ctx, &models.Comment{
				Content: s.faker.Sentence(8),
				UserID:  author.ID,
				PostID:  post.ID,
			}); err != nil {
				return likes, comments, err
			}
			comments++
		}
	}
	return likes, comments, nil
}

// createGames starts count sessions between random pairs and plays a few
// random moves in each. Rejected moves are simply skipped.
// createGroups starts count groups, each joined by a random share of users.
// members counts every membership, owners included.
func (s *Seeder) createGroups(ctx context.Context, users []*models.User, count int) (groups, members int, err error) {
	if len(users) == 0 {
		return 0, 0, nil
	}
	for i := 0; i < count; i++ {
		owner := users[s.faker.Number(0, len(users)-1)]
		group, err := s.groups.CreateGroup(ctx, owner.ID, service.CreateGroupInput{
			Name:        s.faker.City() + " " + s.faker.RandomString([]string{"Garden Club", "Walkers", "Book Circle", "Bridge Society"}),
			Description: s.faker.Sentence(8),
		})
		if err != nil {
			return groups, members, err
		}
		groups++
		members++

		for _, user := range users {
			if user.ID == owner.ID || !s.faker.Bool() {
				continue
			}
			if _, err := s.groups.Join(ctx, user.ID, group.ID); err != nil {
				return groups, members, err
			}
			members++
		}
	}
	return groups, members, nil
}

func (s *Seeder) createGames(ctx context.Context, users []*models.User, count int) (games, moves int, err error) {
	if len(users) < 2 {
		return 0, 0, nil
	}
	ids := s.registry.IDs()
	for i := 0; i < count; i++ {
		a := users[s.faker.Number(0, len(users)-1)]
		// Only people you follow can be challenged.
		following, err := s.friends.GetFollowingIDs(ctx, a.ID)
		if err != nil {
			return games, moves, err
		}
		if len(following) == 0 {
			continue
		}
		opponent := following[s.faker.Number(0, len(following)-1)]
		gameID := ids[s.faker.Number(0, len(ids)-1)]
		rules, _ := s.registry.Lookup(gameID)

		session, created, err := s.games.Challenge(ctx, a.ID, opponent, gameID)
		if err != nil {
			return games, moves, err
		}
		if !created {
			continue
		}
		games++

		for attempt := s.faker.Number(0, rules.Cells()); attempt > 0; attempt-- {
			if session.Status != models.GamePlaying {
				break
			}
			next, result, err := s.games.Move(ctx, session.ID, session.CurrentTurnID, s.faker.Number(0, rules.Cells()-1))
			if err != nil {
				return games, moves, err
			}
			if result.Accepted {
				moves++
			}
			session = next
		}
	}
	return games, moves, nil
}
