package service

import (
	"context"
	"sync"
	"time"

	"seniority/internal/models"
	"seniority/internal/notifications"
	"seniority/internal/repository"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn          func(context.Context, *models.Post) error
	getByIDFn         func(context.Context, uint, uint) (*models.Post, error)
	getByUserIDFn     func(context.Context, uint, int, int, uint) ([]*models.Post, error)
	listFn            func(context.Context, int, int, uint) ([]*models.Post, error)
	deleteFn          func(context.Context, uint) error
	isLikedFn         func(context.Context, uint, uint) (bool, error)
	getLikedPostIDsFn func(context.Context, uint, []uint) ([]uint, error)
	getLikedByFn      func(context.Context, uint) ([]uint, error)
	likeFn            func(context.Context, uint, uint) (bool, error)
	unlikeFn          func(context.Context, uint, uint) (bool, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *postRepoStub) GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.getByUserIDFn(ctx, userID, limit, offset, currentUserID)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, currentUserID)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, postID)
}
func (s *postRepoStub) GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	return s.getLikedPostIDsFn(ctx, userID, postIDs)
}
func (s *postRepoStub) GetLikedBy(ctx context.Context, postID uint) ([]uint, error) {
	return s.getLikedByFn(ctx, postID)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) (bool, error) {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	return s.unlikeFn(ctx, userID, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:          func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:         func(_ context.Context, id, _ uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		getByUserIDFn:     func(_ context.Context, _ uint, _, _ int, _ uint) ([]*models.Post, error) { return nil, nil },
		listFn:            func(_ context.Context, _, _ int, _ uint) ([]*models.Post, error) { return nil, nil },
		deleteFn:          func(_ context.Context, _ uint) error { return nil },
		isLikedFn:         func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		getLikedPostIDsFn: func(_ context.Context, _ uint, _ []uint) ([]uint, error) { return nil, nil },
		getLikedByFn:      func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		likeFn:            func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		unlikeFn:          func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	listByPostFn func(context.Context, uint, int, int) ([]*models.Comment, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID, limit, offset)
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, *models.User) error
	listFn          func(context.Context, int, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateFn:        func(_ context.Context, _ *models.User) error { return nil },
		listFn:          func(_ context.Context, _, _ int) ([]models.User, error) { return nil, nil },
	}
}

// friendRepoStub is a stub for repository.FriendRepository.
type friendRepoStub struct {
	createFn                    func(context.Context, *models.Friendship) error
	getByIDFn                   func(context.Context, uint) (*models.Friendship, error)
	getFriendshipBetweenUsersFn func(context.Context, uint, uint) (*models.Friendship, error)
	getFollowingIDsFn           func(context.Context, uint) ([]uint, error)
	getFriendsFn                func(context.Context, uint) ([]models.User, error)
	getPendingRequestsFn        func(context.Context, uint) ([]models.Friendship, error)
	updateStatusFn              func(context.Context, uint, models.FriendshipStatus) error
	deleteFn                    func(context.Context, uint) error
}

func (s *friendRepoStub) Create(ctx context.Context, friendship *models.Friendship) error {
	return s.createFn(ctx, friendship)
}
func (s *friendRepoStub) GetByID(ctx context.Context, id uint) (*models.Friendship, error) {
	return s.getByIDFn(ctx, id)
}
func (s *friendRepoStub) GetFriendshipBetweenUsers(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error) {
	return s.getFriendshipBetweenUsersFn(ctx, userID1, userID2)
}
func (s *friendRepoStub) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.getFollowingIDsFn(ctx, userID)
}
func (s *friendRepoStub) GetFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.getFriendsFn(ctx, userID)
}
func (s *friendRepoStub) GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.getPendingRequestsFn(ctx, userID)
}
func (s *friendRepoStub) UpdateStatus(ctx context.Context, friendshipID uint, status models.FriendshipStatus) error {
	return s.updateStatusFn(ctx, friendshipID, status)
}
func (s *friendRepoStub) Delete(ctx context.Context, friendshipID uint) error {
	return s.deleteFn(ctx, friendshipID)
}

func noopFriendRepo() *friendRepoStub {
	return &friendRepoStub{
		createFn:                    func(_ context.Context, _ *models.Friendship) error { return nil },
		getByIDFn:                   func(_ context.Context, id uint) (*models.Friendship, error) { return &models.Friendship{ID: id}, nil },
		getFriendshipBetweenUsersFn: func(_ context.Context, _, _ uint) (*models.Friendship, error) { return nil, nil },
		getFollowingIDsFn:           func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		getFriendsFn:                func(_ context.Context, _ uint) ([]models.User, error) { return nil, nil },
		getPendingRequestsFn:        func(_ context.Context, _ uint) ([]models.Friendship, error) { return nil, nil },
		updateStatusFn:              func(_ context.Context, _ uint, _ models.FriendshipStatus) error { return nil },
		deleteFn:                    func(_ context.Context, _ uint) error { return nil },
	}
}

// gameRepoStub is a stub for repository.GameRepository.
type gameRepoStub struct {
	createFn            func(context.Context, *models.GameSession) error
	getByIDFn           func(context.Context, uint) (*models.GameSession, error)
	compareAndSwapFn    func(context.Context, *models.GameSession, uint, *models.GameMove) error
	deleteFn            func(context.Context, uint) error
	listActiveForUserFn func(context.Context, uint) ([]models.GameSession, error)
	findActiveBetweenFn func(context.Context, uint, uint) (*models.GameSession, error)
	listIdleSinceFn     func(context.Context, time.Time, int) ([]models.GameSession, error)
	getMovesFn          func(context.Context, uint) ([]models.GameMove, error)
	getStatsFn          func(context.Context, uint) ([]models.GameStats, error)
}

func (s *gameRepoStub) Create(ctx context.Context, session *models.GameSession) error {
	return s.createFn(ctx, session)
}
func (s *gameRepoStub) GetByID(ctx context.Context, id uint) (*models.GameSession, error) {
	return s.getByIDFn(ctx, id)
}
func (s *gameRepoStub) CompareAndSwap(ctx context.Context, session *models.GameSession, expectedVersion uint, move *models.GameMove) error {
	return s.compareAndSwapFn(ctx, session, expectedVersion, move)
}
func (s *gameRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *gameRepoStub) ListActiveForUser(ctx context.Context, userID uint) ([]models.GameSession, error) {
	return s.listActiveForUserFn(ctx, userID)
}
func (s *gameRepoStub) FindActiveBetween(ctx context.Context, userA, userB uint) (*models.GameSession, error) {
	return s.findActiveBetweenFn(ctx, userA, userB)
}
func (s *gameRepoStub) ListIdleSince(ctx context.Context, cutoff time.Time, limit int) ([]models.GameSession, error) {
	return s.listIdleSinceFn(ctx, cutoff, limit)
}
func (s *gameRepoStub) GetMoves(ctx context.Context, sessionID uint) ([]models.GameMove, error) {
	return s.getMovesFn(ctx, sessionID)
}
func (s *gameRepoStub) GetStats(ctx context.Context, userID uint) ([]models.GameStats, error) {
	return s.getStatsFn(ctx, userID)
}

// storedGameRepo backs a gameRepoStub with one versioned session, so the
// conditional write behaves like the real table.
func storedGameRepo(initial *models.GameSession) (*gameRepoStub, *models.GameSession) {
	var mu sync.Mutex
	row := *initial
	repo := &gameRepoStub{
		createFn: func(_ context.Context, s *models.GameSession) error {
			mu.Lock()
			defer mu.Unlock()
			s.ID = 1
			row = *s
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.GameSession, error) {
			mu.Lock()
			defer mu.Unlock()
			if id != row.ID {
				return nil, models.NewNotFoundError("Game session", id)
			}
			copied := row
			return &copied, nil
		},
		compareAndSwapFn: func(_ context.Context, s *models.GameSession, expected uint, _ *models.GameMove) error {
			mu.Lock()
			defer mu.Unlock()
			if row.Version != expected {
				return repository.ErrStaleSession
			}
			s.Version = expected + 1
			row = *s
			return nil
		},
		deleteFn:            func(_ context.Context, _ uint) error { return nil },
		listActiveForUserFn: func(_ context.Context, _ uint) ([]models.GameSession, error) { return nil, nil },
		findActiveBetweenFn: func(_ context.Context, _, _ uint) (*models.GameSession, error) { return nil, nil },
		listIdleSinceFn:     func(_ context.Context, _ time.Time, _ int) ([]models.GameSession, error) { return nil, nil },
		getMovesFn:          func(_ context.Context, _ uint) ([]models.GameMove, error) { return nil, nil },
		getStatsFn:          func(_ context.Context, _ uint) ([]models.GameStats, error) { return nil, nil },
	}
	return repo, &row
}

// publisherStub records published events.
type publisherStub struct {
	mu       sync.Mutex
	users    map[uint][]notifications.Event
	sessions map[uint][]notifications.Event
}

func newPublisherStub() *publisherStub {
	return &publisherStub{
		users:    make(map[uint][]notifications.Event),
		sessions: make(map[uint][]notifications.Event),
	}
}

func (p *publisherStub) PublishUser(_ context.Context, userID uint, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID] = append(p.users[userID], event)
	return nil
}

func (p *publisherStub) PublishGameSession(_ context.Context, sessionID uint, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[sessionID] = append(p.sessions[sessionID], event)
	return nil
}

func (p *publisherStub) userEvents(userID uint) []notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notifications.Event(nil), p.users[userID]...)
}

func (p *publisherStub) sessionEvents(sessionID uint) []notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notifications.Event(nil), p.sessions[sessionID]...)
}

// memoryInbox is an in-memory repository.NotificationRepository.
type memoryInbox struct {
	mu     sync.Mutex
	nextID uint
	rows   []*models.Notification
	fail   error
}

func (m *memoryInbox) Create(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.nextID++
	n.ID = m.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	stored := *n
	m.rows = append(m.rows, &stored)
	return nil
}

func (m *memoryInbox) ListForUser(_ context.Context, userID uint, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].UserID == userID {
			row := *m.rows[i]
			out = append(out, &row)
		}
	}
	return out, nil
}

func (m *memoryInbox) MarkRead(_ context.Context, id, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id && row.UserID == userID {
			row.Read = true
			return nil
		}
	}
	return models.NewNotFoundError("Notification", id)
}

func (m *memoryInbox) MarkAllRead(_ context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.UserID == userID && !row.Read {
			row.Read = true
			n++
		}
	}
	return n, nil
}

func (m *memoryInbox) CountUnread(_ context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.UserID == userID && !row.Read {
			n++
		}
	}
	return n, nil
}

var _ repository.NotificationRepository = (*memoryInbox)(nil)

// groupRepoStub is a stub for repository.GroupRepository.
type groupRepoStub struct {
	createFn        func(context.Context, *models.Group) error
	getByIDFn       func(context.Context, uint, uint) (*models.Group, error)
	listRecentFn    func(context.Context, int, int, uint) ([]*models.Group, error)
	listForUserFn   func(context.Context, uint) ([]*models.Group, error)
	getMembershipFn func(context.Context, uint, uint) (*models.GroupMembership, error)
	addMemberFn     func(context.Context, uint, uint) (bool, error)
	removeMemberFn  func(context.Context, uint, uint) (bool, error)
	listMembersFn   func(context.Context, uint, int, int) ([]models.GroupMembership, error)
}

func (s *groupRepoStub) Create(ctx context.Context, group *models.Group) error {
	return s.createFn(ctx, group)
}
func (s *groupRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Group, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *groupRepoStub) ListRecent(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Group, error) {
	return s.listRecentFn(ctx, limit, offset, viewerID)
}
func (s *groupRepoStub) ListForUser(ctx context.Context, userID uint) ([]*models.Group, error) {
	return s.listForUserFn(ctx, userID)
}
func (s *groupRepoStub) GetMembership(ctx context.Context, groupID, userID uint) (*models.GroupMembership, error) {
	return s.getMembershipFn(ctx, groupID, userID)
}
func (s *groupRepoStub) AddMember(ctx context.Context, groupID, userID uint) (bool, error) {
	return s.addMemberFn(ctx, groupID, userID)
}
func (s *groupRepoStub) RemoveMember(ctx context.Context, groupID, userID uint) (bool, error) {
	return s.removeMemberFn(ctx, groupID, userID)
}
func (s *groupRepoStub) ListMembers(ctx context.Context, groupID uint, limit, offset int) ([]models.GroupMembership, error) {
	return s.listMembersFn(ctx, groupID, limit, offset)
}

func noopGroupRepo() *groupRepoStub {
	return &groupRepoStub{
		createFn:        func(_ context.Context, _ *models.Group) error { return nil },
		getByIDFn:       func(_ context.Context, id, _ uint) (*models.Group, error) { return &models.Group{ID: id}, nil },
		listRecentFn:    func(_ context.Context, _, _ int, _ uint) ([]*models.Group, error) { return nil, nil },
		listForUserFn:   func(_ context.Context, _ uint) ([]*models.Group, error) { return nil, nil },
		getMembershipFn: func(_ context.Context, _, _ uint) (*models.GroupMembership, error) { return nil, nil },
		addMemberFn:     func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		removeMemberFn:  func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		listMembersFn:   func(_ context.Context, _ uint, _, _ int) ([]models.GroupMembership, error) { return nil, nil },
	}
}
