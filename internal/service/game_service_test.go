package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"seniority/internal/game"
	"seniority/internal/models"
	"seniority/internal/notifications"
	"seniority/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice uint = 1
	bob   uint = 2
	carol uint = 3
)

func playingSession() *models.GameSession {
	s := &models.GameSession{
		ID:            1,
		GameID:        "tictactoe",
		PlayerOneID:   alice,
		PlayerTwoID:   bob,
		CurrentTurnID: alice,
		Status:        models.GamePlaying,
	}
	s.SetCells(make([]string, 9))
	return s
}

// mutualFriends is a friend repository where alice, bob and carol all follow each other.
func mutualFriends() *friendRepoStub {
	friends := noopFriendRepo()
	friends.getFollowingIDsFn = func(_ context.Context, userID uint) ([]uint, error) {
		var out []uint
		for _, id := range []uint{alice, bob, carol} {
			if id != userID {
				out = append(out, id)
			}
		}
		return out, nil
	}
	return friends
}

func newTestGameService(repo *gameRepoStub, pub Publisher) *GameService {
	svc := NewGameService(repo, noopUserRepo(), mutualFriends(), game.NewEngine(game.DefaultRegistry()), pub)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestGameService_Challenge(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a playing session and notifies the opponent", func(t *testing.T) {
		repo, row := storedGameRepo(&models.GameSession{})
		pub := newPublisherStub()
		svc := newTestGameService(repo, pub)

		session, created, err := svc.Challenge(ctx, alice, bob, "connectfour")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, models.GamePlaying, session.Status)
		assert.Equal(t, alice, session.CurrentTurnID)
		cells, err := row.Cells()
		require.NoError(t, err)
		assert.Len(t, cells, 42)

		events := pub.userEvents(bob)
		require.Len(t, events, 1)
		assert.Equal(t, notifications.EventGameChallenge, events[0].Type)
	})

	t.Run("returns the pair's playing session", func(t *testing.T) {
		repo, _ := storedGameRepo(&models.GameSession{})
		repo.findActiveBetweenFn = func(_ context.Context, a, b uint) (*models.GameSession, error) {
			assert.Equal(t, bob, a)
			assert.Equal(t, alice, b)
			return playingSession(), nil
		}
		repo.createFn = func(context.Context, *models.GameSession) error {
			t.Fatal("must not create a second session")
			return nil
		}
		svc := newTestGameService(repo, nil)

		session, created, err := svc.Challenge(ctx, bob, alice, "tictactoe")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, uint(1), session.ID)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		repo, _ := storedGameRepo(&models.GameSession{})
		svc := newTestGameService(repo, nil)

		_, _, err := svc.Challenge(ctx, alice, bob, "chess")
		assert.Equal(t, 400, models.StatusFor(err))

		_, _, err = svc.Challenge(ctx, alice, alice, "tictactoe")
		assert.Equal(t, 400, models.StatusFor(err))

		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		svc.userRepo = users
		_, _, err = svc.Challenge(ctx, alice, 42, "tictactoe")
		assert.Equal(t, 404, models.StatusFor(err))
	})

	t.Run("requires following the opponent", func(t *testing.T) {
		repo, _ := storedGameRepo(&models.GameSession{})
		repo.createFn = func(context.Context, *models.GameSession) error {
			t.Fatal("must not create a session with a stranger")
			return nil
		}
		pub := newPublisherStub()
		svc := newTestGameService(repo, pub)
		friends := noopFriendRepo()
		friends.getFollowingIDsFn = func(_ context.Context, userID uint) ([]uint, error) {
			assert.Equal(t, alice, userID)
			return []uint{carol}, nil
		}
		svc.friendRepo = friends

		_, _, err := svc.Challenge(ctx, alice, bob, "tictactoe")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeForbidden, appErr.Code)
		assert.Empty(t, pub.userEvents(bob))

		friends.getFollowingIDsFn = func(context.Context, uint) ([]uint, error) {
			return nil, errors.New("connection reset")
		}
		_, _, err = svc.Challenge(ctx, alice, bob, "tictactoe")
		assert.Error(t, err)
	})
}

func TestGameService_Move(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted move is stored and published", func(t *testing.T) {
		repo, row := storedGameRepo(playingSession())
		var recorded *models.GameMove
		inner := repo.compareAndSwapFn
		repo.compareAndSwapFn = func(ctx context.Context, s *models.GameSession, expected uint, move *models.GameMove) error {
			recorded = move
			return inner(ctx, s, expected, move)
		}
		pub := newPublisherStub()
		svc := newTestGameService(repo, pub)

		session, result, err := svc.Move(ctx, 1, alice, 4)
		require.NoError(t, err)
		assert.True(t, result.Accepted)
		assert.Equal(t, game.Symbol("X"), result.Symbol)
		assert.Equal(t, bob, session.CurrentTurnID)
		assert.Equal(t, uint(1), row.Version)
		assert.Equal(t, svc.now(), row.LastMoveAt)

		require.NotNil(t, recorded)
		assert.Equal(t, 4, recorded.Cell)
		assert.Equal(t, 1, recorded.MoveNumber)
		assert.Equal(t, "X", recorded.Symbol)

		events := pub.sessionEvents(1)
		require.Len(t, events, 1)
		assert.Equal(t, notifications.EventGameState, events[0].Type)
	})

	t.Run("invalid move is a rejection, not an error", func(t *testing.T) {
		repo, row := storedGameRepo(playingSession())
		pub := newPublisherStub()
		svc := newTestGameService(repo, pub)

		_, result, err := svc.Move(ctx, 1, bob, 4)
		require.NoError(t, err)
		assert.False(t, result.Accepted)
		assert.Equal(t, game.ReasonNotYourTurn, result.Reason)
		assert.Equal(t, uint(0), row.Version)
		assert.Empty(t, pub.sessionEvents(1))

		_, result, err = svc.Move(ctx, 1, carol, 4)
		require.NoError(t, err)
		assert.Equal(t, game.ReasonNotParticipant, result.Reason)

		_, result, err = svc.Move(ctx, 1, alice, 9)
		require.NoError(t, err)
		assert.Equal(t, game.ReasonOutOfBounds, result.Reason)
	})

	t.Run("lost conditional write is a stale rejection", func(t *testing.T) {
		repo, _ := storedGameRepo(playingSession())
		repo.compareAndSwapFn = func(context.Context, *models.GameSession, uint, *models.GameMove) error {
			return repository.ErrStaleSession
		}
		pub := newPublisherStub()
		svc := newTestGameService(repo, pub)

		session, result, err := svc.Move(ctx, 1, alice, 0)
		require.NoError(t, err)
		assert.False(t, result.Accepted)
		assert.Equal(t, game.ReasonStaleState, result.Reason)
		assert.Equal(t, alice, session.CurrentTurnID)
		assert.Empty(t, pub.sessionEvents(1))
	})

	t.Run("storage failure is an error", func(t *testing.T) {
		repo, _ := storedGameRepo(playingSession())
		repo.compareAndSwapFn = func(context.Context, *models.GameSession, uint, *models.GameMove) error {
			return models.NewInternalError(errors.New("db down"))
		}
		svc := newTestGameService(repo, nil)

		_, _, err := svc.Move(ctx, 1, alice, 0)
		assert.Error(t, err)
	})

	t.Run("concurrent moves on one session: exactly one lands", func(t *testing.T) {
		repo, row := storedGameRepo(playingSession())
		svc := newTestGameService(repo, nil)

		var wg sync.WaitGroup
		results := make([]game.MoveResult, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i], _ = svc.Move(ctx, 1, alice, i)
			}(i)
		}
		wg.Wait()

		accepted := 0
		for _, r := range results {
			if r.Accepted {
				accepted++
				continue
			}
			assert.Contains(t, []game.Reason{game.ReasonStaleState, game.ReasonNotYourTurn}, r.Reason)
		}
		assert.Equal(t, 1, accepted)
		assert.Equal(t, uint(1), row.Version)
	})

	t.Run("winning move finishes the session", func(t *testing.T) {
		start := playingSession()
		start.SetCells([]string{"X", "X", "", "O", "O", "", "", "", ""})
		repo, row := storedGameRepo(start)
		svc := newTestGameService(repo, nil)

		_, result, err := svc.Move(ctx, 1, alice, 2)
		require.NoError(t, err)
		assert.True(t, result.Finished)
		assert.Equal(t, models.GameFinished, row.Status)
		require.NotNil(t, row.WinnerID)
		assert.Equal(t, alice, *row.WinnerID)

		_, result, err = svc.Move(ctx, 1, bob, 5)
		require.NoError(t, err)
		assert.Equal(t, game.ReasonNotPlaying, result.Reason)
	})

	t.Run("unreadable board is rejected", func(t *testing.T) {
		start := playingSession()
		start.Board = "not json"
		repo, _ := storedGameRepo(start)
		svc := newTestGameService(repo, nil)

		_, result, err := svc.Move(ctx, 1, alice, 0)
		require.NoError(t, err)
		assert.Equal(t, game.ReasonCorruptBoard, result.Reason)
	})
}

func TestGameService_Forfeit(t *testing.T) {
	repo, row := storedGameRepo(playingSession())
	pub := newPublisherStub()
	svc := newTestGameService(repo, pub)

	// bob forfeits out of turn
	_, result, err := svc.Forfeit(context.Background(), 1, bob)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, models.GameFinished, row.Status)
	require.NotNil(t, row.WinnerID)
	assert.Equal(t, alice, *row.WinnerID)
	assert.Len(t, pub.sessionEvents(1), 1)

	_, result, err = svc.Forfeit(context.Background(), 1, alice)
	require.NoError(t, err)
	assert.Equal(t, game.ReasonNotPlaying, result.Reason)
}

func TestGameService_GetAndDismiss(t *testing.T) {
	ctx := context.Background()
	repo, row := storedGameRepo(playingSession())
	deleted := false
	repo.deleteFn = func(_ context.Context, id uint) error {
		deleted = true
		return nil
	}
	svc := newTestGameService(repo, nil)

	_, err := svc.Get(ctx, 1, carol)
	assert.Equal(t, 403, models.StatusFor(err))

	err = svc.Dismiss(ctx, 1, alice)
	assert.Equal(t, 409, models.StatusFor(err))
	assert.False(t, deleted)

	row.Status = models.GameFinished
	err = svc.Dismiss(ctx, 1, carol)
	assert.Equal(t, 403, models.StatusFor(err))

	require.NoError(t, svc.Dismiss(ctx, 1, bob))
	assert.True(t, deleted)
}

func TestGameService_ExpireIdle(t *testing.T) {
	repo, row := storedGameRepo(playingSession())
	var gotCutoff time.Time
	repo.listIdleSinceFn = func(_ context.Context, cutoff time.Time, limit int) ([]models.GameSession, error) {
		gotCutoff = cutoff
		assert.Equal(t, expireBatch, limit)
		return []models.GameSession{*playingSession()}, nil
	}
	pub := newPublisherStub()
	svc := newTestGameService(repo, pub)

	n, err := svc.ExpireIdle(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, svc.now().Add(-time.Hour), gotCutoff)

	// alice was to move, so bob wins
	assert.Equal(t, models.GameFinished, row.Status)
	require.NotNil(t, row.WinnerID)
	assert.Equal(t, bob, *row.WinnerID)
	assert.Len(t, pub.sessionEvents(1), 1)

	// the listed copy is now stale: nothing more expires
	n, err = svc.ExpireIdle(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestGameService_Catalog(t *testing.T) {
	repo, _ := storedGameRepo(&models.GameSession{})
	svc := newTestGameService(repo, nil)

	entries, err := svc.Catalog()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	ids := []string{entries[0].ID, entries[1].ID}
	assert.ElementsMatch(t, []string{"tictactoe", "connectfour"}, ids)
}
