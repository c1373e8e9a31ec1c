package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"seniority/internal/game"
	"seniority/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gameActionsStub is a stub for GameActions.
type gameActionsStub struct {
	getFn     func(context.Context, uint, uint) (*models.GameSession, error)
	moveFn    func(context.Context, uint, uint, int) (*models.GameSession, game.MoveResult, error)
	forfeitFn func(context.Context, uint, uint) (*models.GameSession, game.MoveResult, error)
}

func (s *gameActionsStub) Get(ctx context.Context, sessionID, userID uint) (*models.GameSession, error) {
	return s.getFn(ctx, sessionID, userID)
}
func (s *gameActionsStub) Move(ctx context.Context, sessionID, playerID uint, cell int) (*models.GameSession, game.MoveResult, error) {
	return s.moveFn(ctx, sessionID, playerID, cell)
}
func (s *gameActionsStub) Forfeit(ctx context.Context, sessionID, playerID uint) (*models.GameSession, game.MoveResult, error) {
	return s.forfeitFn(ctx, sessionID, playerID)
}

func testSession() *models.GameSession {
	s := &models.GameSession{ID: 4, GameID: "tictactoe", PlayerOneID: 1, PlayerTwoID: 2, CurrentTurnID: 1, Status: models.GamePlaying}
	s.SetCells(make([]string, 9))
	return s
}

func newStubActions() *gameActionsStub {
	return &gameActionsStub{
		getFn: func(_ context.Context, _, userID uint) (*models.GameSession, error) {
			s := testSession()
			if !s.HasPlayer(userID) {
				return nil, models.NewForbiddenError("not a participant")
			}
			return s, nil
		},
		moveFn: func(_ context.Context, _, _ uint, _ int) (*models.GameSession, game.MoveResult, error) {
			return testSession(), game.MoveResult{Accepted: true}, nil
		},
		forfeitFn: func(_ context.Context, _, _ uint) (*models.GameSession, game.MoveResult, error) {
			return testSession(), game.MoveResult{Accepted: true, Finished: true}, nil
		},
	}
}

type receivedEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func nextEvent(t *testing.T, c *Client) receivedEvent {
	t.Helper()
	select {
	case raw := <-c.Send:
		var ev receivedEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	case <-time.After(testEventuallyTimeout):
		t.Fatal("no event queued")
	}
	return receivedEvent{}
}

func TestGameHub_RegisterSendsSnapshot(t *testing.T) {
	hub := NewGameHub(newStubActions())
	ctx := context.Background()

	c, err := hub.Register(ctx, 4, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint(4), c.SessionID)

	ev := nextEvent(t, c)
	assert.Equal(t, EventGameState, ev.Type)
	var update struct {
		Session struct {
			ID    uint     `json:"id"`
			Board []string `json:"board"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(ev.Payload, &update))
	assert.Equal(t, uint(4), update.Session.ID)
	assert.Len(t, update.Session.Board, 9)

	_, err = hub.Register(ctx, 4, 99, nil)
	require.Error(t, err)
	assert.Equal(t, 403, models.StatusFor(err))
}

func TestGameHub_HandleMessage(t *testing.T) {
	actions := newStubActions()
	hub := NewGameHub(actions)
	ctx := context.Background()

	mover, err := hub.Register(ctx, 4, 1, nil)
	require.NoError(t, err)
	watcher, err := hub.Register(ctx, 4, 2, nil)
	require.NoError(t, err)
	nextEvent(t, mover)
	nextEvent(t, watcher)

	t.Run("invalid json", func(t *testing.T) {
		hub.HandleMessage(ctx, mover, []byte("{"))
		assert.Equal(t, EventError, nextEvent(t, mover).Type)
	})

	t.Run("move without cell", func(t *testing.T) {
		hub.HandleMessage(ctx, mover, []byte(`{"type":"make_move"}`))
		assert.Equal(t, EventError, nextEvent(t, mover).Type)
	})

	t.Run("unknown type", func(t *testing.T) {
		hub.HandleMessage(ctx, mover, []byte(`{"type":"dance"}`))
		assert.Equal(t, EventError, nextEvent(t, mover).Type)
	})

	t.Run("accepted move is left to the session channel", func(t *testing.T) {
		var gotCell int
		actions.moveFn = func(_ context.Context, sessionID, playerID uint, cell int) (*models.GameSession, game.MoveResult, error) {
			assert.Equal(t, uint(4), sessionID)
			assert.Equal(t, uint(1), playerID)
			gotCell = cell
			return testSession(), game.MoveResult{Accepted: true, Cell: cell}, nil
		}
		hub.HandleMessage(ctx, mover, []byte(`{"type":"make_move","cell":0}`))
		assert.Equal(t, 0, gotCell)
		assert.Empty(t, mover.Send)
		assert.Empty(t, watcher.Send)
	})

	t.Run("rejected move only goes back to the sender", func(t *testing.T) {
		actions.moveFn = func(_ context.Context, _, _ uint, _ int) (*models.GameSession, game.MoveResult, error) {
			return testSession(), game.Rejected(game.ReasonNotYourTurn), nil
		}
		hub.HandleMessage(ctx, mover, []byte(`{"type":"make_move","cell":3}`))

		ev := nextEvent(t, mover)
		assert.Equal(t, EventMoveRejected, ev.Type)
		var update struct {
			Result game.MoveResult `json:"result"`
		}
		require.NoError(t, json.Unmarshal(ev.Payload, &update))
		assert.False(t, update.Result.Accepted)
		assert.Equal(t, game.ReasonNotYourTurn, update.Result.Reason)
		assert.Empty(t, watcher.Send)
	})

	t.Run("service errors are reported", func(t *testing.T) {
		actions.forfeitFn = func(_ context.Context, _, _ uint) (*models.GameSession, game.MoveResult, error) {
			return nil, game.MoveResult{}, models.NewNotFoundError("Game session", 4)
		}
		hub.HandleMessage(ctx, mover, []byte(`{"type":"forfeit"}`))
		ev := nextEvent(t, mover)
		assert.Equal(t, EventError, ev.Type)
		assert.Contains(t, string(ev.Payload), "not found")

		actions.forfeitFn = func(_ context.Context, _, _ uint) (*models.GameSession, game.MoveResult, error) {
			return nil, game.MoveResult{}, models.NewInternalError(errors.New("db down"))
		}
		hub.HandleMessage(ctx, mover, []byte(`{"type":"forfeit"}`))
		ev = nextEvent(t, mover)
		assert.NotContains(t, string(ev.Payload), "db down")
	})
}

func TestGameHub_BroadcastAndWiring(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	hub := NewGameHub(newStubActions())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := hub.Register(ctx, 4, 1, nil)
	require.NoError(t, err)
	b, err := hub.Register(ctx, 4, 2, nil)
	require.NoError(t, err)
	nextEvent(t, a)
	nextEvent(t, b)

	require.NoError(t, hub.StartWiring(ctx, n))
	require.NoError(t, n.PublishGameSession(context.Background(), 4, Event{Type: EventGameState}))
	assert.Equal(t, EventGameState, nextEvent(t, a).Type)
	assert.Equal(t, EventGameState, nextEvent(t, b).Type)

	hub.UnregisterClient(a)
	hub.BroadcastToSession(4, `{"type":"game_state"}`)
	assert.Equal(t, EventGameState, nextEvent(t, b).Type)

	require.NoError(t, hub.Shutdown(context.Background()))
	_, open := <-b.Send
	assert.False(t, open)
}

func TestLocalPublisher(t *testing.T) {
	users := NewHub()
	games := NewGameHub(newStubActions())
	pub := &LocalPublisher{Users: users, Games: games}
	ctx := context.Background()

	u, err := users.Register(2, nil)
	require.NoError(t, err)
	g, err := games.Register(ctx, 4, 2, nil)
	require.NoError(t, err)
	nextEvent(t, g)

	require.NoError(t, pub.PublishUser(ctx, 2, Event{Type: EventGameChallenge}))
	assert.Equal(t, EventGameChallenge, nextEvent(t, u).Type)

	require.NoError(t, pub.PublishGameSession(ctx, 4, Event{Type: EventGameState}))
	assert.Equal(t, EventGameState, nextEvent(t, g).Type)

	assert.NoError(t, (&LocalPublisher{}).PublishUser(ctx, 2, Event{Type: EventGameChallenge}))
}
