package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"seniority/internal/game"
	"seniority/internal/models"
	"seniority/internal/notifications"
	"seniority/internal/observability"
	"seniority/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// expireBatch bounds how many idle sessions one sweep closes.
const expireBatch = 100

// GameService provides game-session business logic on top of the engine.
// Every write goes through the repository's version check, so two moves
// racing on the same session can never both land.
type GameService struct {
	gameRepo   repository.GameRepository
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
	engine     *game.Engine
	publisher  Publisher
	now        func() time.Time
}

// NewGameService returns a new GameService.
func NewGameService(
	gameRepo repository.GameRepository,
	userRepo repository.UserRepository,
	friendRepo repository.FriendRepository,
	engine *game.Engine,
	publisher Publisher,
) *GameService {
	return &GameService{
		gameRepo:   gameRepo,
		userRepo:   userRepo,
		friendRepo: friendRepo,
		engine:     engine,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Catalog lists the playable games with their descriptions.
func (s *GameService) Catalog() ([]game.CatalogEntry, error) {
	entries, err := game.LoadCatalog(s.engine.Registry())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

// Challenge starts a session between challengerID and opponentID, who must
// be someone the challenger follows. When the pair already has a playing
// session, that session is returned instead and created is false.
func (s *GameService) Challenge(ctx context.Context, challengerID, opponentID uint, gameID string) (session *models.GameSession, created bool, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "GameService", "Challenge", attribute.String("game.id", gameID))
	defer func() { observability.EndSpan(span, err) }()

	if _, ok := s.engine.Registry().Lookup(gameID); !ok {
		return nil, false, models.NewValidationError("Unknown game")
	}
	if challengerID == opponentID {
		return nil, false, models.NewValidationError("You cannot challenge yourself")
	}
	if _, err = s.userRepo.GetByID(ctx, opponentID); err != nil {
		return nil, false, err
	}
	following, err := s.friendRepo.GetFollowingIDs(ctx, challengerID)
	if err != nil {
		return nil, false, err
	}
	if !slices.Contains(following, opponentID) {
		return nil, false, models.NewForbiddenError("You can only challenge people you follow")
	}

	existing, err := s.gameRepo.FindActiveBetween(ctx, challengerID, opponentID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	started, err := s.engine.Start(gameID, challengerID, opponentID)
	if err != nil {
		return nil, false, models.NewValidationError(err.Error())
	}
	session = &models.GameSession{
		GameID:      gameID,
		PlayerOneID: challengerID,
		PlayerTwoID: opponentID,
	}
	applyEngine(session, started, s.now())
	if err = s.gameRepo.Create(ctx, session); err != nil {
		return nil, false, err
	}

	observability.LogServiceCall(ctx, "GameService", "Challenge", map[string]interface{}{
		"session_id": session.ID,
		"game_id":    gameID,
	})
	notifyUser(ctx, s.publisher, models.Notification{
		UserID: opponentID, ActorID: challengerID, Type: models.NotificationChallenge, RelatedID: session.ID,
	}, notifications.Event{
		Type:    notifications.EventGameChallenge,
		Payload: notifications.GameUpdate{Session: session},
	})
	return session, true, nil
}

// Get returns a session to one of its players.
func (s *GameService) Get(ctx context.Context, sessionID, userID uint) (*models.GameSession, error) {
	session, err := s.gameRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasPlayer(userID) {
		return nil, models.NewForbiddenError("You are not playing in this session")
	}
	return session, nil
}

// History returns the accepted moves of a session in play order.
func (s *GameService) History(ctx context.Context, sessionID, userID uint) ([]models.GameMove, error) {
	if _, err := s.Get(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	return s.gameRepo.GetMoves(ctx, sessionID)
}

func (s *GameService) ListActive(ctx context.Context, userID uint) ([]models.GameSession, error) {
	return s.gameRepo.ListActiveForUser(ctx, userID)
}

func (s *GameService) Stats(ctx context.Context, userID uint) ([]models.GameStats, error) {
	return s.gameRepo.GetStats(ctx, userID)
}

// Move validates cell for playerID against the freshly read session and
// writes the result conditionally. An invalid move, or one that lost the
// race against another write, comes back as a rejected result with the
// current session; only infrastructure failures are errors.
func (s *GameService) Move(ctx context.Context, sessionID, playerID uint, cell int) (*models.GameSession, game.MoveResult, error) {
	return s.apply(ctx, "move", sessionID, func(current game.Session) (game.Session, game.MoveResult) {
		return s.engine.Move(current, playerID, cell)
	}, playerID)
}

// Forfeit ends the session in favour of the other player, whatever the turn.
func (s *GameService) Forfeit(ctx context.Context, sessionID, playerID uint) (*models.GameSession, game.MoveResult, error) {
	return s.apply(ctx, "forfeit", sessionID, func(current game.Session) (game.Session, game.MoveResult) {
		return s.engine.Forfeit(current, playerID)
	}, playerID)
}

// apply runs one read, validate, conditional-write cycle.
func (s *GameService) apply(
	ctx context.Context,
	kind string,
	sessionID uint,
	step func(game.Session) (game.Session, game.MoveResult),
	actorID uint,
) (_ *models.GameSession, _ game.MoveResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "GameService", kind,
		attribute.Int64("game.session_id", int64(sessionID)))
	defer func() { observability.EndSpan(span, err) }()

	stored, err := s.gameRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, game.MoveResult{}, err
	}
	current, err := toEngine(stored)
	if err != nil {
		return stored, game.Rejected(game.ReasonCorruptBoard), nil
	}

	next, result := step(current)
	if !result.Accepted {
		observability.GameMoves.WithLabelValues(stored.GameID, string(result.Reason)).Inc()
		return stored, result, nil
	}

	expected := stored.Version
	applyEngine(stored, next, s.now())
	var move *models.GameMove
	if kind == "move" {
		move = &models.GameMove{
			UserID:     actorID,
			Cell:       result.Cell,
			Symbol:     string(result.Symbol),
			MoveNumber: filledCells(next.Board),
		}
	}

	if err = s.gameRepo.CompareAndSwap(ctx, stored, expected, move); err != nil {
		if !errors.Is(err, repository.ErrStaleSession) {
			return nil, game.MoveResult{}, err
		}
		observability.GameMoves.WithLabelValues(stored.GameID, string(game.ReasonStaleState)).Inc()
		fresh, getErr := s.gameRepo.GetByID(ctx, sessionID)
		if getErr != nil {
			return nil, game.MoveResult{}, getErr
		}
		return fresh, game.Rejected(game.ReasonStaleState), nil
	}

	observability.GameMoves.WithLabelValues(stored.GameID, "accepted").Inc()
	if result.Finished {
		label := outcome(next)
		if kind == "forfeit" {
			label = "forfeit"
		}
		observability.GameSessionsFinished.WithLabelValues(stored.GameID, label).Inc()
	}
	notifySession(ctx, s.publisher, stored.ID, notifications.Event{
		Type:    notifications.EventGameState,
		Payload: notifications.GameUpdate{Session: stored, Result: &result},
	})
	return stored, result, nil
}

// Dismiss deletes a finished session. Only its players may do so.
func (s *GameService) Dismiss(ctx context.Context, sessionID, userID uint) error {
	session, err := s.Get(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if session.Status != models.GameFinished {
		return models.NewConflictError("Only finished sessions can be dismissed")
	}
	return s.gameRepo.Delete(ctx, sessionID)
}

// ExpireIdle ends playing sessions with no move for longer than idle. The
// player whose turn it was forfeits. It returns how many sessions ended.
func (s *GameService) ExpireIdle(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := s.now().Add(-idle)
	sessions, err := s.gameRepo.ListIdleSince(ctx, cutoff, expireBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range sessions {
		stored := &sessions[i]
		current, err := toEngine(stored)
		if err != nil {
			observability.GlobalLogger.WarnContext(ctx, "skipping idle session with unreadable board",
				slog.Uint64("session_id", uint64(stored.ID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		next, result := s.engine.Expire(current)
		if !result.Accepted {
			continue
		}

		expected := stored.Version
		applyEngine(stored, next, s.now())
		if err := s.gameRepo.CompareAndSwap(ctx, stored, expected, nil); err != nil {
			if errors.Is(err, repository.ErrStaleSession) {
				// a move landed meanwhile, so the session is no longer idle
				continue
			}
			return expired, err
		}

		expired++
		observability.GameSessionsFinished.WithLabelValues(stored.GameID, "expired").Inc()
		notifySession(ctx, s.publisher, stored.ID, notifications.Event{
			Type:    notifications.EventGameState,
			Payload: notifications.GameUpdate{Session: stored, Result: &result},
		})
	}
	return expired, nil
}
