package repository

import (
	"context"
	"errors"
	"time"

	"seniority/internal/models"
	"seniority/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleSession is returned by CompareAndSwap when the stored version no
// longer matches the one the caller read.
var ErrStaleSession = errors.New("game session changed since it was read")

// GameRepository defines persistence for game sessions, their move history
// and per-game statistics.
type GameRepository interface {
	Create(ctx context.Context, session *models.GameSession) error
	GetByID(ctx context.Context, id uint) (*models.GameSession, error)
	CompareAndSwap(ctx context.Context, session *models.GameSession, expectedVersion uint, move *models.GameMove) error
	Delete(ctx context.Context, id uint) error
	ListActiveForUser(ctx context.Context, userID uint) ([]models.GameSession, error)
	FindActiveBetween(ctx context.Context, userA, userB uint) (*models.GameSession, error)
	ListIdleSince(ctx context.Context, cutoff time.Time, limit int) ([]models.GameSession, error)
	GetMoves(ctx context.Context, sessionID uint) ([]models.GameMove, error)
	GetStats(ctx context.Context, userID uint) ([]models.GameStats, error)
}

type gameRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewGameRepository creates and returns a new GameRepository instance.
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepository{db: db, log: observability.NewRepoLogger("game_sessions")}
}

func (r *gameRepository) Create(ctx context.Context, session *models.GameSession) error {
	if err := r.db.WithContext(ctx).Omit("PlayerOne", "PlayerTwo").Create(session).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{
		"session_id": session.ID,
		"game_id":    session.GameID,
	})
	return nil
}

func (r *gameRepository) GetByID(ctx context.Context, id uint) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).
		Preload("PlayerOne").
		Preload("PlayerTwo").
		First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Game session", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &session, nil
}

// CompareAndSwap writes session only if the stored version still equals
// expectedVersion. On success the version is bumped, the move (if any) is
// appended to the history and, when the session just finished, both players'
// statistics are updated, all in one transaction.
func (r *gameRepository) CompareAndSwap(ctx context.Context, session *models.GameSession, expectedVersion uint, move *models.GameMove) (err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "CompareAndSwap", "game_sessions")
	defer func() { observability.EndSpan(span, err) }()

	now := time.Now()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.GameSession{}).
			Where("id = ? AND version = ?", session.ID, expectedVersion).
			Updates(map[string]interface{}{
				"board":           session.Board,
				"current_turn_id": session.CurrentTurnID,
				"status":          session.Status,
				"winner_id":       session.WinnerID,
				"is_draw":         session.IsDraw,
				"version":         expectedVersion + 1,
				"last_move_at":    session.LastMoveAt,
				"updated_at":      now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleSession
		}

		if move != nil {
			move.GameSessionID = session.ID
			if err := tx.Create(move).Error; err != nil {
				return err
			}
		}
		if session.Status == models.GameFinished {
			return recordResult(tx, session)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStaleSession) {
			observability.StaleMoveConflicts.Inc()
			return err
		}
		r.log.LogError(ctx, err, "compare_and_swap")
		return models.NewInternalError(err)
	}

	session.Version = expectedVersion + 1
	session.UpdatedAt = now
	r.log.LogUpdate(ctx, map[string]interface{}{
		"session_id": session.ID,
		"version":    session.Version,
		"status":     session.Status,
	})
	return nil
}

// recordResult adds one finished game to each player's statistics.
func recordResult(tx *gorm.DB, session *models.GameSession) error {
	for _, userID := range []uint{session.PlayerOneID, session.PlayerTwoID} {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.GameStats{UserID: userID, GameID: session.GameID}).Error; err != nil {
			return err
		}

		var wins, losses, draws int
		switch {
		case session.IsDraw:
			draws = 1
		case session.WinnerID != nil && *session.WinnerID == userID:
			wins = 1
		case session.WinnerID != nil:
			losses = 1
		}
		if err := tx.Model(&models.GameStats{}).
			Where("user_id = ? AND game_id = ?", userID, session.GameID).
			Updates(map[string]interface{}{
				"wins":        gorm.Expr("wins + ?", wins),
				"losses":      gorm.Expr("losses + ?", losses),
				"draws":       gorm.Expr("draws + ?", draws),
				"total_games": gorm.Expr("total_games + ?", 1),
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *gameRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_session_id = ?", id).Delete(&models.GameMove{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.GameSession{}, id).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"session_id": id})
	return nil
}

func (r *gameRepository) ListActiveForUser(ctx context.Context, userID uint) ([]models.GameSession, error) {
	var sessions []models.GameSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND (player_one_id = ? OR player_two_id = ?)", models.GamePlaying, userID, userID).
		Preload("PlayerOne").
		Preload("PlayerTwo").
		Order("last_move_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return sessions, nil
}

// FindActiveBetween returns the playing session of the pair, in either seat
// order, or nil when there is none.
func (r *gameRepository) FindActiveBetween(ctx context.Context, userA, userB uint) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).
		Where("status = ?", models.GamePlaying).
		Where("(player_one_id = ? AND player_two_id = ?) OR (player_one_id = ? AND player_two_id = ?)",
			userA, userB, userB, userA).
		Order("id ASC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &session, nil
}

// ListIdleSince returns playing sessions whose last move is older than cutoff.
func (r *gameRepository) ListIdleSince(ctx context.Context, cutoff time.Time, limit int) ([]models.GameSession, error) {
	var sessions []models.GameSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND last_move_at < ?", models.GamePlaying, cutoff).
		Order("last_move_at ASC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return sessions, nil
}

func (r *gameRepository) GetMoves(ctx context.Context, sessionID uint) ([]models.GameMove, error) {
	var moves []models.GameMove
	err := r.db.WithContext(ctx).
		Where("game_session_id = ?", sessionID).
		Order("move_number ASC").
		Find(&moves).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return moves, nil
}

func (r *gameRepository) GetStats(ctx context.Context, userID uint) ([]models.GameStats, error) {
	var stats []models.GameStats
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("game_id ASC").
		Find(&stats).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stats, nil
}
