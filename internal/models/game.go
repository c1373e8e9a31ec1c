package models

import (
	"encoding/json"
	"time"
)

// GameStatus defines the current state of a session
type GameStatus string

const (
	GameWaiting  GameStatus = "waiting"  // Created, not yet accepting moves
	GamePlaying  GameStatus = "playing"  // Moves accepted
	GameFinished GameStatus = "finished" // Won, drawn or forfeited
)

// GameSession is the persisted form of a two-player match. Version grows by
// one on every write and guards the conditional update of a move.
type GameSession struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	GameID        string     `gorm:"type:varchar(32);not null;index" json:"game_id"`
	PlayerOneID   uint       `gorm:"not null;index" json:"player_one_id"`
	PlayerTwoID   uint       `gorm:"not null;index" json:"player_two_id"`
	Board         string     `gorm:"type:text;not null" json:"-"`
	CurrentTurnID uint       `json:"current_turn_id"`
	Status        GameStatus `gorm:"type:varchar(16);default:'playing';index" json:"status"`
	WinnerID      *uint      `json:"winner_id,omitempty"`
	IsDraw        bool       `gorm:"default:false" json:"is_draw"`
	Version       uint       `gorm:"not null;default:0" json:"version"`
	LastMoveAt    time.Time  `gorm:"index" json:"last_move_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	PlayerOne *User `gorm:"foreignKey:PlayerOneID" json:"player_one,omitempty"`
	PlayerTwo *User `gorm:"foreignKey:PlayerTwoID" json:"player_two,omitempty"`
}

// Cells decodes the board. Empty strings are empty cells.
func (s *GameSession) Cells() ([]string, error) {
	if s.Board == "" {
		return nil, nil
	}
	var cells []string
	if err := json.Unmarshal([]byte(s.Board), &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

// SetCells encodes the board.
func (s *GameSession) SetCells(cells []string) {
	bytes, _ := json.Marshal(cells)
	s.Board = string(bytes)
}

// HasPlayer reports whether userID takes part in the session.
func (s *GameSession) HasPlayer(userID uint) bool {
	return userID != 0 && (s.PlayerOneID == userID || s.PlayerTwoID == userID)
}

// MarshalJSON exposes the board as an array instead of its stored text.
func (s GameSession) MarshalJSON() ([]byte, error) {
	type alias GameSession
	cells, err := s.Cells()
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		Board []string `json:"board"`
	}{alias: alias(s), Board: cells})
}

// GameMove represents a single accepted move of a session.
type GameMove struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GameSessionID uint      `gorm:"index" json:"game_session_id"`
	UserID        uint      `json:"user_id"`
	Cell          int       `json:"cell"`
	Symbol        string    `gorm:"type:varchar(8)" json:"symbol"`
	MoveNumber    int       `json:"move_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// GameStats tracks overall performance for a user per game
type GameStats struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"uniqueIndex:idx_user_game" json:"user_id"`
	GameID     string `gorm:"type:varchar(32);uniqueIndex:idx_user_game" json:"game_id"`
	Wins       int    `gorm:"default:0" json:"wins"`
	Losses     int    `gorm:"default:0" json:"losses"`
	Draws      int    `gorm:"default:0" json:"draws"`
	TotalGames int    `gorm:"default:0" json:"total_games"`
}
