package service

import (
	"fmt"
	"time"

	"seniority/internal/game"
	"seniority/internal/models"
)

// toEngine loads the stored session into the engine's form.
func toEngine(m *models.GameSession) (game.Session, error) {
	cells, err := m.Cells()
	if err != nil {
		return game.Session{}, fmt.Errorf("decode board of session %d: %w", m.ID, err)
	}
	board := make([]game.Symbol, len(cells))
	for i, c := range cells {
		board[i] = game.Symbol(c)
	}

	s := game.Session{
		ID:          m.ID,
		GameID:      m.GameID,
		Players:     [2]uint{m.PlayerOneID, m.PlayerTwoID},
		Board:       board,
		CurrentTurn: m.CurrentTurnID,
		Status:      game.Status(m.Status),
		Draw:        m.IsDraw,
	}
	if m.WinnerID != nil {
		s.Winner = *m.WinnerID
	}
	return s, nil
}

// applyEngine copies the engine's result onto the stored session.
func applyEngine(m *models.GameSession, s game.Session, at time.Time) {
	cells := make([]string, len(s.Board))
	for i, sym := range s.Board {
		cells[i] = string(sym)
	}
	m.SetCells(cells)
	m.CurrentTurnID = s.CurrentTurn
	m.Status = models.GameStatus(s.Status)
	m.IsDraw = s.Draw
	m.WinnerID = nil
	if s.Winner != 0 {
		winner := s.Winner
		m.WinnerID = &winner
	}
	m.LastMoveAt = at
}

// filledCells counts the non-empty cells of a board.
func filledCells(board []game.Symbol) int {
	n := 0
	for _, c := range board {
		if c != game.Empty {
			n++
		}
	}
	return n
}

// outcome labels a finished session for metrics.
func outcome(s game.Session) string {
	if s.Draw {
		return "draw"
	}
	return "win"
}
