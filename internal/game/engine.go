package game

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a session. It only moves forward.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Reason explains why a move or forfeit was rejected.
type Reason string

const (
	ReasonNotPlaying     Reason = "not_playing"
	ReasonNotParticipant Reason = "not_participant"
	ReasonNotYourTurn    Reason = "not_your_turn"
	ReasonOutOfBounds    Reason = "out_of_bounds"
	ReasonCellOccupied   Reason = "cell_occupied"
	ReasonIllegalCell    Reason = "illegal_cell"
	ReasonUnknownGame    Reason = "unknown_game"
	ReasonCorruptBoard   Reason = "corrupt_board"
	// ReasonStaleState is produced by callers whose conditional write lost
	// against a concurrent update.
	ReasonStaleState Reason = "stale_state"
)

// Errors returned by Start.
var (
	ErrUnknownGame    = errors.New("unknown game")
	ErrInvalidPlayers = errors.New("a session needs two distinct players")
)

// Session is an in-memory snapshot of a match. Players[0] plays the first
// symbol of the rules and moves first. Winner is zero until the session
// finishes; a finished session with Draw set has no winner.
type Session struct {
	ID          uint
	GameID      string
	Players     [2]uint
	Board       []Symbol
	CurrentTurn uint
	Status      Status
	Winner      uint
	Draw        bool
}

// Seat returns 0 or 1 for a participant and -1 otherwise.
func (s Session) Seat(player uint) int {
	switch {
	case player == 0:
		return -1
	case s.Players[0] == player:
		return 0
	case s.Players[1] == player:
		return 1
	}
	return -1
}

// Opponent returns the other participant.
func (s Session) Opponent(player uint) uint {
	if s.Players[0] == player {
		return s.Players[1]
	}
	return s.Players[0]
}

func (s Session) clone() Session {
	board := make([]Symbol, len(s.Board))
	copy(board, s.Board)
	s.Board = board
	return s
}

// MoveResult reports the outcome of Move, Forfeit or Expire. A rejected
// result always comes with the caller's session untouched.
type MoveResult struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason,omitempty"`
	Cell     int    `json:"cell"`
	Symbol   Symbol `json:"symbol,omitempty"`
	Finished bool   `json:"finished"`
}

// Rejected builds a rejection result.
func Rejected(reason Reason) MoveResult {
	return MoveResult{Reason: reason, Cell: -1}
}

// Engine applies moves to sessions using the rules of their game.
type Engine struct {
	registry *Registry
}

// NewEngine returns an engine backed by registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Registry exposes the registry the engine dispatches to.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Start creates a session ready to play: empty board, first player to move.
func (e *Engine) Start(gameID string, first, second uint) (Session, error) {
	rules, ok := e.registry.Lookup(gameID)
	if !ok {
		return Session{}, fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
	}
	if first == 0 || second == 0 || first == second {
		return Session{}, ErrInvalidPlayers
	}
	return Session{
		GameID:      gameID,
		Players:     [2]uint{first, second},
		Board:       make([]Symbol, rules.Cells()),
		CurrentTurn: first,
		Status:      StatusPlaying,
	}, nil
}

// Move marks cell for player. Preconditions are checked in a fixed order:
// known game, playing, participant, turn, bounds, empty cell, game geometry.
// Any failure returns s unchanged with Accepted false.
func (e *Engine) Move(s Session, player uint, cell int) (Session, MoveResult) {
	rules, ok := e.registry.Lookup(s.GameID)
	if !ok {
		return s, Rejected(ReasonUnknownGame)
	}
	if s.Status != StatusPlaying {
		return s, Rejected(ReasonNotPlaying)
	}
	seat := s.Seat(player)
	if seat < 0 {
		return s, Rejected(ReasonNotParticipant)
	}
	if s.CurrentTurn != player {
		return s, Rejected(ReasonNotYourTurn)
	}
	if len(s.Board) != rules.Cells() {
		return s, Rejected(ReasonCorruptBoard)
	}
	if cell < 0 || cell >= len(s.Board) {
		return s, Rejected(ReasonOutOfBounds)
	}
	if s.Board[cell] != Empty {
		return s, Rejected(ReasonCellOccupied)
	}
	if !rules.Playable(s.Board, cell) {
		return s, Rejected(ReasonIllegalCell)
	}

	symbols := rules.Symbols()
	next := s.clone()
	next.Board[cell] = symbols[seat]

	result := MoveResult{Accepted: true, Cell: cell, Symbol: symbols[seat]}

	winner, done := rules.Evaluate(next.Board)
	if !done {
		next.CurrentTurn = next.Opponent(player)
		return next, result
	}

	next.Status = StatusFinished
	result.Finished = true
	switch winner {
	case symbols[0]:
		next.Winner = next.Players[0]
	case symbols[1]:
		next.Winner = next.Players[1]
	default:
		next.Draw = true
	}
	return next, result
}

// Forfeit ends a playing session in favour of the other participant,
// whatever the turn.
func (e *Engine) Forfeit(s Session, player uint) (Session, MoveResult) {
	if s.Status != StatusPlaying {
		return s, Rejected(ReasonNotPlaying)
	}
	if s.Seat(player) < 0 {
		return s, Rejected(ReasonNotParticipant)
	}

	next := s.clone()
	next.Status = StatusFinished
	next.Winner = next.Opponent(player)
	return next, MoveResult{Accepted: true, Cell: -1, Finished: true}
}

// Expire ends an idle session as a forfeit by the player whose turn it is.
func (e *Engine) Expire(s Session) (Session, MoveResult) {
	return e.Forfeit(s, s.CurrentTurn)
}
