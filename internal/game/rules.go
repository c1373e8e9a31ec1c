// Package game implements the two-player turn-based session state machine and
// the per-game rule sets it dispatches to.
package game

import (
	"fmt"
	"sort"
	"sync"
)

// Symbol is the mark a player leaves on a cell. Empty marks a free cell.
type Symbol string

// Empty is the content of an unmarked cell.
const Empty Symbol = ""

// Rules describes one game: its board shape, the two symbols and how a
// finished board is recognised. Implementations must be stateless.
type Rules interface {
	// ID is the registry key stored on sessions.
	ID() string
	// Cells is the number of cells on the flat board.
	Cells() int
	// Symbols returns the marks of the first and second player.
	Symbols() [2]Symbol
	// Playable reports geometry constraints beyond "in bounds and empty",
	// for example gravity. Called only for in-bounds empty cells.
	Playable(board []Symbol, cell int) bool
	// Evaluate returns the winning symbol, or Empty with done=true for a draw.
	Evaluate(board []Symbol) (winner Symbol, done bool)
}

// Registry maps game ids to their rules.
type Registry struct {
	mu    sync.RWMutex
	games map[string]Rules
}

// NewRegistry returns a registry holding the given rules.
func NewRegistry(rules ...Rules) *Registry {
	r := &Registry{games: make(map[string]Rules)}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
	return r
}

// DefaultRegistry returns a registry with every built-in game.
func DefaultRegistry() *Registry {
	return NewRegistry(TicTacToe{}, ConnectFour{})
}

// Register adds rules under their id. Ids must be unique.
func (r *Registry) Register(rules Rules) error {
	if rules.Cells() <= 0 {
		return fmt.Errorf("game %q: board must have cells", rules.ID())
	}
	if s := rules.Symbols(); s[0] == Empty || s[1] == Empty || s[0] == s[1] {
		return fmt.Errorf("game %q: symbols must be distinct and non-empty", rules.ID())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.games[rules.ID()]; exists {
		return fmt.Errorf("game %q already registered", rules.ID())
	}
	r.games[rules.ID()] = rules
	return nil
}

// Lookup returns the rules registered for gameID.
func (r *Registry) Lookup(gameID string) (Rules, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rules, ok := r.games[gameID]
	return rules, ok
}

// IDs lists registered game ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.games))
	for id := range r.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// lineWinner returns the symbol filling every cell of line, or Empty.
func lineWinner(board []Symbol, line []int) Symbol {
	first := board[line[0]]
	if first == Empty {
		return Empty
	}
	for _, idx := range line[1:] {
		if board[idx] != first {
			return Empty
		}
	}
	return first
}

func full(board []Symbol) bool {
	for _, cell := range board {
		if cell == Empty {
			return false
		}
	}
	return true
}
