package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRules struct {
	id      string
	cells   int
	symbols [2]Symbol
}

func (f fakeRules) ID() string                       { return f.id }
func (f fakeRules) Cells() int                       { return f.cells }
func (f fakeRules) Symbols() [2]Symbol               { return f.symbols }
func (f fakeRules) Playable([]Symbol, int) bool      { return true }
func (f fakeRules) Evaluate([]Symbol) (Symbol, bool) { return Empty, false }

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(fakeRules{id: "dots", cells: 4, symbols: [2]Symbol{"A", "B"}}))
	assert.Error(t, r.Register(fakeRules{id: "dots", cells: 4, symbols: [2]Symbol{"A", "B"}}), "duplicate id")
	assert.Error(t, r.Register(fakeRules{id: "void", cells: 0, symbols: [2]Symbol{"A", "B"}}))
	assert.Error(t, r.Register(fakeRules{id: "same", cells: 4, symbols: [2]Symbol{"A", "A"}}))

	rules, ok := r.Lookup("dots")
	require.True(t, ok)
	assert.Equal(t, 4, rules.Cells())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_NewGameUsesSameShell(t *testing.T) {
	r := NewRegistry(fakeRules{id: "dots", cells: 4, symbols: [2]Symbol{"A", "B"}})
	e := NewEngine(r)

	s, err := e.Start("dots", alice, bob)
	require.NoError(t, err)
	s, res := e.Move(s, alice, 3)
	require.True(t, res.Accepted)
	assert.Equal(t, Symbol("A"), s.Board[3])
	assert.Equal(t, bob, s.CurrentTurn)
}

func TestDefaultRegistry_IDs(t *testing.T) {
	assert.Equal(t, []string{"connectfour", "tictactoe"}, DefaultRegistry().IDs())
}

func TestTicTacToe_LineOrder(t *testing.T) {
	// Top and bottom rows are both complete; rows are scanned top first.
	winner, done := TicTacToe{}.Evaluate(board("O", "O", "O", "", "", "", "X", "X", "X"))
	assert.True(t, done)
	assert.Equal(t, Symbol("O"), winner)

	winner, done = TicTacToe{}.Evaluate(board("", "", "", "", "", "", "", "", ""))
	assert.False(t, done)
	assert.Equal(t, Empty, winner)
}

func TestLoadCatalog(t *testing.T) {
	entries, err := LoadCatalog(DefaultRegistry())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "connectfour", entries[0].ID)
	assert.Equal(t, "Connect Four", entries[0].Name)
	assert.Equal(t, 42, entries[0].Cells)
	assert.Equal(t, "tictactoe", entries[1].ID)
	assert.Equal(t, "Easy", entries[1].Difficulty)
	assert.Equal(t, []string{"X", "O"}, entries[1].Symbols)
}

func TestParseCatalog_UndescribedGame(t *testing.T) {
	r := NewRegistry(fakeRules{id: "dots", cells: 4, symbols: [2]Symbol{"A", "B"}})
	entries, err := parseCatalog([]byte("games:\n  - id: chess\n    name: Chess\n"), r)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "dots", entries[0].Name)

	_, err = parseCatalog([]byte("games: [unterminated"), r)
	assert.Error(t, err)
}
