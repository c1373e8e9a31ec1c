package game

// ticTacToeLines are checked in this order: rows top to bottom, columns left
// to right, the main diagonal, then the anti-diagonal. The first complete
// line decides the winner.
var ticTacToeLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// TicTacToe is the classic 3x3 game. Cells are numbered row-major from 0.
type TicTacToe struct{}

// ID implements Rules.
func (TicTacToe) ID() string { return "tictactoe" }

// Cells implements Rules.
func (TicTacToe) Cells() int { return 9 }

// Symbols implements Rules.
func (TicTacToe) Symbols() [2]Symbol { return [2]Symbol{"X", "O"} }

// Playable implements Rules; any empty cell may be marked.
func (TicTacToe) Playable([]Symbol, int) bool { return true }

// Evaluate implements Rules.
func (TicTacToe) Evaluate(board []Symbol) (Symbol, bool) {
	for _, line := range ticTacToeLines {
		if w := lineWinner(board, line[:]); w != Empty {
			return w, true
		}
	}
	return Empty, full(board)
}
