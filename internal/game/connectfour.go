package game

const (
	connectFourRows = 6
	connectFourCols = 7
)

// ConnectFour is played on 6 rows by 7 columns, row-major with row 0 at the
// top. A disc may only occupy the lowest free cell of its column.
type ConnectFour struct{}

// ID implements Rules.
func (ConnectFour) ID() string { return "connectfour" }

// Cells implements Rules.
func (ConnectFour) Cells() int { return connectFourRows * connectFourCols }

// Symbols implements Rules.
func (ConnectFour) Symbols() [2]Symbol { return [2]Symbol{"R", "Y"} }

// Playable implements Rules: the cell below must be filled or be the floor.
func (ConnectFour) Playable(board []Symbol, cell int) bool {
	below := cell + connectFourCols
	return below >= len(board) || board[below] != Empty
}

// Evaluate implements Rules. Directions are scanned horizontal, vertical,
// down-right, then up-right.
func (ConnectFour) Evaluate(board []Symbol) (Symbol, bool) {
	at := func(r, c int) Symbol { return board[r*connectFourCols+c] }
	four := func(r, c, dr, dc int) Symbol {
		s := at(r, c)
		if s == Empty {
			return Empty
		}
		for i := 1; i < 4; i++ {
			if at(r+dr*i, c+dc*i) != s {
				return Empty
			}
		}
		return s
	}

	directions := [4]struct{ dr, dc, rowMin, rowMax, colMax int }{
		{0, 1, 0, connectFourRows, connectFourCols - 3},
		{1, 0, 0, connectFourRows - 3, connectFourCols},
		{1, 1, 0, connectFourRows - 3, connectFourCols - 3},
		{-1, 1, 3, connectFourRows, connectFourCols - 3},
	}
	for _, d := range directions {
		for r := d.rowMin; r < d.rowMax; r++ {
			for c := 0; c < d.colMax; c++ {
				if w := four(r, c, d.dr, d.dc); w != Empty {
					return w, true
				}
			}
		}
	}

	// The top row fills last, so it alone decides a draw.
	for c := 0; c < connectFourCols; c++ {
		if at(0, c) == Empty {
			return Empty, false
		}
	}
	return Empty, true
}
