package domain

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

// String returns "X", "O" or the empty string.
func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Board is a fixed 3x3 board stored row-major.
type Board [9]Cell

// Marks returns the number of non-empty cells.
func (b Board) Marks() int {
	n := 0
	for _, c := range b {
		if c != Empty {
			n++
		}
	}
	return n
}

// Line is an ordered triple of board indices.
type Line [3]int

// Contains reports whether idx is part of the line.
func (l Line) Contains(idx int) bool {
	return l[0] == idx || l[1] == idx || l[2] == idx
}

// lines lists every winning triple in priority order.
var lines = [8]Line{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// Evaluate returns the first winning line on b, scanning rows, then columns,
// then the two diagonals.
func Evaluate(b Board) (Line, bool) {
	for _, ln := range lines {
		if b[ln[0]] != Empty && b[ln[0]] == b[ln[1]] && b[ln[0]] == b[ln[2]] {
			return ln, true
		}
	}
	return Line{}, false
}
