package domain

import (
	"errors"
	"fmt"
)

// ErrStepOutOfRange is returned when a jump targets a step outside the history.
var ErrStepOutOfRange = errors.New("step out of range")

// State tags the outcome of the board at the current step.
type State uint8

const (
	InProgress State = iota
	Won
	Draw
)

func (s State) String() string {
	switch s {
	case Won:
		return "won"
	case Draw:
		return "draw"
	default:
		return "in_progress"
	}
}

// Outcome is the state of the displayed board. Line and Winner are only set
// when State is Won.
type Outcome struct {
	State  State
	Line   Line
	Winner Cell
}

// Move is one row of the move list.
type Move struct {
	Step  int
	Label string
}

// Game holds the full move history of a Tic-Tac-Toe match and the step being
// displayed. Copying a Game yields an independent snapshot.
type Game struct {
	history  History
	step     int
	xIsNext  bool
	lastJump int
	jumped   bool
	sortDesc bool
}

// New returns a new game with X to move and the move list sorted descending.
func New() Game {
	return Game{
		history:  NewHistory(),
		xIsNext:  true,
		sortDesc: true,
	}
}

// Play marks cell (0..8) for the player to move at the current step. Moves on
// an occupied cell, outside the board, or on a decided board are ignored; the
// result reports whether the game changed.
func (g *Game) Play(cell int) bool {
	if cell < 0 || cell > 8 {
		return false
	}
	board := g.CurrentBoard()
	if _, won := Evaluate(board); won || board[cell] != Empty {
		return false
	}

	mark := O
	if g.xIsNext {
		mark = X
	}
	board[cell] = mark

	g.history = g.history.Truncate(g.step+1).Append(Entry{
		Board: board,
		Row:   cell/3 + 1,
		Col:   cell%3 + 1,
	})
	g.step = g.history.Len() - 1
	g.xIsNext = !g.xIsNext
	g.jumped = false
	g.lastJump = 0
	return true
}

// JumpTo displays the given step without altering history.
func (g *Game) JumpTo(step int) error {
	if step < 0 || step >= g.history.Len() {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrStepOutOfRange, step, g.history.Len()-1)
	}
	g.step = step
	g.xIsNext = step%2 == 0
	g.lastJump = step
	g.jumped = true
	return nil
}

// ToggleSort flips the move list order.
func (g *Game) ToggleSort() {
	g.sortDesc = !g.sortDesc
}

// Step returns the index of the displayed history entry.
func (g Game) Step() int { return g.step }

// XIsNext reports whether X plays next.
func (g Game) XIsNext() bool { return g.xIsNext }

// Next returns the mark of the player to move.
func (g Game) Next() Cell {
	if g.xIsNext {
		return X
	}
	return O
}

// LastJump returns the most recent jump target since the last move, if any.
func (g Game) LastJump() (int, bool) { return g.lastJump, g.jumped }

// SortDescending reports whether the move list is rendered newest first.
func (g Game) SortDescending() bool { return g.sortDesc }

// History returns the recorded history.
func (g Game) History() History { return g.history }

// Len returns the number of history entries.
func (g Game) Len() int { return g.history.Len() }

// CurrentBoard returns the board at the displayed step.
func (g Game) CurrentBoard() Board {
	return g.history.At(g.step).Board
}

// WinningLine returns the winning line on the displayed board, if any.
func (g Game) WinningLine() (Line, bool) {
	return Evaluate(g.CurrentBoard())
}

// Outcome derives the state of the displayed board.
func (g Game) Outcome() Outcome {
	board := g.CurrentBoard()
	if ln, ok := Evaluate(board); ok {
		return Outcome{State: Won, Line: ln, Winner: board[ln[0]]}
	}
	if g.step == 9 {
		return Outcome{State: Draw}
	}
	return Outcome{State: InProgress}
}

// StatusText describes the displayed board for the player.
func (g Game) StatusText() string {
	out := g.Outcome()
	switch out.State {
	case Won:
		return "winner is " + out.Winner.String()
	case Draw:
		return "draw"
	default:
		return "next player is " + g.Next().String()
	}
}

// MoveList labels every history entry, newest first when sorted descending.
func (g Game) MoveList() []Move {
	n := g.history.Len()
	moves := make([]Move, 0, n)
	for i := 0; i < n; i++ {
		m := i
		if g.sortDesc {
			m = n - 1 - i
		}
		moves = append(moves, Move{Step: m, Label: moveLabel(m, g.history.At(m))})
	}
	return moves
}

func moveLabel(step int, e Entry) string {
	if step == 0 {
		return "go to game start"
	}
	return fmt.Sprintf("go to move #%d (%d,%d)", step, e.Col, e.Row)
}
