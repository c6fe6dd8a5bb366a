// Package tui is a terminal front end for a single game, built on bubbletea.
package tui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jaminalder/tictactoe-replay/internal/domain"
)

var (
	winStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Bold(true)
	xStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD"))
	oStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C")).Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
	stepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
)

const help = "arrows/hjkl move  enter play  1-9 play cell  [ ] history  s sort  q quit"

// Model is the bubbletea model. Every key press is one event applied to the
// game before the next is read.
type Model struct {
	game   domain.Game
	cursor int
	log    *slog.Logger
}

// New returns a model over a fresh game.
func New(log *slog.Logger) Model {
	if log == nil {
		log = slog.Default()
	}
	return Model{game: domain.New(), cursor: 4, log: log.With("component", "tui")}
}

// Game returns a snapshot of the current game.
func (m Model) Game() domain.Game { return m.game }

// Cursor returns the highlighted cell index.
func (m Model) Cursor() int { return m.cursor }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch k := key.String(); k {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor >= 3 {
			m.cursor -= 3
		}
	case "down", "j":
		if m.cursor < 6 {
			m.cursor += 3
		}
	case "left", "h":
		if m.cursor%3 > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor%3 < 2 {
			m.cursor++
		}
	case "enter", " ":
		m.play(m.cursor)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.cursor = int(k[0] - '1')
		m.play(m.cursor)
	case "[":
		m.jump(m.game.Step() - 1)
	case "]":
		m.jump(m.game.Step() + 1)
	case "s":
		m.game.ToggleSort()
	}
	return m, nil
}

func (m *Model) play(cell int) {
	if !m.game.Play(cell) {
		m.log.Debug("move ignored", "cell", cell, "step", m.game.Step())
		return
	}
	m.log.Debug("move played", "cell", cell, "step", m.game.Step(), "outcome", m.game.Outcome().State.String())
}

func (m *Model) jump(step int) {
	if err := m.game.JumpTo(step); err != nil {
		m.log.Debug("jump rejected", "step", step, "error", err)
	}
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Tic-Tac-Toe"))
	s.WriteString("\n\n")

	board := m.game.CurrentBoard()
	line, won := m.game.WinningLine()
	for r := 0; r < 3; r++ {
		if r > 0 {
			s.WriteString("---+---+---\n")
		}
		for c := 0; c < 3; c++ {
			i := r*3 + c
			if c > 0 {
				s.WriteString("|")
			}
			s.WriteString(m.renderCell(i, board[i], won && line.Contains(i)))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.game.StatusText())
	s.WriteString("\n\n")

	order := "ascending"
	if m.game.SortDescending() {
		order = "descending"
	}
	s.WriteString(fmt.Sprintf("moves (%s):\n", order))
	for _, mv := range m.game.MoveList() {
		marker := "  "
		if mv.Step == m.game.Step() {
			marker = stepStyle.Render("> ")
		}
		s.WriteString(marker)
		s.WriteString(mv.Label)
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(footerStyle.Render(help))
	s.WriteString("\n")
	return s.String()
}

func (m Model) renderCell(i int, c domain.Cell, highlight bool) string {
	mark := c.String()
	if mark == "" {
		mark = " "
	}
	text := " " + mark + " "
	switch {
	case highlight:
		text = winStyle.Render(text)
	case c == domain.X:
		text = xStyle.Render(text)
	case c == domain.O:
		text = oStyle.Render(text)
	}
	if i == m.cursor {
		text = cursorStyle.Render(text)
	}
	return text
}
