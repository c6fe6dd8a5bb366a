package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/jaminalder/tictactoe-replay/internal/app"
	"github.com/jaminalder/tictactoe-replay/internal/domain"
)

type templates struct {
	index *template.Template
	page  *template.Template
	game  *template.Template
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.board-row{display:flex}
.square{width:3em;height:3em;font-size:1.5em;background:#fff}
.square.highlight{background:#81d8ff}
.moves .bold{font-weight:bold}
</style>
</head><body>{{template "content" .}}</body></html>`))
	template.Must(base.New("game").Parse(gameTemplate))

	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Tic-Tac-Toe</h1><form action="/game" method="post"><button>New game</button></form>`))
	page := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div hx-sse="swap:game">{{template "game" .}}</div>
</div>`))
	// Standalone fragment used for htmx swaps and broadcasts
	game := template.Must(template.New("game_only").Parse(gameTemplate))
	return &templates{index: index, page: page, game: game}
}

// renderTemplate executes the named template of t's set, or t itself when
// name is empty.
func renderTemplate(t *template.Template, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if name == "" {
		err = t.Execute(&buf, data)
	} else {
		err = t.ExecuteTemplate(&buf, name, data)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const gameTemplate = `
<div id="game" class="game">
  <div class="game-board">
    {{range .Rows}}
    <div class="board-row">
      {{range .}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#game" hx-swap="outerHTML" method="post" action="/game/{{$.ID}}/play">
        <input type="hidden" name="cell" value="{{.Index}}">
        <button type="submit" class="square{{if .Highlight}} highlight{{end}}">{{.Mark}}</button>
      </form>
      {{end}}
    </div>
    {{end}}
  </div>
  <div class="game-info">
    <div class="status">{{.Status}}</div>
    <ol class="moves"{{if .Reversed}} reversed{{end}}>
      {{range .Moves}}
      <li>
        <form hx-post="/game/{{$.ID}}/jump" hx-target="#game" hx-swap="outerHTML" method="post" action="/game/{{$.ID}}/jump">
          <input type="hidden" name="step" value="{{.Step}}">
          <button type="submit"><span{{if $.Bold}} class="bold"{{end}}>{{.Label}}</span></button>
        </form>
      </li>
      {{end}}
    </ol>
  </div>
  <div class="reversed">
    <form hx-post="/game/{{.ID}}/sort" hx-target="#game" hx-swap="outerHTML" method="post" action="/game/{{.ID}}/sort">
      <button type="submit">{{.SortLabel}}</button>
    </form>
  </div>
</div>
`

type cellView struct {
	Index     int
	Mark      string
	Highlight bool
}

type gameView struct {
	ID        string
	Rows      [3][3]cellView
	Status    string
	Moves     []domain.Move
	Reversed  bool
	SortLabel string
	// Bold mirrors the move list emphasis of the original game: every label
	// is bold once a jump is recorded, except that a jump to step 0 counts
	// as no jump.
	Bold bool
}

func newGameView(s app.Session) gameView {
	g := s.Game
	board := g.CurrentBoard()
	line, won := g.WinningLine()

	v := gameView{
		ID:       s.ID,
		Status:   g.StatusText(),
		Moves:    g.MoveList(),
		Reversed: g.SortDescending(),
	}
	for i, c := range board {
		v.Rows[i/3][i%3] = cellView{
			Index:     i,
			Mark:      c.String(),
			Highlight: won && line.Contains(i),
		}
	}
	v.SortLabel = "Desc"
	if g.SortDescending() {
		v.SortLabel = "Asc"
	}
	if step, ok := g.LastJump(); ok && step != 0 {
		v.Bold = true
	}
	return v
}

const gameCookie = "game_id"

func setGameCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{Name: gameCookie, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

func gameFromCookie(r *http.Request) string {
	if c, err := r.Cookie(gameCookie); err == nil {
		return c.Value
	}
	return ""
}
