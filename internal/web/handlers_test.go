package web

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jaminalder/tictactoe-replay/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := app.NewService(log)
	h := NewServer(s, log, WithHeartbeat(time.Hour))
	return s, h
}

func newTestGame(t *testing.T, s *app.Service) string {
	t.Helper()
	sess, err := s.CreateGame(context.Background())
	require.NoError(t, err)
	return sess.ID
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func playCell(t *testing.T, h http.Handler, id string, cell int) *httptest.ResponseRecorder {
	t.Helper()
	return postForm(t, h, "/game/"+id+"/play", url.Values{"cell": {strconv.Itoa(cell)}})
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<!doctype html>")
	assert.Contains(t, body, `action="/game"`)
}

func TestIndexResumesCookieGame(t *testing.T) {
	svc, h := newTestServer(t)
	id := newTestGame(t, svc)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: gameCookie, Value: id})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/game/"+id, rr.Result().Header.Get("Location"))
}

func TestIndexIgnoresStaleCookie(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: gameCookie, Value: "gone"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateRedirectsToGame(t *testing.T) {
	svc, h := newTestServer(t)
	rr := postForm(t, h, "/game", nil)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc := rr.Result().Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/game/"), "unexpected redirect %q", loc)

	id := strings.TrimPrefix(loc, "/game/")
	_, ok := svc.Get(id)
	assert.True(t, ok)

	var cookie string
	for _, c := range rr.Result().Cookies() {
		if c.Name == gameCookie {
			cookie = c.Value
		}
	}
	assert.Equal(t, id, cookie)
}

func TestGamePage(t *testing.T) {
	svc, h := newTestServer(t)
	id := newTestGame(t, svc)

	req := httptest.NewRequest("GET", "/game/"+url.PathEscape(id), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<!doctype html>")
	assert.Contains(t, body, `hx-ext="sse"`)
	assert.Contains(t, body, "/game/"+id+"/events")
	assert.Contains(t, body, "next player is X")
	assert.Contains(t, body, "go to game start")
	assert.Equal(t, 9, strings.Count(body, `name="cell"`))
}

func TestUnknownGame(t *testing.T) {
	_, h := newTestServer(t)

	req := httptest.NewRequest("GET", "/game/nope", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	assert.Equal(t, http.StatusNotFound, playCell(t, h, "nope", 0).Code)
	assert.Equal(t, http.StatusNotFound, postForm(t, h, "/game/nope/jump", url.Values{"step": {"0"}}).Code)
	assert.Equal(t, http.StatusNotFound, postForm(t, h, "/game/nope/sort", nil).Code)
}

func TestPlayReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	id := newTestGame(t, svc)

	rr := playCell(t, h, id, 4)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `id="game"`)
	assert.NotContains(t, body, "<!doctype html>")
	assert.Contains(t, body, "next player is O")
	assert.Contains(t, body, "go to move #1 (2,2)")

	latest, _ := svc.Get(id)
	assert.Equal(t, 2, latest.Game.Len())
}

func TestPlayWinHighlightsLine(t *testing.T) {
	svc, h := newTestServer(t)
	id := newTestGame(t, svc)

	var rr *httptest.ResponseRecorder
	for _, cell := range []int{0, 4, 1, 5, 2} {
		rr = playCell(t, h, id, cell)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	body := rr.Body.String()
	assert.Contains(t, body, "winner is X")
	assert.Equal(t, 3, strings.Count(body, "square highlight"))

	// further plays are ignored
	rr = playCell(t, h, id, 8)
	require.Equal(t, http.StatusOK, rr.Code)
	latest, _ := svc.Get(id)
	assert.Equal(t, 6, latest.Game.Len())
}

func TestPlayBadInputIsIgnored(t *testing.T) {
	svc, h := newTestServer(t)
	id := newTestGame(t, svc)

	for _, v := range []string{"9", "-1", "abc", ""} {
		rr := postForm(t, h, "/game/"+id+"/play", url.Values{"cell": {v}})
		require.Equal(t, http.StatusOK, rr.Code, "cell=%q", v)
		assert.Contains(t, rr.Body.String(), "next player is X")
	}
	latest, _ := svc.Get(id)
	assert.Equal(t, 1, latest.Game.Len())
}

func TestJumpAndBoldQuirk(t *testing.T) {
	svc, h := newTestServer(t)
	id := newTestGame(t, svc)
	for _, cell := range []int{0, 4, 8} {
		playCell(t, h, id, cell)
	}

	rr := postForm(t, h, "/game/"+id+"/jump", url.Values{"step": {"1"}})
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "next player is O")
	assert.Contains(t, body, `class="bold"`)

	latest, _ := svc.Get(id)
	assert.Equal(t, 1, latest.Game.Step())
	assert.Equal(t, 4, latest.Game.Len())

	// jumping to the start records the jump but is not emphasised
	rr = postForm(t, h, "/game/"+id+"/jump", url.Values{"step": {"0"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), `class="bold"`)
}

func TestJumpOutOfRangeIsIgnored(t *testing.T) {
	svc, h := newTestServer(t)
	id := newTestGame(t, svc)
	playCell(t, h, id, 0)

	for _, v := range []string{"5", "-1", "x"} {
		rr := postForm(t, h, "/game/"+id+"/jump", url.Values{"step": {v}})
		require.Equal(t, http.StatusOK, rr.Code, "step=%q", v)
	}
	latest, _ := svc.Get(id)
	assert.Equal(t, 1, latest.Game.Step())
}

func TestSortToggle(t *testing.T) {
	svc, h := newTestServer(t)
	id := newTestGame(t, svc)
	playCell(t, h, id, 0)

	rr := playCell(t, h, id, 1)
	body := rr.Body.String()
	assert.Contains(t, body, `<ol class="moves" reversed>`)
	assert.Contains(t, body, ">Asc</button>")
	assert.Less(t, strings.Index(body, "go to move #2"), strings.Index(body, "go to game start"))

	rr = postForm(t, h, "/game/"+id+"/sort", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body = rr.Body.String()
	assert.Contains(t, body, `<ol class="moves">`)
	assert.Contains(t, body, ">Desc</button>")
	assert.Less(t, strings.Index(body, "go to game start"), strings.Index(body, "go to move #2"))

	latest, _ := svc.Get(id)
	assert.False(t, latest.Game.SortDescending())
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	rrCreate := postForm(t, h, "/game", nil)
	loc := rrCreate.Result().Header.Get("Location")
	require.NotEmpty(t, loc)

	req := httptest.NewRequest("GET", loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Result().Header.Get("Content-Type"), "text/event-stream"))
}

func TestEventsStreamsGameFragments(t *testing.T) {
	svc, h := newTestServer(t)
	id := newTestGame(t, svc)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/game/"+id+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = svc.Play(context.Background(), id, 4)
	require.NoError(t, err)

	sc := bufio.NewScanner(resp.Body)
	var sawEvent, sawStatus bool
	for sc.Scan() {
		line := sc.Text()
		if line == "event: game" {
			sawEvent = true
		}
		if sawEvent && strings.HasPrefix(line, "data: ") && strings.Contains(line, "next player is O") {
			sawStatus = true
			break
		}
		if sawEvent && line == "" {
			break
		}
	}
	assert.True(t, sawEvent, "no game event received")
	assert.True(t, sawStatus, "event did not carry the rendered status")
}

func TestWriteEventSplitsLines(t *testing.T) {
	var sb strings.Builder
	writeEvent(&sb, "game", []byte("a\nb"))
	assert.Equal(t, "event: game\ndata: a\ndata: b\n\n", sb.String())
}
