package web

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jaminalder/tictactoe-replay/internal/app"
	"github.com/jaminalder/tictactoe-replay/internal/domain"
	"github.com/jaminalder/tictactoe-replay/internal/logger"
)

var errBadForm = errors.New("malformed form value")

type handlers struct {
	svc       *app.Service
	tpl       *templates
	log       *slog.Logger
	heartbeat time.Duration
}

func (h *handlers) renderFragment(s app.Session) ([]byte, error) {
	return renderTemplate(h.tpl.game, "", newGameView(s))
}

// broadcastFragment is the app.Service renderer for live viewers.
func (h *handlers) broadcastFragment(s app.Session) []byte {
	b, err := h.renderFragment(s)
	if err != nil {
		h.log.Error("failed to render broadcast", "game_id", s.ID, "error", err)
		return nil
	}
	return b
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *handlers) writeFragment(w http.ResponseWriter, r *http.Request, s app.Session) {
	b, err := h.renderFragment(s)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to render game", "game_id", s.ID, "error", err)
		http.Error(w, "failed to render", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, b)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	if id := gameFromCookie(r); id != "" {
		if _, ok := h.svc.Get(id); ok {
			http.Redirect(w, r, "/game/"+id, http.StatusSeeOther)
			return
		}
	}
	b, err := renderTemplate(h.tpl.index, "base", nil)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to render index", "error", err)
		http.Error(w, "failed to render", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, b)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.CreateGame(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to create game", "error", err)
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	setGameCookie(w, s.ID)
	http.Redirect(w, r, "/game/"+s.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	s, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	b, err := renderTemplate(h.tpl.page, "base", newGameView(s))
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to render page", "game_id", s.ID, "error", err)
		http.Error(w, "failed to render", http.StatusInternalServerError)
		return
	}
	setGameCookie(w, s.ID)
	writeHTML(w, http.StatusOK, b)
}

// play handles a cell click. Invalid input and ignored moves re-render the
// unchanged game.
func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	log := logger.FromContext(r.Context())

	f, err := parsePlayForm(r)
	if err != nil {
		log.Debug("bad play request", "game_id", id, "error", err)
		h.current(w, r, id)
		return
	}
	s, err := h.svc.Play(r.Context(), id, *f.Cell)
	if errors.Is(err, app.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	h.writeFragment(w, r, s)
}

func (h *handlers) jump(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	log := logger.FromContext(r.Context())

	f, err := parseJumpForm(r)
	if err != nil {
		log.Debug("bad jump request", "game_id", id, "error", err)
		h.current(w, r, id)
		return
	}
	s, err := h.svc.JumpTo(r.Context(), id, *f.Step)
	switch {
	case errors.Is(err, app.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, domain.ErrStepOutOfRange):
		log.Debug("jump rejected", "game_id", id, "step", *f.Step)
	}
	h.writeFragment(w, r, s)
}

func (h *handlers) sort(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.ToggleSort(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.writeFragment(w, r, s)
}

func (h *handlers) current(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.writeFragment(w, r, s)
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// Non-EventSource requests only get the headers
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer unsub()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, "game", b)
			flusher.Flush()
		}
	}
}

// writeEvent emits one SSE event, splitting data over "data:" lines.
func writeEvent(w io.Writer, event string, data []byte) {
	_, _ = io.WriteString(w, "event: "+event+"\n")
	for _, line := range bytes.Split(data, []byte("\n")) {
		_, _ = io.WriteString(w, "data: ")
		_, _ = w.Write(line)
		_, _ = io.WriteString(w, "\n")
	}
	_, _ = io.WriteString(w, "\n")
}
