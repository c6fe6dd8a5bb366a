package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jaminalder/tictactoe-replay/internal/app"
	"github.com/jaminalder/tictactoe-replay/internal/logger"
)

// Option configures the web server.
type Option func(*handlers)

// WithHeartbeat sets the interval of SSE keep-alive comments.
func WithHeartbeat(d time.Duration) Option {
	return func(h *handlers) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// NewServer wires routes and returns an http.Handler. It also installs the
// game fragment renderer on s so live viewers receive rendered HTML.
func NewServer(s *app.Service, log *slog.Logger, opts ...Option) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &handlers{
		svc:       s,
		tpl:       loadTemplates(),
		log:       log.With("component", "web"),
		heartbeat: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	s.SetRenderer(h.broadcastFragment)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.NewMiddleware(h.log))

	r.Get("/", h.index)
	r.Get("/healthz", healthCheck)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/play", h.play)
		r.Post("/jump", h.jump)
		r.Post("/sort", h.sort)
		r.Get("/events", h.events)
	})
	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
