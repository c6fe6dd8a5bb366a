package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaminalder/tictactoe-replay/internal/domain"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned for unknown game ids.
var ErrNotFound = errors.New("game not found")

var tracer = otel.Tracer("github.com/jaminalder/tictactoe-replay/internal/app")

// Session is a snapshot of one game tracked by the service.
type Session struct {
	ID      string
	Game    domain.Game
	Created time.Time
	Updated time.Time
}

type entry struct {
	mu   sync.Mutex
	sess Session
	subs map[*subscriber]struct{}
}

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Service manages games and their live viewers. Events on one game are
// applied one at a time, in arrival order.
type Service struct {
	games  *xsync.MapOf[string, *entry]
	logger *slog.Logger

	renderMu sync.RWMutex
	render   func(Session) []byte
}

// NewService creates a service whose broadcasts carry no payload.
func NewService(logger *slog.Logger) *Service { return NewServiceWithRenderer(logger, nil) }

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(logger *slog.Logger, renderer func(Session) []byte) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		games:  xsync.NewMapOf[string, *entry](),
		logger: logger.With("component", "app"),
	}
	s.SetRenderer(renderer)
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(Session) []byte) {
	if renderer == nil {
		renderer = func(Session) []byte { return nil }
	}
	s.renderMu.Lock()
	s.render = renderer
	s.renderMu.Unlock()
}

func (s *Service) renderer() func(Session) []byte {
	s.renderMu.RLock()
	defer s.renderMu.RUnlock()
	return s.render
}

// CreateGame creates and registers a new game.
func (s *Service) CreateGame(ctx context.Context) (Session, error) {
	_, span := tracer.Start(ctx, "app.CreateGame")
	defer span.End()

	id, err := uuid.NewRandom()
	if err != nil {
		return Session{}, fmt.Errorf("generate game id: %w", err)
	}
	now := time.Now()
	e := &entry{
		sess: Session{ID: id.String(), Game: domain.New(), Created: now, Updated: now},
		subs: make(map[*subscriber]struct{}),
	}
	s.games.Store(e.sess.ID, e)
	span.SetAttributes(attribute.String("game.id", e.sess.ID))
	s.logger.InfoContext(ctx, "game created", "game_id", e.sess.ID)
	return e.sess, nil
}

// Get returns a snapshot of the game if present.
func (s *Service) Get(id string) (Session, bool) {
	e, ok := s.games.Load(id)
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess, true
}

// Play applies a cell click. Ignored moves are not errors; the returned
// snapshot is then simply unchanged.
func (s *Service) Play(ctx context.Context, id string, cell int) (Session, error) {
	ctx, span := tracer.Start(ctx, "app.Play", trace.WithAttributes(
		attribute.String("game.id", id),
		attribute.Int("game.cell", cell),
	))
	defer span.End()

	return s.apply(ctx, id, func(g *domain.Game) (bool, error) {
		if !g.Play(cell) {
			s.logger.DebugContext(ctx, "move ignored", "game_id", id, "cell", cell, "step", g.Step())
			return false, nil
		}
		s.logger.InfoContext(ctx, "move played", "game_id", id, "cell", cell, "step", g.Step(), "outcome", g.Outcome().State.String())
		return true, nil
	})
}

// JumpTo displays an earlier step of the game.
func (s *Service) JumpTo(ctx context.Context, id string, step int) (Session, error) {
	ctx, span := tracer.Start(ctx, "app.JumpTo", trace.WithAttributes(
		attribute.String("game.id", id),
		attribute.Int("game.step", step),
	))
	defer span.End()

	sess, err := s.apply(ctx, id, func(g *domain.Game) (bool, error) {
		if err := g.JumpTo(step); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		span.RecordError(err)
		s.logger.DebugContext(ctx, "jump rejected", "game_id", id, "step", step, "error", err)
	}
	return sess, err
}

// ToggleSort flips the move list order of the game.
func (s *Service) ToggleSort(ctx context.Context, id string) (Session, error) {
	ctx, span := tracer.Start(ctx, "app.ToggleSort", trace.WithAttributes(
		attribute.String("game.id", id),
	))
	defer span.End()

	return s.apply(ctx, id, func(g *domain.Game) (bool, error) {
		g.ToggleSort()
		return true, nil
	})
}

// apply runs fn under the game's lock and, if it changed the game, renders
// and fans out the new state. Subscriber channels are only sent on or closed
// while e.mu is held.
func (s *Service) apply(ctx context.Context, id string, fn func(*domain.Game) (bool, error)) (Session, error) {
	e, ok := s.games.Load(id)
	if !ok {
		return Session{}, ErrNotFound
	}

	e.mu.Lock()
	g := e.sess.Game
	changed, err := fn(&g)
	if err != nil || !changed {
		cp := e.sess
		e.mu.Unlock()
		return cp, err
	}
	e.sess.Game = g
	e.sess.Updated = time.Now()
	cp := e.sess
	payload := s.renderer()(cp)

	// Fan-out; slow subscribers are dropped, never waited on.
	dropped := 0
	for sub := range e.subs {
		select {
		case sub.ch <- payload:
		default:
			delete(e.subs, sub)
			sub.close()
			dropped++
		}
	}
	e.mu.Unlock()

	if dropped > 0 {
		s.logger.WarnContext(ctx, "dropped slow viewers", "game_id", id, "count", dropped)
	}
	return cp, nil
}

// Subscribe registers a live viewer for a game. The channel is closed when
// ctx ends, when unsubscribe is called, or when the viewer falls behind.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
	e, ok := s.games.Load(id)
	if !ok {
		return nil, nil, ErrNotFound
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	e.mu.Lock()
	e.subs[sub] = struct{}{}
	e.mu.Unlock()

	done := make(chan struct{})
	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			e.mu.Lock()
			delete(e.subs, sub)
			sub.close()
			e.mu.Unlock()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsub()
		case <-done:
		}
	}()
	return sub.ch, unsub, nil
}
