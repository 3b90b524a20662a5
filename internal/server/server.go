// Package server exposes discovery sessions and the saved-candidate store
// over a JSON HTTP API.
//
// Each API session owns one [discovery.Orchestrator]. Sessions live in
// memory and are dropped after [Config.IdleTimeout] without use. At most
// [Config.MaxSessions] exist at once; creating more answers 429. Saved
// candidates go through whichever [store.Store] the caller configured.
//
// Routes (all under /api/v1):
//
//	POST   /sessions                  create a session, returns {id}
//	GET    /sessions/{id}             current snapshot
//	DELETE /sessions/{id}             drop the session
//	POST   /sessions/{id}/search      {query, registry, mode} -> snapshot
//	POST   /sessions/{id}/more        next page -> snapshot
//	POST   /sessions/{id}/save        {username, labels, notes} -> saved record
//	GET    /classify                  ?quality=&popularity= -> impact
//	GET    /saved                     ?status=&label=
//	POST   /saved                     save a record
//	GET    /saved/export              ?format=csv|json
//	GET    /saved/{username}
//	PATCH  /saved/{username}          {status}
//	DELETE /saved/{username}
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/devscout/pkg/discovery"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/registry"
	"github.com/matzehuels/devscout/pkg/store"
)

// Session limits applied when [Config] leaves them zero.
const (
	DefaultIdleTimeout = time.Hour
	DefaultMaxSessions = 1000
)

// errTooManySessions is returned when every session slot is in use.
var errTooManySessions = errs.New(errs.ErrCodeRateLimit, "too many open sessions; try again later")

// Config wires the server to its collaborators.
type Config struct {
	Sources  registry.Sources
	Profiles discovery.ProfileSource // nil disables enrichment
	Store    store.Store
	Search   discovery.Options

	IdleTimeout time.Duration
	MaxSessions int // live sessions allowed at once
	Logger      *log.Logger

	// Now is used for session expiry. Defaults to time.Now.
	Now func() time.Time
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	logger *log.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*apiSession
}

type apiSession struct {
	orch     *discovery.Orchestrator
	lastUsed time.Time
}

// New creates a Server. cfg.Store must be non-nil.
func New(cfg Config) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Search.Logger == nil {
		cfg.Search.Logger = cfg.Logger
	}
	return &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		now:      cfg.Now,
		sessions: make(map[string]*apiSession),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.deleteSession)
				r.Post("/search", s.search)
				r.Post("/more", s.loadMore)
				r.Post("/save", s.saveFromSession)
			})
		})

		r.Get("/classify", s.classify)

		r.Route("/saved", func(r chi.Router) {
			r.Get("/", s.listSaved)
			r.Post("/", s.createSaved)
			r.Get("/export", s.exportSaved)
			r.Route("/{username}", func(r chi.Router) {
				r.Get("/", s.getSaved)
				r.Patch("/", s.updateSaved)
				r.Delete("/", s.deleteSaved)
			})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// newSession registers a fresh orchestrator and returns its id. Idle
// sessions are pruned first; if the server is still full it refuses.
func (s *Server) newSession() (string, error) {
	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	if len(s.sessions) >= s.cfg.MaxSessions {
		return "", errTooManySessions
	}
	s.sessions[id] = &apiSession{
		orch:     discovery.New(s.cfg.Sources, s.cfg.Profiles, s.cfg.Search),
		lastUsed: now,
	}
	return id, nil
}

// session looks up id and marks it used.
func (s *Server) session(id string) (*discovery.Orchestrator, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || now.Sub(sess.lastUsed) > s.cfg.IdleTimeout {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastUsed = now
	return sess.orch, true
}

func (s *Server) dropSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		sess.orch.Reset()
		delete(s.sessions, id)
	}
	return ok
}

func (s *Server) pruneLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.cfg.IdleTimeout {
			sess.orch.Reset()
			delete(s.sessions, id)
		}
	}
}

// logRequests logs one line per request through the charm logger.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		l := s.logger.With(
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
		if status >= http.StatusInternalServerError {
			l.Error("request")
			return
		}
		l.Debug("request")
	})
}
