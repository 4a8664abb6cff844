package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lazypower/charmlink/internal/engine"
)

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	Version         string
	UserHeader      string
	DefaultLocation *time.Location
	RequestTimeout  time.Duration
	// Now is the clock used to derive "today". Defaults to time.Now.
	Now func() time.Time
}

// Server is the charmlink HTTP API server.
type Server struct {
	engine  *engine.Engine
	router  chi.Router
	metrics *metrics

	version    string
	userHeader string
	loc        *time.Location
	timeout    time.Duration
	now        func() time.Time
	started    time.Time
}

// New creates a Server backed by eng.
func New(eng *engine.Engine, opts Options) *Server {
	s := &Server{
		engine:     eng,
		metrics:    newMetrics(),
		version:    opts.Version,
		userHeader: opts.UserHeader,
		loc:        opts.DefaultLocation,
		timeout:    opts.RequestTimeout,
		now:        opts.Now,
		started:    time.Now(),
	}
	if s.userHeader == "" {
		s.userHeader = "X-User-ID"
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.timeout <= 0 {
		s.timeout = 15 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Handle("/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Post("/charms", s.handleCreateCharm)
			r.Get("/charms", s.handleListCharms)
			r.Get("/charms/{charmID}", s.handleGetCharm)
			r.Post("/charms/{charmID}/habits", s.handleCreateHabits)
			r.Get("/charms/{charmID}/habits", s.handleListHabits)

			r.Get("/habits/{habitID}", s.handleGetHabit)
			r.Delete("/habits/{habitID}", s.handleDeleteHabit)
			r.Post("/habits/{habitID}/log", s.handleLogToday)
			r.Post("/habits/{habitID}/toggle", s.handleToggleDate)
			r.Get("/habits/{habitID}/graph", s.handleGraph)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	db := s.engine.DB
	dbOK := true
	if err := db.PingContext(r.Context()); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"driver":  db.Driver,
	})
}
