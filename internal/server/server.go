package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hobbotdev/hobbot/internal/engine"
	"github.com/hobbotdev/hobbot/internal/store"
)

// Server is the hobbot memory HTTP API server. It carries the current cycle's
// collector; the surrounding application drives at most one cycle at a time.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time

	mu    sync.Mutex
	cycle *engine.CycleEvents
}

// New creates a new Server with the given database, engine, and version string.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
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
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/context", s.handleContext)
		r.Get("/knowledge", s.handleKnowledge)
		r.Get("/reflections", s.handleReflections)

		r.Post("/cycle/start", s.handleCycleStart)
		r.Post("/cycle/counter", s.handleCycleCounter)
		r.Post("/cycle/notable", s.handleCycleNotable)
		r.Post("/cycle/complete", s.handleCycleComplete)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
