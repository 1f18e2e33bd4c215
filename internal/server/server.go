package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"anima/internal/engine"
	"anima/internal/evolve"
	"anima/internal/stash"
)

// Server is the anima HTTP API. It is a thin transport: every handler
// maps a request onto one core function and returns its result. The
// core never initiates outbound calls.
type Server struct {
	engine  *engine.Engine
	evolve  *evolve.Engine
	stash   *stash.DB
	router  chi.Router
	version string
	started time.Time
}

// New creates a Server over the given engines.
func New(eng *engine.Engine, evo *evolve.Engine, kv *stash.DB, version string) *Server {
	s := &Server{
		engine:  eng,
		evolve:  evo,
		stash:   kv,
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
		r.Get("/boot", s.handleBoot)

		r.Post("/track/tool", s.handleTrackTool)
		r.Post("/track/prompt", s.handleTrackPrompt)
		r.Post("/track/file", s.handleTrackFile)
		r.Post("/heartbeat", s.handleHeartbeat)
		r.Post("/reflex/ack", s.handleAckReflex)

		r.Get("/entities", s.handleListEntities)
		r.Post("/entities", s.handleAddEntity)
		r.Get("/entities/{name}", s.handleGetEntity)
		r.Delete("/entities/{name}", s.handleRemoveEntity)
		r.Post("/entities/{name}/link", s.handleLinkEntity)

		r.Get("/genome", s.handleGenomeStatus)
		r.Post("/genome/accept", s.handleGenomeAccept)
		r.Post("/genome/restore", s.handleGenomeRestore)

		r.Post("/evolution/analyze", s.handleAnalyze)
		r.Post("/evolution/trigger", s.handleTrigger)

		r.Get("/stash", s.handleStashList)
		r.Get("/stash/{key}", s.handleStashGet)
		r.Put("/stash/{key}", s.handleStashSet)
		r.Delete("/stash/{key}", s.handleStashDelete)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.engine.State.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"root":    s.engine.Docs.Root,
		"boots":   st.Analytics.Boots,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
