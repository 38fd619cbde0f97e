// Package server exposes the answer pipeline over HTTP. Sessions live in an
// in-memory map keyed by id; idle sessions are evicted so long-running
// deployments do not accumulate conversation buffers forever.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/tanvirhossain/oporichita/internal/session"
)

var log = logrus.WithField("component", "server")

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
	// SessionIdleTimeout evicts sessions idle longer than this. Zero keeps
	// the default of 30 minutes.
	SessionIdleTimeout time.Duration
}

// Server serves the question-answering API.
type Server struct {
	cfg    Config
	engine *session.Engine
	router chi.Router

	mu       sync.Mutex
	sessions map[string]*session.Session

	httpServer   *http.Server
	stopSweep    chan struct{}
	shutdownOnce sync.Once
}

// New creates a Server around an initialized engine.
func New(cfg Config, engine *session.Engine) *Server {
	if cfg.SessionIdleTimeout <= 0 {
		cfg.SessionIdleTimeout = 30 * time.Minute
	}
	s := &Server{
		cfg:       cfg,
		engine:    engine,
		sessions:  make(map[string]*session.Session),
		stopSweep: make(chan struct{}),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/api/ask", s.handleAsk)
	r.Get("/api/stats", s.handleStats)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

type askRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	sess, err := s.session(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	answer := sess.Ask(r.Context(), req.Query)
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	report := s.engine.Report()

	s.mu.Lock()
	active := len(s.sessions)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		session.Report
		ActiveSessions int `json:"active_sessions"`
	}{report, active})
}

// session resolves an existing session by id or creates a fresh one when no
// id is given. Unknown ids are an error rather than a silent new session, so
// clients notice eviction.
func (s *Server) session(id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		sess := s.engine.NewSession()
		s.sessions[sess.ID] = sess
		return sess, nil
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown or expired session %s", id)
	}
	return sess, nil
}

// sweep evicts sessions idle past the configured timeout. LastActive blocks
// while a session is answering a query, so it is read outside the server
// lock; a session mid-answer is not idle anyway.
func (s *Server) sweep() {
	cutoff := time.Now().Add(-s.cfg.SessionIdleTimeout)

	s.mu.Lock()
	snapshot := make(map[string]*session.Session, len(s.sessions))
	for id, sess := range s.sessions {
		snapshot[id] = sess
	}
	s.mu.Unlock()

	var stale []string
	for id, sess := range snapshot {
		if sess.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return
	}

	s.mu.Lock()
	for _, id := range stale {
		delete(s.sessions, id)
		log.WithField("session", id).Debug("evicted idle session")
	}
	s.mu.Unlock()
}

// Start begins listening on the configured port and runs the idle-session
// sweeper until Shutdown.
func (s *Server) Start() error {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopSweep:
				return
			}
		}
	}()

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.WithField("addr", addr).Info("server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and the session sweeper. Safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.stopSweep) })
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
