// Package server provides the HTTP server exposing the Agent Engine to a
// UI boundary (spec §6 External Interfaces): one engine run-loop per
// session (spec §5 "Scheduling model"), started over HTTP, observed over
// SSE, and resumed via decision-resolution endpoints for the engine's
// WaitingForReviewDecision/WaitingForDebateDecision suspensions.
//
// Adapted from the teacher's chi-based Server (middleware stack, CORS,
// custom SSE writer) with the session abstraction replaced: the teacher
// multiplexes many chat turns through one long-lived provider-backed
// session.Service, this multiplexes many independent Engine FSM runs
// through a session-ID-keyed map, each with its own eventbus.Bus.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/oklog/ulid/v2"

	"github.com/forgepilot/agentcore/internal/checkpoint"
	"github.com/forgepilot/agentcore/internal/config"
	"github.com/forgepilot/agentcore/internal/convergence"
	"github.com/forgepilot/agentcore/internal/engine"
	"github.com/forgepilot/agentcore/internal/eventbus"
	"github.com/forgepilot/agentcore/internal/executor"
	"github.com/forgepilot/agentcore/internal/llm"
	"github.com/forgepilot/agentcore/internal/observer"
	"github.com/forgepilot/agentcore/internal/patch"
	"github.com/forgepilot/agentcore/internal/planner"
	"github.com/forgepilot/agentcore/internal/preflight"
	"github.com/forgepilot/agentcore/internal/searchctx"
)

// Config holds server configuration.
type Config struct {
	Port         int
	Directory    string
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		Directory:    "",
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // no write timeout for SSE
	}
}

// engineSession bundles one Engine run-loop with its own bus and
// workspace root, the unit the session-ID-keyed map in Server tracks.
type engineSession struct {
	eng *engine.Engine
	bus *eventbus.Bus
	dir string
}

// Server is the HTTP server.
type Server struct {
	config         *Config
	router         *chi.Mux
	httpSrv        *http.Server
	agentCfg       *config.Config
	llmClient      *llm.Client
	lintCmds       map[string]observer.CommandConfig
	checkpointsDir string

	mu       sync.Mutex
	sessions map[string]*engineSession
}

// New creates a new Server instance. agentCfg and llmClient are shared
// across every session the server creates; lintCmds configures each
// session's Observer CommandSource.
func New(cfg *Config, agentCfg *config.Config, llmClient *llm.Client, lintCmds map[string]observer.CommandConfig, checkpointsDir string) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:         cfg,
		router:         r,
		agentCfg:       agentCfg,
		llmClient:      llmClient,
		lintCmds:       lintCmds,
		checkpointsDir: checkpointsDir,
		sessions:       make(map[string]*engineSession),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// newEngineSession wires a fresh Collaborators bundle and Engine for one
// session, rooted at dir (spec §6's workspace boundary).
func (s *Server) newEngineSession(dir string) *engineSession {
	ws := patch.NewDirWorkspace(dir)
	patcher := patch.New(ws)
	exec := executor.New(patcher, ws, dir)
	pf := preflight.New(ws, s.llmClient)
	searcher := searchctx.New(searchctx.NewDirFileSystem(dir))
	obs := observer.New(observer.NewCommandSource(dir, s.lintCmds))
	bus := eventbus.New(eventbus.Options{Persistent: true})
	discussionAdapter := engine.NewDiscussionAdapter(s.llmClient)
	scorer := convergence.New(convergence.DefaultWeights())

	var store *checkpoint.Store
	if s.agentCfg.CheckpointsEnabled {
		store = checkpoint.New(s.checkpointsDir, dir)
	}

	eng := engine.New(s.agentCfg, engine.Collaborators{
		Completer:   s.llmClient,
		Discussion:  discussionAdapter,
		Scorer:      scorer,
		PlanParser:  planner.New(),
		Preflight:   pf,
		Searcher:    searcher,
		Observer:    obs,
		Executor:    exec,
		Checkpoints: store,
		Bus:         bus,
	})

	return &engineSession{eng: eng, bus: bus, dir: dir}
}

// createSession allocates a new session id and Engine, rooted at dir (or
// the server's default directory if dir is empty).
func (s *Server) createSession(dir string) string {
	if dir == "" {
		dir = s.config.Directory
	}
	id := ulid.Make().String()

	s.mu.Lock()
	s.sessions[id] = s.newEngineSession(dir)
	s.mu.Unlock()

	return id
}

func (s *Server) getSession(id string) (*engineSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.sessions[id]
	return es, ok
}

func (s *Server) deleteSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
