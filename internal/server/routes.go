package server

import "github.com/go-chi/chi/v5"

// setupRoutes wires the Engine's HTTP surface (spec §6): session
// creation, starting a run, the SSE event stream, and the two
// decision-resolution endpoints for the engine's Waiting* suspensions.
func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/session", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/start", s.handleStart)
			r.Post("/reset", s.handleReset)
			r.Get("/event", s.handleSessionEvents)
			r.Post("/decisions/review", s.handleResolveReviewDecision)
			r.Post("/decisions/debate", s.handleResolveDebateDecision)
		})
	})
}
