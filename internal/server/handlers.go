package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forgepilot/agentcore/internal/suspend"
)

type createSessionRequest struct {
	Directory string `json:"directory,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // empty body is fine, directory falls back to server default

	id := s.createSession(req.Directory)
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	es, ok := s.getSession(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": es.eng.State(),
		"plan":  es.eng.Plan(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, ok := s.getSession(id); !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}
	s.deleteSession(id)
	writeSuccess(w)
}

type startRequest struct {
	Request string `json:"request"`
}

// handleStart kicks off Engine.Run in a background goroutine; progress is
// observed via the SSE stream, not this response, since a full run may
// suspend on a Waiting* decision long after the HTTP request returns.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	es, ok := s.getSession(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Request == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "request field is required")
		return
	}

	go func() {
		if err := es.eng.Start(context.Background(), req.Request); err != nil {
			es.bus.Publish(errorEvent(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"state": string(es.eng.State())})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	es, ok := s.getSession(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}
	es.eng.Reset()
	writeSuccess(w)
}

type decisionRequest struct {
	Decision suspend.Decision `json:"decision"`
}

func (s *Server) handleResolveReviewDecision(w http.ResponseWriter, r *http.Request) {
	es, ok := s.getSession(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "decision field is required")
		return
	}
	if err := es.eng.ResolveReviewDecision(req.Decision); err != nil {
		writeError(w, http.StatusConflict, ErrCodeInvalidRequest, err.Error())
		return
	}
	writeSuccess(w)
}

func (s *Server) handleResolveDebateDecision(w http.ResponseWriter, r *http.Request) {
	es, ok := s.getSession(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "decision field is required")
		return
	}
	if err := es.eng.ResolveDebateDecision(req.Decision); err != nil {
		writeError(w, http.StatusConflict, ErrCodeInvalidRequest, err.Error())
		return
	}
	writeSuccess(w)
}
