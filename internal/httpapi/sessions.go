package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/sparky/internal/memory"
	"github.com/ent0n29/sparky/internal/prompt"
	"github.com/ent0n29/sparky/internal/session"
)

type createSessionRequest struct {
	PersonaID string `json:"persona_id"`
}

type createSessionResponse struct {
	*session.Session
	InactivityTTLMS int64 `json:"inactivity_ttl_ms"`
}

type historyResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []memory.Turn `json:"turns"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.PersonaID) == "" {
		req.PersonaID = s.cfg.AgentPersona
	}
	persona, err := prompt.LookupPersona(req.PersonaID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_persona", err.Error())
		return
	}

	sess := s.sessions.Create(persona.ID)
	s.observeSessions("created")
	s.logger.Info("session created", "session_id", sess.ID, "persona_id", sess.PersonaID)

	respondJSON(w, http.StatusCreated, createSessionResponse{
		Session:         sess,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	s.observeSessions("ended")
	s.logger.Info("session ended", "session_id", sess.ID, "actions", sess.ActionCount)
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	turns, err := s.runtime.History(id)
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	if turns == nil {
		turns = []memory.Turn{}
	}
	respondJSON(w, http.StatusOK, historyResponse{SessionID: id, Turns: turns})
}

func (s *Server) observeSessions(event string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.ObserveSessionEvent(event)
}
