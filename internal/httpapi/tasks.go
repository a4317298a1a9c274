package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/sparky/internal/taskruntime"
)

type addTaskRequest struct {
	Text string `json:"text"`
}

type toggleTaskRequest struct {
	Completed *bool `json:"completed"`
}

type addTaskResponse struct {
	Message string `json:"message"`
	taskruntime.Snapshot
}

type removalResponse struct {
	Removed bool   `json:"removed"`
	Task    string `json:"task,omitempty"`
	Notice  string `json:"notice,omitempty"`
	taskruntime.Snapshot
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	snap, err := s.runtime.Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	res, err := s.runtime.AddTask(chi.URLParam(r, "id"), req.Text)
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, addTaskResponse{Message: res.Message, Snapshot: res.Snapshot})
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	pos, ok := positionParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_position", "position must be a positive integer")
		return
	}
	var req toggleTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Completed == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "completed is required")
		return
	}
	snap, err := s.runtime.SetCompleted(chi.URLParam(r, "id"), pos, *req.Completed)
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	pos, ok := positionParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_position", "position must be a positive integer")
		return
	}
	snap, err := s.runtime.MarkDone(chi.URLParam(r, "id"), pos)
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, snap)
}

func (s *Server) handleGetRemoval(w http.ResponseWriter, r *http.Request) {
	snap, err := s.runtime.Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap.Removal)
}

func (s *Server) handleConfirmRemoval(w http.ResponseWriter, r *http.Request) {
	res, err := s.runtime.ConfirmRemoval(chi.URLParam(r, "id"))
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, removalResponse{
		Removed:  res.Removed,
		Task:     res.Task,
		Notice:   res.Notice,
		Snapshot: res.Snapshot,
	})
}

func (s *Server) handleCancelRemoval(w http.ResponseWriter, r *http.Request) {
	snap, err := s.runtime.CancelRemoval(chi.URLParam(r, "id"))
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, removalResponse{Snapshot: snap})
}
