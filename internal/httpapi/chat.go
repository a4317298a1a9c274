package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/sparky/internal/taskruntime"
)

type chatRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	TurnID     string `json:"turn_id"`
	Reply      string `json:"reply"`
	Tool       string `json:"tool,omitempty"`
	ToolOutput string `json:"tool_output,omitempty"`
	taskruntime.Snapshot
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.runtime.Chat(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		respondRuntimeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{
		TurnID:     res.TurnID,
		Reply:      res.Reply,
		Tool:       res.Tool,
		ToolOutput: res.ToolOutput,
		Snapshot:   res.Snapshot,
	})
}
