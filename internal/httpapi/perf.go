package httpapi

import (
	"net/http"

	"github.com/ent0n29/sparky/internal/observability"
)

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, observability.LatencyReport{
			Stages: []observability.StageLatency{},
			Turns:  []observability.TurnCount{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.LatencyReport())
}

func (s *Server) handleResetPerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics != nil {
		s.metrics.ResetLatency()
	}
	w.WriteHeader(http.StatusNoContent)
}
