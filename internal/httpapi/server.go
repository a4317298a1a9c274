package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/sparky/internal/config"
	"github.com/ent0n29/sparky/internal/logging"
	"github.com/ent0n29/sparky/internal/observability"
	"github.com/ent0n29/sparky/internal/session"
	"github.com/ent0n29/sparky/internal/taskruntime"
)

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	runtime  *taskruntime.Service
	metrics  *observability.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, runtime *taskruntime.Service, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		runtime:  runtime,
		metrics:  metrics,
		logger:   logger.With("component", "httpapi"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browsers may only connect from the same origin unless configured otherwise.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)
	r.Delete("/v1/perf/latency", s.handleResetPerfLatency)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/ws", s.handleSessionWS)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/end", s.handleEndSession)
			r.Post("/chat", s.handleChat)
			r.Get("/history", s.handleHistory)
			r.Get("/tasks", s.handleListTasks)
			r.Post("/tasks", s.handleAddTask)
			r.Patch("/tasks/{pos}", s.handleToggleTask)
			r.Post("/tasks/{pos}/done", s.handleMarkDone)
			r.Get("/removal", s.handleGetRemoval)
			r.Post("/removal/confirm", s.handleConfirmRemoval)
			r.Post("/removal/cancel", s.handleCancelRemoval)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"agent_mode": s.agentMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.runtime == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "turn runtime not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"agent_mode":      s.agentMode(),
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) agentMode() string {
	if s.runtime == nil {
		return "disabled"
	}
	return string(s.runtime.Mode())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type brainErrorResponse struct {
	errorResponse
	Retryable bool `json:"retryable"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondRuntimeError maps turn runtime and session errors to status codes.
func respondRuntimeError(w http.ResponseWriter, err error) {
	status, code, retryable := classifyRuntimeError(err)
	message := err.Error()
	if code == "empty_task" {
		message = taskruntime.EmptyTaskNotice
	}
	if code == "brain_error" {
		respondJSON(w, status, brainErrorResponse{
			errorResponse: errorResponse{Error: message, Code: code},
			Retryable:     retryable,
		})
		return
	}
	respondError(w, status, code, message)
}

func classifyRuntimeError(err error) (status int, code string, retryable bool) {
	var brainErr *taskruntime.BrainError
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session_not_found", false
	case errors.Is(err, session.ErrEnded):
		return http.StatusConflict, "session_ended", false
	case errors.Is(err, taskruntime.ErrEmptyTask):
		return http.StatusBadRequest, "empty_task", false
	case errors.Is(err, taskruntime.ErrEmptyMessage):
		return http.StatusBadRequest, "empty_message", false
	case errors.Is(err, taskruntime.ErrTaskOutOfRange):
		return http.StatusNotFound, "task_not_found", false
	case errors.As(err, &brainErr):
		return http.StatusBadGateway, "brain_error", brainErr.Retryable
	default:
		return http.StatusInternalServerError, "internal", false
	}
}

// positionParam reads the 1-based {pos} URL parameter.
func positionParam(r *http.Request) (int, bool) {
	pos, err := strconv.Atoi(chi.URLParam(r, "pos"))
	if err != nil || pos <= 0 {
		return 0, false
	}
	return pos, true
}
