package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ent0n29/sparky/internal/agent"
	"github.com/ent0n29/sparky/internal/brain"
	"github.com/ent0n29/sparky/internal/config"
	"github.com/ent0n29/sparky/internal/httpapi"
	"github.com/ent0n29/sparky/internal/logging"
	"github.com/ent0n29/sparky/internal/observability"
	"github.com/ent0n29/sparky/internal/prompt"
	"github.com/ent0n29/sparky/internal/session"
	"github.com/ent0n29/sparky/internal/taskruntime"
	"github.com/ent0n29/sparky/internal/tasks"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Manager
	Runtime  *taskruntime.Service
	Metrics  *observability.Metrics
	Brain    brain.Client
	Persona  prompt.Persona
}

// Build wires the model client, dispatcher, session manager and turn
// runtime from cfg. It fails on configuration errors such as a missing
// credential for an explicitly selected provider.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	persona, err := prompt.LookupPersona(cfg.AgentPersona)
	if err != nil {
		return nil, err
	}
	mode, err := agent.ParseMode(cfg.AgentMode)
	if err != nil {
		return nil, err
	}

	client, err := brain.NewClient(ctx, brain.Config{
		Provider:        cfg.BrainProvider,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiModel:     cfg.GeminiModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		HTTPURL:         cfg.BrainHTTPURL,
	})
	if err != nil {
		return nil, fmt.Errorf("brain client init failed: %w", err)
	}

	dispatcher, err := agent.NewDispatcher(mode, client, agent.Options{
		Persona:     persona,
		Window:      cfg.HistoryWindow,
		Temperature: cfg.Temperature,
		Logger:      logger,
		Observer:    metrics,
	})
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	if cfg.SeedWelcomeTasks {
		sessions.SetSeedTasks(tasks.WelcomeTasks)
	}
	sessions.SetExpireHook(func(s *session.Session) {
		metrics.ObserveSessionEvent("expired")
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
		logger.Info("session expired", "session_id", s.ID, "actions", s.ActionCount)
	})

	runtime := taskruntime.New(taskruntime.Config{
		Provider: client.Name(),
		Logger:   logger,
	}, sessions, dispatcher, metrics)

	api := httpapi.New(cfg, sessions, runtime, metrics, logger)

	logger.Info("agent configured",
		"mode", string(mode),
		"persona", persona.ID,
		"provider", client.Name(),
		"history_window", cfg.HistoryWindow,
	)

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Runtime:  runtime,
		Metrics:  metrics,
		Brain:    client,
		Persona:  persona,
	}, nil
}
