package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/ent0n29/sparky/internal/prompt"
)

// FileEnv names the optional YAML file whose keys mirror the environment
// variables below. Environment variables win over the file.
const FileEnv = "SPARKY_CONFIG_FILE"

// Config contains all runtime settings for the to-do agent service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	LogLevel  string
	LogFormat string

	AgentMode        string
	AgentPersona     string
	HistoryWindow    int
	Temperature      *float64
	SeedWelcomeTasks bool

	BrainProvider   string
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	AnthropicModel  string
	BrainHTTPURL    string
}

// Load reads the optional config file, then environment variables, and
// applies safe defaults.
func Load() (Config, error) {
	src, err := newSource(strings.TrimSpace(os.Getenv(FileEnv)))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BindAddr:                 src.envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         src.envOrDefault("APP_METRICS_NAMESPACE", "sparky"),
		LogLevel:                 strings.ToLower(src.envOrDefault("APP_LOG_LEVEL", "info")),
		LogFormat:                strings.ToLower(src.envOrDefault("APP_LOG_FORMAT", "text")),
		AgentMode:                strings.ToLower(src.envOrDefault("AGENT_MODE", "tools")),
		AgentPersona:             strings.ToLower(src.envOrDefault("AGENT_PERSONA", prompt.DefaultPersonaID)),
		BrainProvider:            strings.ToLower(src.envOrDefault("BRAIN_PROVIDER", "auto")),
		GeminiAPIKey:             src.trimmed("GEMINI_API_KEY"),
		GeminiModel:              src.envOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey:             src.trimmed("OPENAI_API_KEY"),
		OpenAIModel:              src.envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:            src.trimmed("OPENAI_BASE_URL"),
		AnthropicAPIKey:          src.trimmed("ANTHROPIC_API_KEY"),
		AnthropicModel:           src.trimmed("ANTHROPIC_MODEL"),
		BrainHTTPURL:             src.trimmed("BRAIN_HTTP_URL"),
		HistoryWindow:            prompt.DefaultWindow,
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
	}
	cfg.ShutdownTimeout, err = src.durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = src.durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = src.boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = src.intFromEnv("AGENT_HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.Temperature, err = src.floatFromEnv("AGENT_TEMPERATURE")
	if err != nil {
		return Config{}, err
	}
	cfg.SeedWelcomeTasks, err = src.boolFromEnv("AGENT_SEED_WELCOME_TASKS", cfg.SeedWelcomeTasks)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SessionInactivityTimeout < 5*time.Second {
		return fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("APP_LOG_LEVEL must be one of debug|info|warn|error, got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("APP_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	switch c.AgentMode {
	case "tools", "completion":
	default:
		return fmt.Errorf("AGENT_MODE must be tools or completion, got %q", c.AgentMode)
	}
	if _, err := prompt.LookupPersona(c.AgentPersona); err != nil {
		return fmt.Errorf("AGENT_PERSONA: %w", err)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("AGENT_HISTORY_WINDOW must be >= 0")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("AGENT_TEMPERATURE must be within [0, 2]")
	}
	switch c.BrainProvider {
	case "auto", "gemini", "openai", "anthropic", "http", "mock":
	default:
		return fmt.Errorf("BRAIN_PROVIDER must be one of auto|gemini|openai|anthropic|http|mock, got %q", c.BrainProvider)
	}
	return nil
}

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

func newSource(path string) (source, error) {
	if path == "" {
		return source{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return source{}, fmt.Errorf("%s: %w", FileEnv, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return source{}, fmt.Errorf("%s: parse %s: %w", FileEnv, path, err)
	}
	file := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		file[strings.ToUpper(strings.TrimSpace(k))] = fmt.Sprint(v)
	}
	return source{file: file}, nil
}

func (s source) get(key string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return s.file[key]
}

func (s source) envOrDefault(key, fallback string) string {
	v := s.trimmed(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) trimmed(key string) string {
	return strings.TrimSpace(s.get(key))
}

func (s source) durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := s.trimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func (s source) intFromEnv(key string, fallback int) (int, error) {
	v := s.trimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

// floatFromEnv returns nil when the key is unset.
func (s source) floatFromEnv(key string) (*float64, error) {
	v := s.trimmed(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s parse error: %w", key, err)
	}
	return &f, nil
}

func (s source) boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(s.trimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
