// Package brain adapts hosted language-model APIs to a single Client
// interface used by the agent dispatcher.
package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

const (
	ProviderAuto      = "auto"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderHTTP      = "http"
	ProviderMock      = "mock"
)

var ErrMissingCredential = errors.New("missing model credential")

// Config selects and configures a provider.
type Config struct {
	Provider string

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicAPIKey string
	AnthropicModel  string

	HTTPURL string
}

// NewClient builds the configured provider. In auto mode the first provider
// with a credential wins, in the order gemini, openai, anthropic, http, and
// the offline mock is used when none is configured.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderAuto
	}

	switch provider {
	case ProviderAuto:
		return newAutoClient(ctx, cfg)
	case ProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is required for provider %q", ErrMissingCredential, provider)
		}
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case ProviderOpenAI:
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is required for provider %q", ErrMissingCredential, provider)
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case ProviderAnthropic:
		if strings.TrimSpace(cfg.AnthropicAPIKey) == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is required for provider %q", ErrMissingCredential, provider)
		}
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case ProviderHTTP:
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("BRAIN_HTTP_URL is required for provider \"http\"")
		}
		return NewHTTPClient(cfg.HTTPURL), nil
	case ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported brain provider %q", cfg.Provider)
	}
}

func newAutoClient(ctx context.Context, cfg Config) (Client, error) {
	switch {
	case strings.TrimSpace(cfg.GeminiAPIKey) != "":
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case strings.TrimSpace(cfg.OpenAIAPIKey) != "":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case strings.TrimSpace(cfg.AnthropicAPIKey) != "":
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case strings.TrimSpace(cfg.HTTPURL) != "":
		return NewHTTPClient(cfg.HTTPURL), nil
	default:
		return NewMockClient(), nil
	}
}

// StatusError is a non-2xx answer from a model endpoint.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.Code, e.Body)
}

func (e *StatusError) HTTPStatus() int { return e.Code }

// HTTPStatus extracts the upstream HTTP status from a provider error, or 0.
func HTTPStatus(err error) int {
	if err == nil {
		return 0
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
