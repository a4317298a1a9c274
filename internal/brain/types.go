package brain

import (
	"context"
	"encoding/json"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceNone keeps the declarations visible (some providers require
	// them once a tool call is in the transcript) but forbids new calls.
	ToolChoiceNone ToolChoice = "none"
)

// ToolCall is one function call proposed by the model.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message is a provider-neutral transcript entry. Assistant messages may
// carry ToolCalls; tool messages answer one call by ToolCallID/ToolName.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

type ToolDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is one provider call. A nil Temperature leaves the provider
// default in place; zero is sent as zero.
type Request struct {
	System      string     `json:"system,omitempty"`
	Messages    []Message  `json:"messages"`
	Tools       []ToolDecl `json:"tools,omitempty"`
	ToolChoice  ToolChoice `json:"tool_choice,omitempty"`
	Temperature *float64   `json:"temperature,omitempty"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
}

type Response struct {
	Text       string     `json:"text"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason,omitempty"`
}

// Client is the language-model boundary. One Generate call is one request
// to the provider; implementations do not retry.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}
