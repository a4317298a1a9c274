package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MockClient provides deterministic local replies when no provider is
// configured. It understands a few literal phrasings so the tool path can be
// exercised offline.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Name() string { return ProviderMock }

var (
	mockAddPattern  = regexp.MustCompile(`(?i)^(?:please\s+)?(?:add|create)(?:\s+(?:a\s+)?task)?[:\s]+(.+)$`)
	mockEditPattern = regexp.MustCompile(`(?i)^(?:please\s+)?(?:rename|change|edit|update)\s+(?:task\s+)?['"]?(.+?)['"]?\s+to\s+['"]?(.+?)['"]?$`)
	mockShowPattern = regexp.MustCompile(`(?i)\b(?:show|list|what)\b.*\b(?:tasks?|to-?dos?|list)\b`)
)

func (c *MockClient) Generate(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == RoleTool {
		return Response{Text: fmt.Sprintf("Done! %s", req.Messages[n-1].Content), StopReason: "stop"}, nil
	}

	input := lastUserInput(req.Messages)
	if len(req.Tools) > 0 && req.ToolChoice != ToolChoiceNone {
		if call, ok := mockToolCall(input, req.Tools); ok {
			return Response{ToolCalls: []ToolCall{call}, StopReason: "tool_calls"}, nil
		}
	}

	if input == "" {
		input = "I am listening."
	}
	return Response{Text: fmt.Sprintf("I heard you: %s", input), StopReason: "stop"}, nil
}

func mockToolCall(input string, offered []ToolDecl) (ToolCall, bool) {
	has := func(name string) bool {
		for _, t := range offered {
			if t.Name == name {
				return true
			}
		}
		return false
	}

	if m := mockEditPattern.FindStringSubmatch(input); m != nil && has("edit_task") {
		return mockCall("edit_task", map[string]string{
			"current_task_name": strings.TrimSpace(m[1]),
			"new_task_name":     strings.TrimSpace(m[2]),
		}), true
	}
	if m := mockAddPattern.FindStringSubmatch(input); m != nil && has("add_task") {
		return mockCall("add_task", map[string]string{"task": strings.TrimSpace(m[1])}), true
	}
	if mockShowPattern.MatchString(input) && has("show_task") {
		return mockCall("show_task", map[string]string{}), true
	}
	return ToolCall{}, false
}

func mockCall(name string, args map[string]string) ToolCall {
	raw, _ := json.Marshal(args)
	return ToolCall{ID: "mock_" + name, Name: name, Arguments: raw}
}

// lastUserInput returns the newest user text. Single-prompt completions end
// with "User: <input>\nAssistant:"; the input line is extracted from those.
func lastUserInput(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != RoleUser {
			continue
		}
		text := strings.TrimSpace(messages[i].Content)
		if trimmed, ok := strings.CutSuffix(text, "Assistant:"); ok {
			if idx := strings.LastIndex(trimmed, "User: "); idx >= 0 {
				return strings.TrimSpace(trimmed[idx+len("User: "):])
			}
		}
		return text
	}
	return ""
}
