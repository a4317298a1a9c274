package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClientAutoFallsBackToMock(t *testing.T) {
	c, err := NewClient(context.Background(), Config{Provider: "auto"})
	require.NoError(t, err)
	require.Equal(t, ProviderMock, c.Name())

	resp, err := c.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	require.Equal(t, "I heard you: hello", resp.Text)
}

func TestNewClientAutoPrefersConfiguredProvider(t *testing.T) {
	c, err := NewClient(context.Background(), Config{OpenAIAPIKey: "sk-test", HTTPURL: "http://example.test"})
	require.NoError(t, err)
	require.Equal(t, ProviderOpenAI, c.Name())

	c, err = NewClient(context.Background(), Config{HTTPURL: "http://example.test"})
	require.NoError(t, err)
	require.Equal(t, ProviderHTTP, c.Name())
}

func TestNewClientExplicitProviderNeedsCredential(t *testing.T) {
	for _, provider := range []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic} {
		t.Run(provider, func(t *testing.T) {
			_, err := NewClient(context.Background(), Config{Provider: provider})
			require.ErrorIs(t, err, ErrMissingCredential)
		})
	}
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Provider: "llama"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMissingCredential)
}

func TestHTTPStatusUnwrapsStatusError(t *testing.T) {
	err := fmt.Errorf("generate: %w", &StatusError{Provider: ProviderHTTP, Code: 503})
	require.Equal(t, 503, HTTPStatus(err))
	require.Equal(t, 0, HTTPStatus(errors.New("plain")))
	require.Equal(t, 0, HTTPStatus(nil))
}

func TestMockClientToolCalls(t *testing.T) {
	tools := []ToolDecl{{Name: "add_task"}, {Name: "show_task"}, {Name: "edit_task"}}
	cases := []struct {
		input string
		tool  string
		args  map[string]string
	}{
		{input: "add Buy milk", tool: "add_task", args: map[string]string{"task": "Buy milk"}},
		{input: "Add task: Call mom", tool: "add_task", args: map[string]string{"task": "Call mom"}},
		{input: "show my tasks", tool: "show_task", args: map[string]string{}},
		{input: "rename Buy milk to Buy oat milk", tool: "edit_task", args: map[string]string{
			"current_task_name": "Buy milk",
			"new_task_name":     "Buy oat milk",
		}},
	}
	c := NewMockClient()
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			resp, err := c.Generate(context.Background(), Request{
				Messages: []Message{{Role: RoleUser, Content: tc.input}},
				Tools:    tools,
			})
			require.NoError(t, err)
			require.Len(t, resp.ToolCalls, 1)
			require.Equal(t, tc.tool, resp.ToolCalls[0].Name)

			var args map[string]string
			require.NoError(t, json.Unmarshal(resp.ToolCalls[0].Arguments, &args))
			require.Equal(t, tc.args, args)
		})
	}
}

func TestMockClientWithoutToolsReplies(t *testing.T) {
	resp, err := NewMockClient().Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "Current tasks:\nNo tasks yet.\n\nUser: add Buy milk\nAssistant:"}},
	})
	require.NoError(t, err)
	require.Empty(t, resp.ToolCalls)
	require.Equal(t, "I heard you: add Buy milk", resp.Text)
}

func TestMockClientSummarizesToolResult(t *testing.T) {
	resp, err := NewMockClient().Generate(context.Background(), Request{
		Messages: []Message{
			{Role: RoleUser, Content: "add Buy milk"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "add_task"}}},
			{Role: RoleTool, ToolCallID: "c1", ToolName: "add_task", Content: "Task 'Buy milk' was added successfully!"},
		},
		ToolChoice: ToolChoiceNone,
	})
	require.NoError(t, err)
	require.Equal(t, "Done! Task 'Buy milk' was added successfully!", resp.Text)
}

func TestMockClientHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockClient().Generate(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
}
