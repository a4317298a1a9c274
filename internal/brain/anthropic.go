package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 1024
)

type AnthropicClient struct {
	model  string
	client anthropic.Client
}

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		model:  firstNonEmpty(model, DefaultAnthropicModel),
		client: anthropic.NewClient(option.WithAPIKey(strings.TrimSpace(apiKey))),
	}
}

func (c *AnthropicClient) Name() string { return ProviderAnthropic }

func (c *AnthropicClient) Generate(ctx context.Context, req Request) (Response, error) {
	params, err := anthropicParams(c.model, req)
	if err != nil {
		return Response{}, err
	}
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic messages: %w", err)
	}

	out := Response{StopReason: string(msg.StopReason)}
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := json.RawMessage(block.Input)
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	out.Text = text.String()
	return out, nil
}

func anthropicParams(model string, req Request) (anthropic.MessageNewParams, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any = map[string]any{}
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &input); err != nil {
						return anthropic.MessageNewParams{}, fmt.Errorf("anthropic tool call %s arguments: %w", tc.Name, err)
					}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		default:
			if m.Content == "" {
				continue
			}
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("anthropic request needs at least one message")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if sys := strings.TrimSpace(req.System); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		for _, t := range req.Tools {
			schema := anthropic.ToolInputSchemaParam{Properties: t.Parameters["properties"]}
			if required, ok := t.Parameters["required"].([]string); ok {
				schema.Required = required
			}
			params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			}})
		}
		if req.ToolChoice == ToolChoiceNone {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
		} else {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
		}
	}
	return params, nil
}
