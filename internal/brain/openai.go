package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient talks to the chat completions API, which most
// OpenAI-compatible gateways also serve.
type OpenAIClient struct {
	model  string
	client openai.Client
}

func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(apiKey))}
	if u := strings.TrimSpace(baseURL); u != "" {
		opts = append(opts, option.WithBaseURL(u))
	}
	return &OpenAIClient{
		model:  firstNonEmpty(model, DefaultOpenAIModel),
		client: openai.NewClient(opts...),
	}
}

func (c *OpenAIClient) Name() string { return ProviderOpenAI }

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openAIParams(c.model, req))
	if err != nil {
		return Response{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, nil
	}

	choice := resp.Choices[0]
	out := Response{
		Text:       choice.Message.Content,
		StopReason: choice.FinishReason,
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func openAIParams(model string, req Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				args := string(tc.Arguments)
				if strings.TrimSpace(args) == "" {
					args = "{}"
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: args,
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case RoleTool:
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		for _, t := range req.Tools {
			params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  openai.FunctionParameters(t.Parameters),
				},
			})
		}
		choice := ToolChoiceAuto
		if req.ToolChoice == ToolChoiceNone {
			choice = ToolChoiceNone
		}
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(string(choice))}
	}
	return params
}
