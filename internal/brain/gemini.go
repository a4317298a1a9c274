package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-1.5-flash"

type GeminiClient struct {
	model  string
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{
		model:  firstNonEmpty(model, DefaultGeminiModel),
		client: client,
	}, nil
}

func (c *GeminiClient) Name() string { return ProviderGemini }

func (c *GeminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	contents, err := geminiContents(req.Messages)
	if err != nil {
		return Response{}, err
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, geminiConfig(req))
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate: %w", err)
	}
	return geminiResponse(resp), nil
}

func geminiConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		cfg.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: t.Parameters,
			})
		}
		mode := genai.FunctionCallingConfigModeAuto
		if req.ToolChoice == ToolChoiceNone {
			mode = genai.FunctionCallingConfigModeNone
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		}
	}
	return cfg
}

func geminiContents(messages []Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			parts := make([]*genai.Part, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &args); err != nil {
						return nil, fmt.Errorf("gemini tool call %s arguments: %w", tc.Name, err)
					}
				}
				part := genai.NewPartFromFunctionCall(tc.Name, args)
				part.FunctionCall.ID = tc.ID
				parts = append(parts, part)
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case RoleTool:
			part := genai.NewPartFromFunctionResponse(m.ToolName, map[string]any{"output": m.Content})
			part.FunctionResponse.ID = m.ToolCallID
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			if m.Content == "" {
				continue
			}
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, nil
}

func geminiResponse(resp *genai.GenerateContentResponse) Response {
	if resp == nil || len(resp.Candidates) == 0 {
		out := Response{}
		if resp != nil && resp.PromptFeedback != nil {
			out.StopReason = string(resp.PromptFeedback.BlockReason)
		}
		return out
	}

	cand := resp.Candidates[0]
	out := Response{StopReason: string(cand.FinishReason)}
	if cand.Content == nil {
		return out
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				args = []byte("{}")
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        part.FunctionCall.ID,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
			continue
		}
		if part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}
	out.Text = text.String()
	return out
}
