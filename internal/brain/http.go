package brain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient posts the Request as JSON to a self-hosted endpoint. The
// endpoint answers with a JSON Response, plain text, or an SSE/NDJSON stream
// of text deltas.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *HTTPClient) Name() string { return ProviderHTTP }

func (c *HTTPClient) Generate(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Response{}, &StatusError{Provider: ProviderHTTP, Code: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	ct := strings.ToLower(res.Header.Get("Content-Type"))
	if strings.Contains(ct, "text/event-stream") || strings.Contains(ct, "application/x-ndjson") {
		return consumeStream(res.Body)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return decodeHTTPBody(body), nil
}

func decodeHTTPBody(body []byte) Response {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return Response{Text: strings.TrimSpace(string(body))}
	}

	out := Response{Text: extractText(obj)}
	if calls, ok := obj["tool_calls"].([]any); ok {
		out.ToolCalls = looseToolCalls(calls)
	}
	if s, ok := obj["stop_reason"].(string); ok {
		out.StopReason = s
	}
	return out
}

// looseToolCalls accepts arguments either as a JSON object or encoded as a
// JSON string, as OpenAI-style servers send them.
func looseToolCalls(calls []any) []ToolCall {
	out := make([]ToolCall, 0, len(calls))
	for _, item := range calls {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tc := ToolCall{}
		tc.ID, _ = m["id"].(string)
		tc.Name, _ = m["name"].(string)
		switch args := m["arguments"].(type) {
		case string:
			tc.Arguments = json.RawMessage(args)
		case nil:
		default:
			if b, err := json.Marshal(args); err == nil {
				tc.Arguments = b
			}
		}
		if tc.Name != "" {
			out = append(out, tc)
		}
	}
	return out
}

func consumeStream(body io.Reader) (Response, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if line == "[DONE]" {
			break
		}

		delta := line
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err == nil {
			delta = extractText(obj)
		}
		out.WriteString(delta)
	}
	if err := scanner.Err(); err != nil {
		return Response{}, fmt.Errorf("stream read: %w", err)
	}
	return Response{Text: out.String()}, nil
}

func extractText(obj map[string]any) string {
	for _, k := range []string{"text", "delta", "output", "message"} {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
