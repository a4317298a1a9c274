package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/sparky/internal/protocol"
)

type options struct {
	baseURL        string
	personaID      string
	turns          int
	startDelay     time.Duration
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	texts          []string
	verbose        bool
}

type createSessionRequest struct {
	PersonaID string `json:"persona_id,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type wsEnvelope struct {
	Type   string `json:"type"`
	TurnID string `json:"turn_id,omitempty"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
	Text   string `json:"text,omitempty"`
	Tool   string `json:"tool,omitempty"`
}

type turnResult struct {
	reply wsEnvelope
	err   error
}

var defaultUtterances = []string{
	"add Buy milk",
	"show my tasks",
	"rename Buy milk to Buy oat milk",
	"what should I do first?",
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "perfchat: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "perfchat: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var cfg options
	var textsRaw string
	var startDelayMS int
	var interTurnMS int
	var turnTimeoutMS int

	fs := flag.NewFlagSet("perfchat", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "sparky base URL")
	fs.StringVar(&cfg.personaID, "persona-id", "concise", "persona_id used for the synthetic session")
	fs.IntVar(&cfg.turns, "turns", 10, "number of chat turns to replay")
	fs.IntVar(&startDelayMS, "start-delay-ms", 200, "delay before first turn in milliseconds")
	fs.IntVar(&interTurnMS, "inter-turn-ms", 100, "delay between turns in milliseconds")
	fs.IntVar(&turnTimeoutMS, "turn-timeout-ms", 30000, "timeout waiting for assistant_reply per turn in milliseconds")
	fs.StringVar(&textsRaw, "texts", "", "utterances separated by '|' (optional)")
	fs.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	startDelayMS = max(startDelayMS, 0)
	interTurnMS = max(interTurnMS, 0)
	turnTimeoutMS = max(turnTimeoutMS, 1000)
	cfg.startDelay = time.Duration(startDelayMS) * time.Millisecond
	cfg.interTurnDelay = time.Duration(interTurnMS) * time.Millisecond
	cfg.turnTimeout = time.Duration(turnTimeoutMS) * time.Millisecond

	texts, err := parseTexts(textsRaw)
	if err != nil {
		return options{}, err
	}
	cfg.texts = texts
	return cfg, nil
}

func parseTexts(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), defaultUtterances...), nil
	}
	var out []string
	for _, part := range strings.Split(raw, "|") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("texts produced no non-empty utterances")
	}
	return out, nil
}

func run(cfg options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Minute)
	defer cancel()

	httpClient := &http.Client{Timeout: 45 * time.Second}
	sessionID, err := createSession(ctx, httpClient, cfg)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() {
		_ = endSession(context.Background(), httpClient, cfg.baseURL, sessionID)
	}()

	if cfg.verbose {
		fmt.Printf("perfchat: session=%s turns=%d\n", sessionID, cfg.turns)
	}

	wsURL, err := wsURLForSession(cfg.baseURL, sessionID)
	if err != nil {
		return fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	if cfg.startDelay > 0 {
		time.Sleep(cfg.startDelay)
	}

	resultCh := make(chan turnResult, 32)
	readErrCh := make(chan error, 1)
	go readLoop(conn, resultCh, readErrCh, cfg.verbose)

	latencies := make([]time.Duration, 0, cfg.turns)
	for i := range cfg.turns {
		text := cfg.texts[i%len(cfg.texts)]
		if cfg.verbose {
			fmt.Printf("perfchat: turn %d/%d text=%q\n", i+1, cfg.turns, text)
		}

		start := time.Now()
		msg := protocol.ChatMessage{Type: protocol.TypeChatMessage, Text: text}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("turn %d send: %w", i+1, err)
		}
		reply, err := awaitReply(resultCh, readErrCh, cfg.turnTimeout)
		if err != nil {
			return fmt.Errorf("turn %d await assistant_reply: %w", i+1, err)
		}
		elapsed := time.Since(start)
		latencies = append(latencies, elapsed)
		if cfg.verbose {
			fmt.Printf("perfchat: turn %d latency_ms=%d tool=%q reply=%q\n", i+1, elapsed.Milliseconds(), reply.Tool, reply.Text)
		}

		if cfg.interTurnDelay > 0 && i < cfg.turns-1 {
			time.Sleep(cfg.interTurnDelay)
		}
	}

	s := summarize(latencies)
	fmt.Printf("perfchat: turns=%d p50_ms=%.1f p95_ms=%.1f max_ms=%.1f\n", s.count, s.p50, s.p95, s.max)
	return nil
}

func createSession(ctx context.Context, client *http.Client, cfg options) (string, error) {
	payload, err := json.Marshal(createSessionRequest{PersonaID: cfg.personaID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+"/v1/sessions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out createSessionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.SessionID) == "" {
		return "", fmt.Errorf("missing session_id in response")
	}
	return out.SessionID, nil
}

func endSession(ctx context.Context, client *http.Client, baseURL, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/sessions/"+url.PathEscape(sessionID)+"/end", nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<20))
	return nil
}

func wsURLForSession(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/sessions/ws"
	q := u.Query()
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// readLoop forwards each assistant_reply, and each error_event raised by a
// turn, as the result of the turn in flight.
func readLoop(conn *websocket.Conn, resultCh chan<- turnResult, readErrCh chan<- error, verbose bool) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case readErrCh <- err:
			default:
			}
			return
		}

		var env wsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case string(protocol.TypeAssistantReply):
			resultCh <- turnResult{reply: env}
		case string(protocol.TypeErrorEvent):
			if verbose {
				fmt.Fprintf(os.Stderr, "perfchat: error_event code=%s detail=%s\n", env.Code, env.Detail)
			}
			resultCh <- turnResult{err: fmt.Errorf("error_event %s: %s", env.Code, env.Detail)}
		}
	}
}

func awaitReply(resultCh <-chan turnResult, readErrCh <-chan error, timeout time.Duration) (wsEnvelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-resultCh:
		return res.reply, res.err
	case err := <-readErrCh:
		return wsEnvelope{}, err
	case <-timer.C:
		return wsEnvelope{}, fmt.Errorf("timeout after %s", timeout)
	}
}

type latencySummary struct {
	count int
	p50   float64
	p95   float64
	max   float64
}

func summarize(latencies []time.Duration) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}
	ms := make([]float64, len(latencies))
	for i, d := range latencies {
		ms[i] = float64(d) / float64(time.Millisecond)
	}
	sort.Float64s(ms)
	return latencySummary{
		count: len(ms),
		p50:   percentile(ms, 0.50),
		p95:   percentile(ms, 0.95),
		max:   ms[len(ms)-1],
	}
}

// percentile uses nearest-rank on sorted values.
func percentile(sorted []float64, p float64) float64 {
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	rank = min(max(rank, 0), len(sorted)-1)
	return sorted[rank]
}
