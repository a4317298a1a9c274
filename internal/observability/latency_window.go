package observability

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ent0n29/sparky/internal/agent"
)

// StageTurnTotal covers a whole chat turn, measured by the turn runtime
// around the agent's own stages.
const StageTurnTotal = "turn_total"

// p95 budgets in milliseconds, shown next to each stage in the report.
var stageBudgetsMS = map[string]float64{
	agent.StageContextBuild: 5,
	agent.StageModelCall:    2500,
	agent.StageToolExec:     10,
	StageTurnTotal:          6000,
}

type StageLatency struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	MeanMS      float64 `json:"mean_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	MaxMS       float64 `json:"max_ms"`
	BudgetP95MS float64 `json:"budget_p95_ms,omitempty"`
	OverBudget  bool    `json:"over_budget,omitempty"`
}

// TurnCount mirrors one turns_total series since the last reset.
type TurnCount struct {
	Mode    string `json:"mode"`
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

type LatencyReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	WindowSize  int            `json:"window_size"`
	Stages      []StageLatency `json:"stages"`
	Turns       []TurnCount    `json:"turns"`
}

type turnKey struct{ mode, outcome string }

// latencyWindow keeps the most recent samples per stage and turn counts
// per mode and outcome.
type latencyWindow struct {
	mu      sync.Mutex
	size    int
	samples map[string][]float64
	turns   map[turnKey]int
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = 256
	}
	w := &latencyWindow{size: size}
	w.clear()
	return w
}

func (w *latencyWindow) clear() {
	w.samples = make(map[string][]float64, len(stageBudgetsMS))
	w.turns = make(map[turnKey]int)
}

func (w *latencyWindow) observe(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.samples[stage]
	if len(s) == w.size {
		copy(s, s[1:])
		s = s[:len(s)-1]
	}
	w.samples[stage] = append(s, ms)
}

func (w *latencyWindow) countTurn(mode, outcome string) {
	w.mu.Lock()
	w.turns[turnKey{mode, outcome}]++
	w.mu.Unlock()
}

func (w *latencyWindow) reset() {
	w.mu.Lock()
	w.clear()
	w.mu.Unlock()
}

func (w *latencyWindow) report() LatencyReport {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := LatencyReport{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.size,
		Stages:      make([]StageLatency, 0, len(w.samples)),
		Turns:       make([]TurnCount, 0, len(w.turns)),
	}
	for stage, s := range w.samples {
		if len(s) > 0 {
			out.Stages = append(out.Stages, stageLatency(stage, s))
		}
	}
	sort.Slice(out.Stages, func(i, j int) bool { return out.Stages[i].Stage < out.Stages[j].Stage })

	for k, n := range w.turns {
		out.Turns = append(out.Turns, TurnCount{Mode: k.mode, Outcome: k.outcome, Count: n})
	}
	sort.Slice(out.Turns, func(i, j int) bool {
		if out.Turns[i].Mode != out.Turns[j].Mode {
			return out.Turns[i].Mode < out.Turns[j].Mode
		}
		return out.Turns[i].Outcome < out.Turns[j].Outcome
	})
	return out
}

func stageLatency(stage string, window []float64) StageLatency {
	sorted := append([]float64(nil), window...)
	sort.Float64s(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	st := StageLatency{
		Stage:       stage,
		Samples:     len(sorted),
		LastMS:      round2(window[len(window)-1]),
		MeanMS:      round2(sum / float64(len(sorted))),
		P50MS:       round2(nearestRank(sorted, 0.50)),
		P95MS:       round2(nearestRank(sorted, 0.95)),
		MaxMS:       round2(sorted[len(sorted)-1]),
		BudgetP95MS: stageBudgetsMS[stage],
	}
	st.OverBudget = st.BudgetP95MS > 0 && st.P95MS > st.BudgetP95MS
	return st
}

// nearestRank expects sorted to be non-empty and ascending.
func nearestRank(sorted []float64, q float64) float64 {
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
