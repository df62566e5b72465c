package agent

import (
	"encoding/json"
	"sync"
)

// Usage is a point-in-time copy of the accumulated agent usage.
type Usage struct {
	Requests int64          `json:"requests"`
	Failures int64          `json:"failures"`
	Totals   map[string]any `json:"totals"`
}

// StatsAccumulator aggregates the usage stats reported by each agent call
// for the lifetime of the process. Numbers are summed field by field,
// nested objects are merged recursively and any other value is replaced by
// the latest one.
type StatsAccumulator struct {
	mu    sync.Mutex
	usage Usage
}

// NewStatsAccumulator starts from a copy of initial. A zero Usage gives a
// fresh accumulator.
func NewStatsAccumulator(initial Usage) *StatsAccumulator {
	totals := make(map[string]any)
	mergeStats(totals, initial.Totals)
	return &StatsAccumulator{usage: Usage{
		Requests: initial.Requests,
		Failures: initial.Failures,
		Totals:   totals,
	}}
}

// Add records one successful call and merges its stats.
func (a *StatsAccumulator) Add(stats map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.usage.Requests++
	mergeStats(a.usage.Totals, stats)
}

// AddFailure records one failed call.
func (a *StatsAccumulator) AddFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.usage.Failures++
}

// Snapshot returns a deep copy of the current totals.
func (a *StatsAccumulator) Snapshot() Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	totals := make(map[string]any)
	mergeStats(totals, a.usage.Totals)
	return Usage{Requests: a.usage.Requests, Failures: a.usage.Failures, Totals: totals}
}

func mergeStats(dst, src map[string]any) {
	for k, v := range src {
		if n, ok := toNumber(v); ok {
			if cur, ok := toNumber(dst[k]); ok {
				dst[k] = cur + n
			} else {
				dst[k] = n
			}
			continue
		}
		if m, ok := v.(map[string]any); ok {
			sub, ok := dst[k].(map[string]any)
			if !ok {
				sub = make(map[string]any)
				dst[k] = sub
			}
			mergeStats(sub, m)
			continue
		}
		dst[k] = copyValue(v)
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		mergeStats(out, t)
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	}
	return v
}
