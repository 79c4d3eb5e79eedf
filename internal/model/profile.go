package model

import "time"

// ProfileResult 单个 (策略, N) 组合的测量结果
type ProfileResult struct {
	Strategy      string        `json:"strategy"`
	TickCount     int           `json:"tick_count"`
	Runs          int           `json:"runs"`
	MeanElapsed   time.Duration `json:"mean_elapsed_ns"`
	MinElapsed    time.Duration `json:"min_elapsed_ns"`
	MaxElapsed    time.Duration `json:"max_elapsed_ns"`
	PeakHeapBytes uint64        `json:"peak_heap_bytes"`
	RetainedBytes uint64        `json:"retained_bytes"`
	Buys          int           `json:"buys"`
	Sells         int           `json:"sells"`
}

// PerTick returns the mean processing time of one tick.
func (r ProfileResult) PerTick() time.Duration {
	if r.TickCount == 0 {
		return 0
	}
	return r.MeanElapsed / time.Duration(r.TickCount)
}

// ProfileReport 性能对比报告
type ProfileReport struct {
	WindowSize  int             `json:"window_size"`
	TickCounts  []int           `json:"tick_counts"`
	Strategies  []string        `json:"strategies"`
	GeneratedAt time.Time       `json:"generated_at"`
	Results     []ProfileResult `json:"results"`
}

// Series returns the results of one strategy ordered as TickCounts.
func (r ProfileReport) Series(strategy string) []ProfileResult {
	out := make([]ProfileResult, 0, len(r.TickCounts))
	for _, n := range r.TickCounts {
		for _, res := range r.Results {
			if res.Strategy == strategy && res.TickCount == n {
				out = append(out, res)
			}
		}
	}
	return out
}

// Lookup returns the result for a (strategy, N) pair.
func (r ProfileReport) Lookup(strategy string, n int) (ProfileResult, bool) {
	for _, res := range r.Results {
		if res.Strategy == strategy && res.TickCount == n {
			return res, true
		}
	}
	return ProfileResult{}, false
}
