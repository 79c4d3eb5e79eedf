package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"signal-engine/internal/infrastructure"
	"signal-engine/internal/model"
	"signal-engine/internal/strategy"

	"go.uber.org/zap"
)

const heapSampleInterval = time.Millisecond

// ProfileConfig describes one comparison run.
type ProfileConfig struct {
	WindowSize int
	TickCounts []int
	Repeats    int
	Strategies []string
}

// Profiler feeds identical synthetic batches to fresh strategy instances and
// records wall-clock time and heap usage per (strategy, N).
type Profiler struct {
	cfg    ProfileConfig
	logger *zap.Logger
}

func NewProfiler(cfg ProfileConfig, logger *zap.Logger) (*Profiler, error) {
	if cfg.WindowSize < 1 {
		return nil, fmt.Errorf("%w: got %d", strategy.ErrInvalidWindowSize, cfg.WindowSize)
	}
	if len(cfg.TickCounts) == 0 {
		return nil, errors.New("at least one tick count is required")
	}
	for _, n := range cfg.TickCounts {
		if n < 1 {
			return nil, fmt.Errorf("tick count must be positive, got %d", n)
		}
	}
	if cfg.Repeats == 0 {
		cfg.Repeats = 1
	}
	if cfg.Repeats < 1 {
		return nil, fmt.Errorf("repeats must be positive, got %d", cfg.Repeats)
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = strategy.Types()
	}
	for _, typ := range cfg.Strategies {
		if _, err := strategy.NewStrategy(typ, cfg.WindowSize); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiler{cfg: cfg, logger: logger}, nil
}

func (p *Profiler) Run(ctx context.Context) (*model.ProfileReport, error) {
	report := &model.ProfileReport{
		WindowSize:  p.cfg.WindowSize,
		TickCounts:  append([]int(nil), p.cfg.TickCounts...),
		Strategies:  append([]string(nil), p.cfg.Strategies...),
		GeneratedAt: time.Now().UTC(),
	}

	for _, n := range p.cfg.TickCounts {
		p.logger.Info("profiling strategies", zap.Int("n", n), zap.Int("window_size", p.cfg.WindowSize))
		ticks := GenerateTicks(n, "AAPL", 100)

		for _, typ := range p.cfg.Strategies {
			res, err := p.profile(ctx, typ, ticks)
			if err != nil {
				return nil, fmt.Errorf("profile %s n=%d: %w", typ, n, err)
			}
			report.Results = append(report.Results, res)

			p.logger.Info("profile result",
				zap.String("strategy", typ),
				zap.Int("n", n),
				zap.Duration("mean_elapsed", res.MeanElapsed),
				zap.Uint64("peak_heap_bytes", res.PeakHeapBytes),
				zap.Uint64("retained_bytes", res.RetainedBytes),
			)
			label := strconv.Itoa(n)
			infrastructure.ProfileDuration.WithLabelValues(typ, label).Set(res.MeanElapsed.Seconds())
			infrastructure.ProfilePeakMemory.WithLabelValues(typ, label).Set(float64(res.PeakHeapBytes))
		}
	}
	return report, nil
}

func (p *Profiler) profile(ctx context.Context, typ string, ticks []model.Tick) (model.ProfileResult, error) {
	res := model.ProfileResult{Strategy: typ, TickCount: len(ticks)}

	var total time.Duration
	for i := 0; i < p.cfg.Repeats; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		strat, err := strategy.NewStrategy(typ, p.cfg.WindowSize)
		if err != nil {
			return res, err
		}

		start := time.Now()
		summary, err := Run(ctx, strat, NewSliceSource(ticks), nil)
		elapsed := time.Since(start)
		if err != nil {
			return res, err
		}

		total += elapsed
		if res.Runs == 0 || elapsed < res.MinElapsed {
			res.MinElapsed = elapsed
		}
		if elapsed > res.MaxElapsed {
			res.MaxElapsed = elapsed
		}
		res.Runs++
		res.Buys, res.Sells = summary.Buys, summary.Sells
	}
	res.MeanElapsed = total / time.Duration(res.Runs)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	peak, retained, err := p.measureMemory(ctx, typ, ticks)
	if err != nil {
		return res, err
	}
	res.PeakHeapBytes, res.RetainedBytes = peak, retained
	return res, nil
}

// measureMemory runs a fresh instance while sampling the heap. Retained bytes
// are read after a GC with the strategy still reachable.
func (p *Profiler) measureMemory(ctx context.Context, typ string, ticks []model.Tick) (peak, retained uint64, err error) {
	runtime.GC()
	var base runtime.MemStats
	runtime.ReadMemStats(&base)

	strat, err := strategy.NewStrategy(typ, p.cfg.WindowSize)
	if err != nil {
		return 0, 0, err
	}

	sampler := startHeapSampler(heapSampleInterval)
	_, err = Run(ctx, strat, NewSliceSource(ticks), nil)
	maxHeap := sampler.stop()
	if err != nil {
		return 0, 0, err
	}

	runtime.GC()
	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	runtime.KeepAlive(strat)

	return subFloor(maxHeap, base.HeapAlloc), subFloor(after.HeapAlloc, base.HeapAlloc), nil
}

type heapSampler struct {
	done chan struct{}
	wg   sync.WaitGroup
	max  uint64
}

func startHeapSampler(every time.Duration) *heapSampler {
	s := &heapSampler{done: make(chan struct{})}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.sample()
			}
		}
	}()
	return s
}

func (s *heapSampler) sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapAlloc > s.max {
		s.max = ms.HeapAlloc
	}
}

func (s *heapSampler) stop() uint64 {
	close(s.done)
	s.wg.Wait()
	s.sample()
	return s.max
}

func subFloor(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
