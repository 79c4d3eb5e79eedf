package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"signal-engine/internal/model"
	"signal-engine/internal/strategy"
)

// SignalSink receives the signals produced for each tick, including empty ones.
type SignalSink interface {
	Consume(tick model.Tick, signals []strategy.Signal) error
}

// SinkFunc adapts a function to SignalSink.
type SinkFunc func(tick model.Tick, signals []strategy.Signal) error

func (f SinkFunc) Consume(tick model.Tick, signals []strategy.Signal) error { return f(tick, signals) }

// RunSummary counts what a run produced.
type RunSummary struct {
	Ticks int `json:"ticks"`
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

func (s *RunSummary) add(signals []strategy.Signal) {
	s.Ticks++
	for _, sig := range signals {
		switch sig {
		case strategy.SignalBuy:
			s.Buys++
		case strategy.SignalSell:
			s.Sells++
		}
	}
}

// Run feeds every tick of src to strat in order and hands the result to sink.
// A nil sink discards signals. The run ends cleanly when src returns io.EOF.
func Run(ctx context.Context, strat strategy.Strategy, src TickSource, sink SignalSink) (RunSummary, error) {
	var summary RunSummary
	for {
		tk, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		if err != nil {
			return summary, fmt.Errorf("read tick %d: %w", summary.Ticks+1, err)
		}

		signals, err := strat.GenerateSignals(tk)
		if err != nil {
			return summary, fmt.Errorf("tick %d: %w", summary.Ticks+1, err)
		}
		summary.add(signals)

		if sink != nil {
			if err := sink.Consume(tk, signals); err != nil {
				return summary, fmt.Errorf("sink: %w", err)
			}
		}
	}
}
