package strategy

import (
	"fmt"

	"signal-engine/internal/model"
)

// NaiveStrategy keeps every price it has seen and re-sums the last
// windowSize of them on each tick.
//
// Time: O(k) per tick. Space: O(N).
type NaiveStrategy struct {
	windowSize int
	history    []float64
	classifier Classifier
}

func NewNaiveStrategy(windowSize int, opts ...Option) (*NaiveStrategy, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindowSize, windowSize)
	}
	o := buildOptions(opts)
	return &NaiveStrategy{
		windowSize: windowSize,
		history:    make([]float64, 0),
		classifier: o.classifier,
	}, nil
}

func (s *NaiveStrategy) Name() string {
	return "Naive Moving Average"
}

func (s *NaiveStrategy) WindowSize() int {
	return s.windowSize
}

func (s *NaiveStrategy) GenerateSignals(tick model.Tick) ([]Signal, error) {
	if err := tick.Validate(); err != nil {
		return nil, err
	}
	s.history = append(s.history, tick.Price)

	// warm-up
	if len(s.history) < s.windowSize {
		return nil, nil
	}
	return s.classifier.Classify(tick.Price, s.calculateMA()), nil
}

// Len returns the number of prices held, which equals the ticks consumed.
func (s *NaiveStrategy) Len() int {
	return len(s.history)
}

func (s *NaiveStrategy) calculateMA() float64 {
	var sum float64
	for _, p := range s.history[len(s.history)-s.windowSize:] {
		sum += p
	}
	return sum / float64(s.windowSize)
}
