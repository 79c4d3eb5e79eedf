package strategy

import (
	"fmt"

	"signal-engine/internal/model"
)

const defaultResyncFactor = 1024

// WindowedStrategy keeps only the last windowSize prices in a ring buffer
// together with their running sum.
//
// Time: O(1) amortized per tick. Space: O(k), independent of N.
//
// Adding and subtracting on a float sum accumulates rounding error over long
// streams, so the sum is recomputed from the buffer every resyncEvery
// evictions (1024*k by default). That costs O(k) once per 1024*k ticks.
type WindowedStrategy struct {
	windowSize int

	// ring buffer; head is the next write slot, which is also the oldest
	// element once the buffer is full
	prices []float64
	head   int
	count  int
	sum    float64

	resyncEvery int
	evictions   int
	classifier  Classifier
}

func NewWindowedStrategy(windowSize int, opts ...Option) (*WindowedStrategy, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindowSize, windowSize)
	}
	o := buildOptions(opts)
	resync := windowSize * defaultResyncFactor
	if o.resyncSet {
		resync = o.resyncEvery
	}
	return &WindowedStrategy{
		windowSize:  windowSize,
		prices:      make([]float64, windowSize),
		resyncEvery: resync,
		classifier:  o.classifier,
	}, nil
}

func (s *WindowedStrategy) Name() string {
	return "Windowed Moving Average"
}

func (s *WindowedStrategy) WindowSize() int {
	return s.windowSize
}

func (s *WindowedStrategy) GenerateSignals(tick model.Tick) ([]Signal, error) {
	if err := tick.Validate(); err != nil {
		return nil, err
	}

	// 1. evict the oldest price when full
	full := s.count == s.windowSize
	if full {
		s.sum -= s.prices[s.head]
	}

	// 2. append the new one
	s.prices[s.head] = tick.Price
	s.sum += tick.Price
	s.head = (s.head + 1) % s.windowSize

	if full {
		s.evictions++
		if s.resyncEvery > 0 && s.evictions >= s.resyncEvery {
			s.resync()
		}
	} else {
		s.count++
	}

	// 3. warm-up
	if s.count < s.windowSize {
		return nil, nil
	}

	// 4. compare
	mean := s.sum / float64(s.windowSize)
	return s.classifier.Classify(tick.Price, mean), nil
}

// Len returns the number of prices currently stored.
func (s *WindowedStrategy) Len() int {
	return s.count
}

// Sum returns the running sum of the window.
func (s *WindowedStrategy) Sum() float64 {
	return s.sum
}

// Window returns a copy of the stored prices, oldest first.
func (s *WindowedStrategy) Window() []float64 {
	out := make([]float64, 0, s.count)
	start := 0
	if s.count == s.windowSize {
		start = s.head
	}
	for i := 0; i < s.count; i++ {
		out = append(out, s.prices[(start+i)%s.windowSize])
	}
	return out
}

func (s *WindowedStrategy) resync() {
	var sum float64
	for _, p := range s.prices[:s.count] {
		sum += p
	}
	s.sum = sum
	s.evictions = 0
}
