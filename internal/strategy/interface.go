package strategy

import (
	"errors"

	"signal-engine/internal/model"
)

// Signal is the classification of a tick against its moving average.
// The absence of a signal is an empty slice, not a token.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
)

var (
	ErrInvalidWindowSize = errors.New("window size must be at least 1")
	ErrUnknownStrategy   = errors.New("unknown strategy type")
)

// Strategy consumes one tick at a time, in arrival order, and returns zero or
// more signals for it. Implementations are not safe for concurrent use.
type Strategy interface {
	Name() string
	WindowSize() int
	GenerateSignals(tick model.Tick) ([]Signal, error)
}

type options struct {
	classifier  Classifier
	resyncEvery int
	resyncSet   bool
}

// Option customises a strategy at construction.
type Option func(*options)

// WithClassifier replaces the price/mean comparison, e.g. with a cached one.
func WithClassifier(c Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithResyncInterval sets how many evictions the windowed strategy performs
// before recomputing its running sum from the window. Zero disables it.
func WithResyncInterval(evictions int) Option {
	return func(o *options) {
		if evictions < 0 {
			evictions = 0
		}
		o.resyncEvery = evictions
		o.resyncSet = true
	}
}

func buildOptions(opts []Option) options {
	o := options{classifier: ClassifierFunc(Compare)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
