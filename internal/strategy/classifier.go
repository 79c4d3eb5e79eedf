package strategy

import (
	"fmt"
	"math"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TieTolerance is the relative distance under which a price counts as equal
// to the mean. It is scaled by the larger of the two magnitudes, so it only
// absorbs rounding between a running sum and a fresh summation and shrinks to
// exact equality at zero.
const TieTolerance = 1e-9

// Classifier maps the latest price and the window mean to signals.
type Classifier interface {
	Classify(price, mean float64) []Signal
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(price, mean float64) []Signal

func (f ClassifierFunc) Classify(price, mean float64) []Signal { return f(price, mean) }

// Compare emits BUY above the mean, SELL below it and nothing on a tie.
func Compare(price, mean float64) []Signal {
	diff := price - mean
	if math.Abs(diff) <= TieTolerance*math.Max(math.Abs(price), math.Abs(mean)) {
		return nil
	}
	if diff > 0 {
		return []Signal{SignalBuy}
	}
	return []Signal{SignalSell}
}

type classifyKey struct {
	price float64
	mean  float64
}

// CachedClassifier memoizes another classifier in a fixed-size LRU.
type CachedClassifier struct {
	next   Classifier
	cache  *lru.Cache[classifyKey, []Signal]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachedClassifier wraps next with an LRU cache holding up to size entries.
func NewCachedClassifier(next Classifier, size int) (*CachedClassifier, error) {
	if next == nil {
		next = ClassifierFunc(Compare)
	}
	if size < 1 {
		return nil, fmt.Errorf("cache size must be at least 1, got %d", size)
	}
	cache, err := lru.New[classifyKey, []Signal](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &CachedClassifier{next: next, cache: cache}, nil
}

func (c *CachedClassifier) Classify(price, mean float64) []Signal {
	key := classifyKey{price: price, mean: mean}
	if cached, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return copySignals(cached)
	}
	c.misses.Add(1)
	out := c.next.Classify(price, mean)
	c.cache.Add(key, copySignals(out))
	return out
}

// Stats returns the cache hit and miss counts.
func (c *CachedClassifier) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached entries.
func (c *CachedClassifier) Len() int {
	return c.cache.Len()
}

func copySignals(in []Signal) []Signal {
	if len(in) == 0 {
		return nil
	}
	out := make([]Signal, len(in))
	copy(out, in)
	return out
}
