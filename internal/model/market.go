package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidPrice is returned for ticks whose price is NaN or infinite.
var ErrInvalidPrice = errors.New("invalid price")

// Tick 代表一次带时间戳的价格观测
type Tick struct {
	Timestamp time.Time `json:"ts" db:"time"`
	Symbol    string    `json:"symbol" db:"symbol"`
	Price     float64   `json:"price" db:"price"`
}

// Validate reports whether the tick can be fed to a strategy.
func (t Tick) Validate() error {
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		return fmt.Errorf("%w: %v for %s", ErrInvalidPrice, t.Price, t.Symbol)
	}
	return nil
}

// SignalEvent is a signal published to downstream consumers.
type SignalEvent struct {
	Symbol    string    `json:"symbol"`
	Strategy  string    `json:"strategy"`
	Signal    string    `json:"signal"` // "BUY" or "SELL"
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"ts"`
}
