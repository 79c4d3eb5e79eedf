package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"signal-engine/internal/model"
)

// ErrSourceNotFound marks a tick source whose backing data does not exist.
// Callers may treat it as "no historical data" and carry on.
var ErrSourceNotFound = errors.New("tick source not found")

// TickSource produces ticks one at a time. Next returns io.EOF once the
// sequence is exhausted. Sources are single pass.
type TickSource interface {
	Next(ctx context.Context) (model.Tick, error)
}

// SliceSource replays an in-memory batch of ticks.
type SliceSource struct {
	ticks []model.Tick
	pos   int
}

func NewSliceSource(ticks []model.Tick) *SliceSource {
	return &SliceSource{ticks: ticks}
}

func (s *SliceSource) Next(ctx context.Context) (model.Tick, error) {
	if err := ctx.Err(); err != nil {
		return model.Tick{}, err
	}
	if s.pos >= len(s.ticks) {
		return model.Tick{}, io.EOF
	}
	tk := s.ticks[s.pos]
	s.pos++
	return tk, nil
}

// GenerateTicks builds n ticks with prices start, start+1, ... one second apart.
func GenerateTicks(n int, symbol string, start float64) []model.Tick {
	if n < 0 {
		n = 0
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := make([]model.Tick, n)
	for i := range ticks {
		ticks[i] = model.Tick{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Symbol:    symbol,
			Price:     start + float64(i),
		}
	}
	return ticks
}

// Collect drains a source into a slice.
func Collect(ctx context.Context, src TickSource) ([]model.Tick, error) {
	var ticks []model.Tick
	for {
		tk, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return ticks, nil
		}
		if err != nil {
			return ticks, err
		}
		ticks = append(ticks, tk)
	}
}
