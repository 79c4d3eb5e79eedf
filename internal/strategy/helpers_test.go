package strategy

import (
	"time"

	"signal-engine/internal/model"
)

func makeTicks(prices ...float64) []model.Tick {
	now := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	ticks := make([]model.Tick, len(prices))
	for i, p := range prices {
		ticks[i] = model.Tick{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Symbol:    "TEST",
			Price:     p,
		}
	}
	return ticks
}

// feed runs every tick through s and returns one entry per tick.
func feed(s Strategy, ticks []model.Tick) ([][]Signal, error) {
	out := make([][]Signal, 0, len(ticks))
	for _, tk := range ticks {
		sigs, err := s.GenerateSignals(tk)
		if err != nil {
			return out, err
		}
		out = append(out, sigs)
	}
	return out, nil
}
