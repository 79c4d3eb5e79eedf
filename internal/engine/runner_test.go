package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"signal-engine/internal/model"
	"signal-engine/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_EmptySource(t *testing.T) {
	s, err := strategy.NewWindowedStrategy(3)
	require.NoError(t, err)

	calls := 0
	sink := SinkFunc(func(model.Tick, []strategy.Signal) error {
		calls++
		return nil
	})

	summary, err := Run(context.Background(), s, NewSliceSource(nil), sink)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{}, summary)
	assert.Zero(t, calls)
	assert.Zero(t, s.Len())
}

func TestRun_DeliversEveryTickInOrder(t *testing.T) {
	s, err := strategy.NewNaiveStrategy(3)
	require.NoError(t, err)

	ticks := GenerateTicks(5, "TEST", 10)
	var seen []float64
	var signals [][]strategy.Signal
	sink := SinkFunc(func(tk model.Tick, sigs []strategy.Signal) error {
		seen = append(seen, tk.Price)
		signals = append(signals, sigs)
		return nil
	})

	summary, err := Run(context.Background(), s, NewSliceSource(ticks), sink)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11, 12, 13, 14}, seen)
	assert.Equal(t, RunSummary{Ticks: 5, Buys: 3}, summary)
	assert.Empty(t, signals[0])
	assert.Empty(t, signals[1])
	assert.Equal(t, []strategy.Signal{strategy.SignalBuy}, signals[2])
}

func TestRun_StopsOnInvalidTick(t *testing.T) {
	s, err := strategy.NewWindowedStrategy(2)
	require.NoError(t, err)

	ticks := GenerateTicks(3, "TEST", 1)
	ticks[1].Price = math.NaN()

	summary, err := Run(context.Background(), s, NewSliceSource(ticks), nil)
	assert.ErrorIs(t, err, model.ErrInvalidPrice)
	assert.Equal(t, 1, summary.Ticks)
	assert.Equal(t, 1, s.Len())
}

func TestRun_SinkError(t *testing.T) {
	s, err := strategy.NewWindowedStrategy(2)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = Run(context.Background(), s, NewSliceSource(GenerateTicks(3, "TEST", 1)),
		SinkFunc(func(model.Tick, []strategy.Signal) error { return boom }))
	assert.ErrorIs(t, err, boom)
}

func TestRun_Cancelled(t *testing.T) {
	s, err := strategy.NewWindowedStrategy(2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, s, NewSliceSource(GenerateTicks(3, "TEST", 1)), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateTicks(t *testing.T) {
	ticks := GenerateTicks(3, "AAPL", 100)
	require.Len(t, ticks, 3)
	assert.Equal(t, 102.0, ticks[2].Price)
	assert.True(t, ticks[1].Timestamp.After(ticks[0].Timestamp))
	assert.Empty(t, GenerateTicks(-1, "AAPL", 1))
}
