package strategy

import (
	"math"
	"testing"

	"signal-engine/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windowSum(w []float64) float64 {
	var sum float64
	for _, p := range w {
		sum += p
	}
	return sum
}

func TestWindowedStrategy_Scenarios(t *testing.T) {
	tests := []struct {
		name   string
		window int
		prices []float64
		want   [][]Signal
	}{
		{
			name:   "rising prices",
			window: 3,
			prices: []float64{10, 20, 30, 40, 50},
			want:   [][]Signal{nil, nil, {SignalBuy}, {SignalBuy}, {SignalBuy}},
		},
		{
			name:   "flat then drop",
			window: 3,
			prices: []float64{100, 100, 100, 50},
			want:   [][]Signal{nil, nil, nil, {SignalSell}},
		},
		{
			name:   "window of one always ties",
			window: 1,
			prices: []float64{5, 1, 9, 9, 3},
			want:   [][]Signal{nil, nil, nil, nil, nil},
		},
		{
			name:   "falling prices",
			window: 2,
			prices: []float64{9, 8, 7},
			want:   [][]Signal{nil, {SignalSell}, {SignalSell}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewWindowedStrategy(tt.window)
			require.NoError(t, err)

			got, err := feed(s, makeTicks(tt.prices...))
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, len(tt.want[i]), len(got[i]), "tick %d", i+1)
				if len(tt.want[i]) > 0 {
					assert.Equal(t, tt.want[i], got[i], "tick %d", i+1)
				}
			}
		})
	}
}

func TestWindowedStrategy_EvictsOldestFirst(t *testing.T) {
	s, err := NewWindowedStrategy(3)
	require.NoError(t, err)

	_, err = feed(s, makeTicks(1, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, s.Window())

	_, err = feed(s, makeTicks(3, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, s.Window())
	assert.Equal(t, 12.0, s.Sum())

	// equal values keep their own positions
	_, err = feed(s, makeTicks(5, 5))
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5, 5}, s.Window())
}

func TestWindowedStrategy_SumInvariant(t *testing.T) {
	s, err := NewWindowedStrategy(7, WithResyncInterval(0))
	require.NoError(t, err)

	for i := 0; i < 5000; i++ {
		price := 100 + 10*math.Sin(float64(i)/13) + float64(i%11)*0.37
		_, err := s.GenerateSignals(model.Tick{Symbol: "TEST", Price: price})
		require.NoError(t, err)

		w := s.Window()
		assert.Len(t, w, min(7, i+1))
		assert.InDelta(t, windowSum(w), s.Sum(), 1e-9*math.Max(1, windowSum(w)))
	}
}

func TestWindowedStrategy_BoundedMemory(t *testing.T) {
	const k = 25
	s, err := NewWindowedStrategy(k)
	require.NoError(t, err)

	for i := 0; i < 20*k; i++ {
		_, err := s.GenerateSignals(model.Tick{Symbol: "TEST", Price: float64(i)})
		require.NoError(t, err)
		assert.LessOrEqual(t, s.Len(), k)
	}
	assert.Equal(t, k, s.Len())
	assert.Equal(t, k, cap(s.prices), "ring buffer must never grow")
}

func TestWindowedStrategy_ResyncBoundsDrift(t *testing.T) {
	s, err := NewWindowedStrategy(3, WithResyncInterval(10))
	require.NoError(t, err)

	// 0.1 is not representable, so add/subtract drifts without a resync
	for i := 0; i < 100_000; i++ {
		sigs, err := s.GenerateSignals(model.Tick{Symbol: "TEST", Price: 0.1})
		require.NoError(t, err)
		require.Empty(t, sigs, "flat series must never signal (tick %d)", i+1)
	}
	assert.InDelta(t, windowSum(s.Window()), s.Sum(), 1e-12)
}

func TestWindowedStrategy_RejectsNonFinitePriceAtomically(t *testing.T) {
	s, err := NewWindowedStrategy(3)
	require.NoError(t, err)
	_, err = feed(s, makeTicks(1, 2, 3, 4))
	require.NoError(t, err)

	window, sum := s.Window(), s.Sum()
	for _, p := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		sigs, err := s.GenerateSignals(model.Tick{Symbol: "TEST", Price: p})
		assert.ErrorIs(t, err, model.ErrInvalidPrice)
		assert.Nil(t, sigs)
		assert.Equal(t, window, s.Window())
		assert.Equal(t, sum, s.Sum())
	}

	// stream continues as if the bad ticks never happened
	sigs, err := s.GenerateSignals(model.Tick{Symbol: "TEST", Price: 5})
	require.NoError(t, err)
	assert.Equal(t, []Signal{SignalBuy}, sigs)
	assert.Equal(t, []float64{3, 4, 5}, s.Window())
}

func TestNewWindowedStrategy_InvalidWindow(t *testing.T) {
	s, err := NewWindowedStrategy(0)
	assert.ErrorIs(t, err, ErrInvalidWindowSize)
	assert.Nil(t, s)
}
