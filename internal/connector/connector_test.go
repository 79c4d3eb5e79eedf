package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signal-engine/internal/infrastructure"
	"signal-engine/internal/model"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBinanceConnector_ToTick(t *testing.T) {
	logger := zap.NewNop()
	c := NewBinanceConnector(logger, "BTCUSDT")
	assert.Equal(t, "wss://stream.binance.com:9443/ws/btcusdt@trade", c.url)

	event := BinanceTradeEvent{
		TradeID:      12345,
		Price:        "50000.25",
		Quantity:     "0.1",
		TradeTime:    1640123456789,
		Symbol:       "BTCUSDT",
		IsBuyerMaker: true,
	}

	tick, err := c.toTick(event)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", tick.Symbol)
	assert.Equal(t, 50000.25, tick.Price)
	assert.Equal(t, time.UnixMilli(1640123456789).UTC(), tick.Timestamp)
}

func TestBinanceConnector_ToTickBadPrice(t *testing.T) {
	c := NewBinanceConnector(zap.NewNop(), "btcusdt")
	_, err := c.toTick(BinanceTradeEvent{Price: "n/a", Symbol: "BTCUSDT"})
	assert.Error(t, err)
}

func TestIncreaseBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, increaseBackoff(time.Second))
	assert.Equal(t, time.Minute, increaseBackoff(45*time.Second))
	assert.Equal(t, time.Minute, increaseBackoff(time.Minute))
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepContext(ctx, time.Hour))
	assert.True(t, sleepContext(context.Background(), time.Millisecond))
}

func TestBinanceConnector_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		NewBinanceConnector(zap.NewNop(), "btcusdt").Run(ctx, make(chan<- model.Tick))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBinanceConnector_StreamsTicksAndTracksConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"e":"trade","s":"PEPEUSDT","t":7,"p":"0.0000012345","q":"1000","T":1700000000000}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	exchange := infrastructure.ExchangeConnections.WithLabelValues("binance")
	clients := testutil.ToFloat64(infrastructure.WSConnections)

	c := NewBinanceConnector(zap.NewNop(), "pepeusdt")
	c.url = "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan model.Tick, 1)
	done := make(chan struct{})
	go func() {
		c.Run(ctx, ticks)
		close(done)
	}()

	select {
	case tk := <-ticks:
		assert.Equal(t, "PEPEUSDT", tk.Symbol)
		assert.Equal(t, 0.0000012345, tk.Price)
	case <-time.After(5 * time.Second):
		t.Fatal("no tick received")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(exchange))
	assert.Equal(t, clients, testutil.ToFloat64(infrastructure.WSConnections), "gateway gauge untouched")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(exchange))
}
