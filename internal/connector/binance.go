package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"signal-engine/internal/infrastructure"
	"signal-engine/internal/model"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const binanceStreamURL = "wss://stream.binance.com:9443/ws/%s@trade"

// BinanceConnector turns the Binance public trade stream of one symbol into
// ticks. Only the trade price and time are kept.
type BinanceConnector struct {
	logger *zap.Logger
	symbol string
	url    string
}

func NewBinanceConnector(logger *zap.Logger, symbol string) *BinanceConnector {
	symbol = strings.ToLower(symbol)
	return &BinanceConnector{
		logger: logger.With(zap.String("exchange", "binance"), zap.String("symbol", symbol)),
		symbol: symbol,
		url:    fmt.Sprintf(binanceStreamURL, symbol),
	}
}

// BinanceTradeEvent represents the raw trade event from Binance WS
type BinanceTradeEvent struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// Run keeps a connection open until ctx is done, reconnecting with
// exponential backoff.
func (b *BinanceConnector) Run(ctx context.Context, tickChan chan<- model.Tick) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b.logger.Info("connecting to binance websocket", zap.String("url", b.url))
		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.DialContext(ctx, b.url, nil)
		if err != nil {
			b.logger.Error("failed to connect to binance", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepContext(ctx, backoff) {
				return
			}
			backoff = increaseBackoff(backoff)
			continue
		}

		backoff = time.Second // Reset backoff on successful connection
		b.logger.Info("connected to binance websocket")
		infrastructure.ExchangeConnections.WithLabelValues("binance").Inc()

		if err := b.handleConnection(ctx, conn, tickChan); err != nil {
			b.logger.Error("connection closed with error", zap.Error(err))
		}
		infrastructure.ExchangeConnections.WithLabelValues("binance").Dec()
		conn.Close()
	}
}

func (b *BinanceConnector) handleConnection(ctx context.Context, conn *websocket.Conn, tickChan chan<- model.Tick) error {
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// unblock ReadMessage on shutdown
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var event BinanceTradeEvent
		if err := json.Unmarshal(message, &event); err != nil {
			b.logger.Error("failed to unmarshal binance trade event", zap.Error(err))
			continue
		}

		tick, err := b.toTick(event)
		if err != nil {
			b.logger.Warn("dropping binance trade", zap.Int64("trade_id", event.TradeID), zap.Error(err))
			continue
		}
		select {
		case tickChan <- tick:
		default:
			b.logger.Warn("tick channel full, dropping tick", zap.Int64("trade_id", event.TradeID))
		}
	}
}

func (b *BinanceConnector) toTick(event BinanceTradeEvent) (model.Tick, error) {
	price, err := decimal.NewFromString(event.Price)
	if err != nil {
		return model.Tick{}, fmt.Errorf("parse price %q: %w", event.Price, err)
	}
	tick := model.Tick{
		Timestamp: time.UnixMilli(event.TradeTime).UTC(),
		Symbol:    event.Symbol,
		Price:     price.InexactFloat64(),
	}
	return tick, tick.Validate()
}
