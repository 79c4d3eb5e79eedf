package app

import (
	"context"
	"encoding/json"

	"signal-engine/internal/connector"
	"signal-engine/internal/infrastructure"
	"signal-engine/internal/model"

	"go.uber.org/zap"
)

// startIngestionWorker streams ticks from Binance for every configured symbol
// and publishes them on the tick subject of that symbol.
func (a *App) startIngestionWorker(ctx context.Context) {
	for _, symbol := range a.Config.BinanceSymbolList() {
		symbol := symbol
		go func() {
			tickChan := make(chan model.Tick, 1000)
			go connector.NewBinanceConnector(a.Logger, symbol).Run(ctx, tickChan)

			for {
				select {
				case <-ctx.Done():
					return
				case tick := <-tickChan:
					tick.Symbol = model.NormalizeSymbol(tick.Symbol)

					data, err := json.Marshal(tick)
					if err != nil {
						a.Logger.Error("failed to marshal tick", zap.Error(err))
						continue
					}
					if _, err := a.JS.Publish(infrastructure.TickSubject(tick.Symbol), data); err != nil {
						a.Logger.Error("failed to publish to NATS", zap.Error(err))
						continue
					}
					infrastructure.TicksIngested.WithLabelValues("binance", tick.Symbol).Inc()
				}
			}
		}()
	}
}
