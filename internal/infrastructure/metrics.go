package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticks_processed_total",
		Help: "Total number of ticks fed to a strategy",
	}, []string{"strategy", "symbol"})

	TicksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticks_rejected_total",
		Help: "Ticks rejected before reaching a strategy",
	}, []string{"reason"})

	SignalsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signals_emitted_total",
		Help: "Signals produced, by strategy and side",
	}, []string{"strategy", "signal"})

	TicksIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticks_ingested_total",
		Help: "Ticks published to the bus by ingestion connectors",
	}, []string{"exchange", "symbol"})

	ProfileDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "profile_duration_seconds",
		Help: "Mean wall-clock time of the last profiling run",
	}, []string{"strategy", "ticks"})

	ProfilePeakMemory = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "profile_peak_heap_bytes",
		Help: "Peak heap growth of the last profiling run",
	}, []string{"strategy", "ticks"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_total",
		Help: "Active client WebSocket connections on the signal gateway",
	})

	ExchangeConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "exchange_connections",
		Help: "Open upstream WebSocket connections to exchanges",
	}, []string{"exchange"})
)
