package infrastructure

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	StreamName = "MARKET"

	TickSubjectPrefix   = "market.tick."
	SignalSubjectPrefix = "market.signal."
)

// TickSubject is the subject ticks of symbol are published on.
func TickSubject(symbol string) string {
	return TickSubjectPrefix + symbol
}

// SignalSubject is the subject signals of symbol are published on.
func SignalSubject(symbol string) string {
	return SignalSubjectPrefix + symbol
}

func InitNATS(url string, logger *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{TickSubjectPrefix + "*", SignalSubjectPrefix + "*"},
	}
	if _, err = js.AddStream(cfg); err != nil {
		// If stream exists, we might need to update it
		if _, err = js.UpdateStream(cfg); err != nil {
			logger.Warn("failed to create or update stream", zap.Error(err))
		}
	}

	return nc, js, nil
}
