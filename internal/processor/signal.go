package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"signal-engine/internal/infrastructure"
	"signal-engine/internal/model"
	"signal-engine/internal/strategy"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher is the part of nats.JetStreamContext the processor writes to.
type Publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// StrategyFactory builds a fresh strategy for a newly seen symbol.
type StrategyFactory func() (strategy.Strategy, error)

// SignalProcessor turns the tick stream into signal events. Each symbol gets
// its own strategy instance; nothing is shared between symbols.
type SignalProcessor struct {
	js         nats.JetStreamContext
	pub        Publisher
	logger     *zap.Logger
	factory    StrategyFactory
	strategies map[string]strategy.Strategy
	mu         sync.Mutex
}

func NewSignalProcessor(js nats.JetStreamContext, factory StrategyFactory, logger *zap.Logger) *SignalProcessor {
	p := &SignalProcessor{
		js:         js,
		logger:     logger,
		factory:    factory,
		strategies: make(map[string]strategy.Strategy),
	}
	if js != nil {
		p.pub = js
	}
	return p
}

// Run subscribes to every tick subject. The subscription is drained when ctx
// is done.
func (p *SignalProcessor) Run(ctx context.Context) error {
	sub, err := p.js.Subscribe(infrastructure.TickSubjectPrefix+"*", func(msg *nats.Msg) {
		var tick model.Tick
		if err := json.Unmarshal(msg.Data, &tick); err != nil {
			p.logger.Error("failed to unmarshal tick in processor", zap.Error(err))
			infrastructure.TicksRejected.WithLabelValues("decode").Inc()
			msg.Ack()
			return
		}

		events, err := p.processTick(tick)
		if err != nil {
			p.logger.Warn("tick rejected", zap.String("symbol", tick.Symbol), zap.Error(err))
			msg.Ack()
			return
		}
		for _, ev := range events {
			p.publish(ev)
		}
		msg.Ack()
	}, nats.Durable("signal-processor"), nats.ManualAck())
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			p.logger.Warn("failed to drain tick subscription", zap.Error(err))
		}
	}()
	p.logger.Info("signal processor started")
	return nil
}

func (p *SignalProcessor) processTick(tick model.Tick) ([]model.SignalEvent, error) {
	if tick.Symbol == "" {
		infrastructure.TicksRejected.WithLabelValues("symbol").Inc()
		return nil, errors.New("tick without symbol")
	}
	if err := tick.Validate(); err != nil {
		infrastructure.TicksRejected.WithLabelValues("price").Inc()
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	strat, ok := p.strategies[tick.Symbol]
	if !ok {
		s, err := p.factory()
		if err != nil {
			return nil, fmt.Errorf("build strategy for %s: %w", tick.Symbol, err)
		}
		strat = s
		p.strategies[tick.Symbol] = strat
		p.logger.Info("strategy created", zap.String("symbol", tick.Symbol), zap.String("strategy", strat.Name()))
	}

	signals, err := strat.GenerateSignals(tick)
	if err != nil {
		return nil, err
	}
	infrastructure.TicksProcessed.WithLabelValues(strat.Name(), tick.Symbol).Inc()

	events := make([]model.SignalEvent, 0, len(signals))
	for _, sig := range signals {
		infrastructure.SignalsEmitted.WithLabelValues(strat.Name(), string(sig)).Inc()
		events = append(events, model.SignalEvent{
			Symbol:    tick.Symbol,
			Strategy:  strat.Name(),
			Signal:    string(sig),
			Price:     tick.Price,
			Timestamp: tick.Timestamp,
		})
	}
	return events, nil
}

func (p *SignalProcessor) publish(ev model.SignalEvent) {
	if p.pub == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("failed to marshal signal", zap.Error(err))
		return
	}
	if _, err := p.pub.Publish(infrastructure.SignalSubject(ev.Symbol), data); err != nil {
		p.logger.Error("failed to publish signal", zap.String("symbol", ev.Symbol), zap.Error(err))
	}
}

// Symbols returns the number of symbols with a live strategy.
func (p *SignalProcessor) Symbols() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.strategies)
}
