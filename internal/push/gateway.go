package push

import (
	"encoding/json"
	"net/http"
	"sync"

	"signal-engine/internal/infrastructure"
	"signal-engine/internal/model"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Subscriber is the part of nats.JetStreamContext the gateway reads from.
type Subscriber interface {
	Subscribe(subj string, cb nats.MsgHandler, opts ...nats.SubOpt) (*nats.Subscription, error)
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Request is what a client sends to (un)subscribe from a symbol's signals.
type Request struct {
	Action string `json:"action"` // "subscribe", "unsubscribe"
	Symbol string `json:"symbol"`
}

// SignalGateway fans signal events out to websocket clients. One bus
// subscription is held per symbol while at least one client wants it.
type SignalGateway struct {
	logger        *zap.Logger
	sub           Subscriber
	clients       map[*Client]bool
	subscriptions map[string]map[*Client]bool
	natsSubs      map[string]*nats.Subscription
	mu            sync.RWMutex
}

func NewSignalGateway(sub Subscriber, logger *zap.Logger) *SignalGateway {
	return &SignalGateway{
		logger:        logger,
		sub:           sub,
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		natsSubs:      make(map[string]*nats.Subscription),
	}
}

func (g *SignalGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	g.mu.Lock()
	g.clients[client] = true
	g.mu.Unlock()
	infrastructure.WSConnections.Inc()

	go g.writePump(client)
	g.readPump(client)
}

func (g *SignalGateway) readPump(c *Client) {
	defer func() {
		g.mu.Lock()
		delete(g.clients, c)
		for symbol := range g.subscriptions {
			g.removeLocked(symbol, c)
		}
		g.mu.Unlock()
		close(c.send)
		infrastructure.WSConnections.Dec()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}
		g.handle(c, req)
	}
}

func (g *SignalGateway) handle(c *Client, req Request) {
	symbol := model.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	switch req.Action {
	case "subscribe":
		if g.subscriptions[symbol] == nil {
			g.subscriptions[symbol] = make(map[*Client]bool)
			if err := g.subscribeLocked(symbol); err != nil {
				g.logger.Error("failed to subscribe to signals", zap.String("symbol", symbol), zap.Error(err))
			}
		}
		g.subscriptions[symbol][c] = true
		g.logger.Info("client subscribed to signals", zap.String("symbol", symbol))
	case "unsubscribe":
		g.removeLocked(symbol, c)
	}
}

// removeLocked drops c from symbol and releases the bus subscription when no
// client is left. g.mu must be held.
func (g *SignalGateway) removeLocked(symbol string, c *Client) {
	clients, ok := g.subscriptions[symbol]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) > 0 {
		return
	}
	if sub, ok := g.natsSubs[symbol]; ok {
		sub.Unsubscribe()
		delete(g.natsSubs, symbol)
		g.logger.Info("unsubscribed from signals as no clients left", zap.String("symbol", symbol))
	}
	delete(g.subscriptions, symbol)
}

func (g *SignalGateway) writePump(c *Client) {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (g *SignalGateway) subscribeLocked(symbol string) error {
	if g.sub == nil {
		return nil
	}
	sub, err := g.sub.Subscribe(infrastructure.SignalSubject(symbol), func(msg *nats.Msg) {
		g.broadcast(symbol, msg.Data)
		msg.Ack()
	}, nats.DeliverNew(), nats.ManualAck())
	if err != nil {
		return err
	}
	g.natsSubs[symbol] = sub
	return nil
}

func (g *SignalGateway) broadcast(symbol string, data []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for c := range g.subscriptions[symbol] {
		select {
		case c.send <- data:
		default:
			// Do not block, just drop if channel is full
		}
	}
}
