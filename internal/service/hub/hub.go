// Package hub fans generated prices and candles out to WebSocket clients.
// Clients subscribe to channels ("price:BTC", "candle:BTC:30s"); a client
// with no subscriptions receives everything.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	"CoinPulse/pkg/logger"
)

const sendQueueSize = 256

// Hub manages connected WebSocket clients and implements EventSink so the
// engine can publish into it like any other sink.
type Hub struct {
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]bool

	// Latest envelope per channel, replayed to newly connected clients.
	latest map[string][]byte
}

// New creates an empty hub.
func New(log *logger.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*Client]bool),
		latest:  make(map[string][]byte),
	}
}

var _ domrepo.EventSink = (*Hub)(nil)

// HandleWS upgrades the request and starts the client pumps.
func (h *Hub) HandleWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		subs: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("ws client connected", logger.Int("total", count))

	go client.sendLatest()
	go client.writePump()
	go client.readPump()
	return nil
}

// PublishPrice broadcasts a live price tick on the instrument's price channel.
func (h *Hub) PublishPrice(ctx context.Context, ev models.PriceEvent) error {
	payload, err := json.Marshal(envelope{
		Type:     "price",
		CoinName: ev.CoinName,
		Data:     ev,
		TS:       ev.TS.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	h.fanOut("price:"+ev.CoinName, payload)
	return nil
}

// PublishCandle broadcasts a finalized candle on the symbol+interval channel.
func (h *Hub) PublishCandle(ctx context.Context, ev models.CandleEvent) error {
	payload, err := json.Marshal(envelope{
		Type:     "candle",
		CoinName: ev.CoinName,
		Data:     ev,
		TS:       ev.Candle.Time.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	h.fanOut("candle:"+ev.CoinName+":"+string(ev.Interval), payload)
	return nil
}

// BroadcastTrend announces a global trend switch to every connected client.
func (h *Hub) BroadcastTrend(mode models.TrendMode) {
	payload, _ := json.Marshal(envelope{
		Type: "trend",
		Data: map[string]string{"trend": string(mode)},
		TS:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	h.fanOut("trend", payload)
}

// Close disconnects all clients.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	return nil
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// fanOut delivers the payload to every client subscribed to the channel.
// Slow clients are skipped rather than blocking the engine tick path.
func (h *Hub) fanOut(channel string, payload []byte) {
	h.mu.Lock()
	h.latest[channel] = payload
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.matches(channel) {
			continue
		}
		select {
		case client.send <- payload:
		default:
			// Queue full, drop for this client.
		}
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Info("ws client disconnected", logger.Int("total", count))
}

// envelope is the wire frame sent to WebSocket clients.
type envelope struct {
	Type     string      `json:"type"`
	CoinName string      `json:"coinName,omitempty"`
	Data     interface{} `json:"data"`
	TS       string      `json:"ts"`
}
