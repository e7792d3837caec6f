package hub

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4096
)

// Client is one WebSocket peer. Messages queue on send; the write pump
// coalesces a backlog into a single frame.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	subMu sync.RWMutex
	subs  map[string]bool
}

// subscribeMsg is the inbound control frame.
type subscribeMsg struct {
	Type     string `json:"type"`
	Channel  string `json:"channel"`
	CoinName string `json:"coinName"`
	Interval string `json:"interval"`
}

// matches reports whether this client should receive the channel. No
// subscriptions means receive-all; the global trend channel always delivers.
func (c *Client) matches(channel string) bool {
	if channel == "trend" {
		return true
	}
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if len(c.subs) == 0 {
		return true
	}
	if c.subs[channel] {
		return true
	}
	// A bare "candle:BTC" subscription covers every interval.
	if i := strings.LastIndex(channel, ":"); i > 0 && c.subs[channel[:i]] {
		return true
	}
	return false
}

// sendLatest replays the most recent envelope of each subscribed channel so a
// fresh client paints immediately instead of waiting for the next tick.
func (c *Client) sendLatest() {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	for channel, payload := range c.hub.latest {
		if !c.matches(channel) {
			continue
		}
		select {
		case c.send <- payload:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			// Drain whatever queued up into the same frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var ctrl subscribeMsg
		if json.Unmarshal(msg, &ctrl) != nil {
			continue
		}
		switch ctrl.Type {
		case "subscribe":
			c.subscribe(ctrl.channelKey())
		case "unsubscribe":
			c.unsubscribe(ctrl.channelKey())
		}
	}
}

func (c *Client) subscribe(channel string) {
	if channel == "" {
		return
	}
	c.subMu.Lock()
	c.subs[channel] = true
	c.subMu.Unlock()
}

func (c *Client) unsubscribe(channel string) {
	if channel == "" {
		return
	}
	c.subMu.Lock()
	delete(c.subs, channel)
	c.subMu.Unlock()
}

// channelKey builds the channel from either an explicit channel string or the
// coinName/interval shorthand.
func (m subscribeMsg) channelKey() string {
	if m.Channel != "" {
		return m.Channel
	}
	if m.CoinName == "" {
		return ""
	}
	if m.Interval != "" {
		return "candle:" + m.CoinName + ":" + m.Interval
	}
	return "price:" + m.CoinName
}
