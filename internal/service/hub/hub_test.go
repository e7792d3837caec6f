package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/pkg/logger"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return New(log)
}

// attach registers a pump-less client so fan-out can be observed on the send
// channel directly.
func attach(h *Hub, channels ...string) *Client {
	c := &Client{
		hub:  h,
		send: make(chan []byte, sendQueueSize),
		subs: make(map[string]bool),
	}
	for _, ch := range channels {
		c.subs[ch] = true
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	default:
		t.Fatal("expected a message, send queue empty")
		return nil
	}
}

func TestPublishPriceReachesSubscriber(t *testing.T) {
	h := testHub(t)
	sub := attach(h, "price:BTC")
	other := attach(h, "price:ETH")

	err := h.PublishPrice(context.Background(), models.PriceEvent{
		CoinName: "BTC", Price: 123.45, Trend: models.TrendUp, TS: time.Now(),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	var env struct {
		Type     string `json:"type"`
		CoinName string `json:"coinName"`
	}
	if err := json.Unmarshal(recv(t, sub), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != "price" || env.CoinName != "BTC" {
		t.Errorf("envelope: %+v", env)
	}
	if len(other.send) != 0 {
		t.Error("unsubscribed client received the event")
	}
}

func TestUnfilteredClientReceivesEverything(t *testing.T) {
	h := testHub(t)
	all := attach(h)

	h.PublishPrice(context.Background(), models.PriceEvent{CoinName: "BTC", TS: time.Now()})
	h.PublishCandle(context.Background(), models.CandleEvent{
		CoinName: "ETH", Interval: models.Interval1m,
		Candle: models.NewCandle(time.Now(), 1, 2, 0.5, 1.5, models.Interval1m),
	})

	if got := len(all.send); got != 2 {
		t.Errorf("message count: got %d, want 2", got)
	}
}

func TestCandleChannelIncludesInterval(t *testing.T) {
	h := testHub(t)
	sub30 := attach(h, "candle:BTC:30s")
	sub1m := attach(h, "candle:BTC:1m")
	subAll := attach(h, "candle:BTC")

	h.PublishCandle(context.Background(), models.CandleEvent{
		CoinName: "BTC", Interval: models.Interval30s,
		Candle: models.NewCandle(time.Now(), 1, 2, 0.5, 1.5, models.Interval30s),
	})

	if len(sub30.send) != 1 {
		t.Error("30s subscriber missed its candle")
	}
	if len(sub1m.send) != 0 {
		t.Error("1m subscriber received a 30s candle")
	}
	if len(subAll.send) != 1 {
		t.Error("bare symbol subscription must cover all intervals")
	}
}

func TestTrendBroadcastIgnoresFilters(t *testing.T) {
	h := testHub(t)
	sub := attach(h, "price:BTC")

	h.BroadcastTrend(models.TrendScenario3)

	var env struct {
		Type string `json:"type"`
		Data map[string]string
	}
	if err := json.Unmarshal(recv(t, sub), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != "trend" || env.Data["trend"] != "scenario3" {
		t.Errorf("envelope: %+v", env)
	}
}

func TestSlowClientIsSkippedNotBlocked(t *testing.T) {
	h := testHub(t)
	slow := attach(h)
	slow.send = make(chan []byte) // unbuffered and never drained
	h.mu.Lock()
	h.clients[slow] = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.PublishPrice(context.Background(), models.PriceEvent{CoinName: "BTC", TS: time.Now()})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fan-out blocked on a slow client")
	}
}

func TestLatestReplayedOnAttach(t *testing.T) {
	h := testHub(t)
	h.PublishPrice(context.Background(), models.PriceEvent{CoinName: "BTC", Price: 99, TS: time.Now()})

	late := attach(h, "price:BTC")
	late.sendLatest()

	if len(late.send) != 1 {
		t.Fatalf("latest snapshot not replayed: %d messages", len(late.send))
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	h := testHub(t)
	attach(h)
	attach(h)
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if h.ClientCount() != 0 {
		t.Errorf("clients remain after close: %d", h.ClientCount())
	}
}
