package repository

import (
	"context"
	"testing"
	"time"

	"CoinPulse/internal/domain/models"
)

func testInstrument(symbol string) *models.Instrument {
	return &models.Instrument{
		Symbol:           symbol,
		Kind:             models.KindOTC,
		BasePrice:        100,
		PayoutPercentage: 80,
		SelectedInterval: models.Interval30s,
		CurrentTrend:     models.TrendNormal,
		CurrentDuration:  models.Interval30s,
	}
}

func candleAt(sec int, iv models.Interval) models.Candle {
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second)
	return models.NewCandle(ts, 100, 101, 99, 100.5, iv)
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	if err := s.Create(ctx, testInstrument("BTC")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, testInstrument("BTC")); err == nil {
		t.Fatal("duplicate create must fail")
	}

	got, err := s.Get(ctx, "BTC")
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.BasePrice != 100 {
		t.Errorf("base price: got %v", got.BasePrice)
	}

	got.SelectedInterval = models.Interval1m
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.Get(ctx, "BTC")
	if got.SelectedInterval != models.Interval1m {
		t.Errorf("update not applied: %v", got.SelectedInterval)
	}

	if err := s.Delete(ctx, "BTC"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.Get(ctx, "BTC"); got != nil {
		t.Error("instrument still present after delete")
	}
}

func TestMemoryStoreRejectsBadBasePrice(t *testing.T) {
	s := NewMemoryStore(10)
	inst := testInstrument("XYZ")
	inst.BasePrice = 0
	if err := s.Create(context.Background(), inst); err == nil {
		t.Fatal("zero base price must be rejected at setup")
	}
}

func TestAppendEvictsOldestAtCap(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(500)
	for i := 0; i < 501; i++ {
		if err := s.Append(ctx, "BTC", candleAt(i*30, models.Interval30s)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if n := s.Len("BTC"); n != 500 {
		t.Fatalf("history length: got %d, want 500", n)
	}
	candles, err := s.Query(ctx, "BTC", models.Interval30s, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	first := candleAt(30, models.Interval30s)
	if !candles[0].Time.Equal(first.Time) {
		t.Errorf("oldest candle not evicted: got %v, want %v", candles[0].Time, first.Time)
	}
}

func TestQueryFiltersByInterval(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(100)
	for i := 0; i < 5; i++ {
		s.Append(ctx, "ETH", candleAt(i*30, models.Interval30s))
	}
	for i := 5; i < 8; i++ {
		s.Append(ctx, "ETH", candleAt(i*60, models.Interval1m))
	}

	got30, _ := s.Query(ctx, "ETH", models.Interval30s, 0)
	if len(got30) != 5 {
		t.Errorf("30s candles: got %d, want 5", len(got30))
	}
	got1m, _ := s.Query(ctx, "ETH", models.Interval1m, 0)
	if len(got1m) != 3 {
		t.Errorf("1m candles: got %d, want 3", len(got1m))
	}
	for i := 1; i < len(got30); i++ {
		if !got30[i-1].Time.Before(got30[i].Time) {
			t.Fatalf("candles not time-ascending at %d", i)
		}
	}
}

func TestQueryOrdersLateAppendedCandles(t *testing.T) {
	// A buffered pipeline retry can land an older candle after a newer one;
	// Query must still come back time-ascending.
	ctx := context.Background()
	s := NewMemoryStore(100)
	s.Append(ctx, "BTC", candleAt(60, models.Interval30s))
	s.Append(ctx, "BTC", candleAt(0, models.Interval30s))
	s.Append(ctx, "BTC", candleAt(30, models.Interval30s))

	candles, err := s.Query(ctx, "BTC", models.Interval30s, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i-1].Time.Before(candles[i].Time) {
			t.Fatalf("candles not time-ascending at %d: %v then %v", i, candles[i-1].Time, candles[i].Time)
		}
	}
}

func TestSortCandlesByTime(t *testing.T) {
	out := []models.Candle{
		candleAt(90, models.Interval30s),
		candleAt(0, models.Interval30s),
		candleAt(60, models.Interval30s),
		candleAt(30, models.Interval30s),
	}
	sortCandlesByTime(out)
	for i := 1; i < len(out); i++ {
		if !out[i-1].Time.Before(out[i].Time) {
			t.Fatalf("not sorted at %d", i)
		}
	}
}

func TestLastClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	if _, ok, _ := s.LastClose(ctx, "BTC"); ok {
		t.Fatal("empty history must report no last close")
	}
	s.Append(ctx, "BTC", candleAt(0, models.Interval30s))
	price, ok, err := s.LastClose(ctx, "BTC")
	if err != nil || !ok {
		t.Fatalf("last close: ok=%v err=%v", ok, err)
	}
	if price != 100.5 {
		t.Errorf("last close: got %v, want 100.5", price)
	}
}

func TestAppendUpdatesInstrumentLastPrice(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	s.Create(ctx, testInstrument("BTC"))
	s.Append(ctx, "BTC", candleAt(0, models.Interval30s))
	inst, _ := s.Get(ctx, "BTC")
	if inst.LastPrice != 100.5 {
		t.Errorf("last price: got %v, want 100.5", inst.LastPrice)
	}
	if inst.LastUpdated.IsZero() {
		t.Error("last updated not stamped")
	}
}

func TestMemoryTrendLog(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryTrendLog()

	mode, err := l.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if mode != models.TrendNormal {
		t.Errorf("empty log default: got %v, want normal", mode)
	}

	l.Append(ctx, models.TrendRecord{Mode: models.TrendUp, UpdatedAt: time.Now()})
	l.Append(ctx, models.TrendRecord{Mode: models.TrendScenario2, UpdatedAt: time.Now()})
	mode, _ = l.Current(ctx)
	if mode != models.TrendScenario2 {
		t.Errorf("current: got %v, want scenario2", mode)
	}
	if l.Size() != 2 {
		t.Errorf("log size: got %d, want 2", l.Size())
	}
}
