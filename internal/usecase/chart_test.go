package usecase

import (
	"context"
	"testing"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/repository"
	"CoinPulse/internal/service/cache"
)

func seedChart(t *testing.T, store *repository.MemoryStore, symbol string, n int) {
	t.Helper()
	ctx := context.Background()
	if err := store.Create(ctx, otcInstrument(symbol)); err != nil {
		t.Fatalf("create: %v", err)
	}
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := models.NewCandle(base.Add(time.Duration(i)*30*time.Second), 100, 101, 99, 100.5, models.Interval30s)
		if err := store.Append(ctx, symbol, c); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

func TestGetChartReturnsHistory(t *testing.T) {
	store := repository.NewMemoryStore(500)
	seedChart(t, store, "BTC", 10)
	uc := NewChartUseCase(store, store, cache.NewTTLCache())

	res, err := uc.GetChart(context.Background(), GetChartParams{CoinName: "BTC"})
	if err != nil {
		t.Fatalf("get chart: %v", err)
	}
	if res.Count != 10 || len(res.Candles) != 10 {
		t.Errorf("count: %d candles %d", res.Count, len(res.Candles))
	}
	if res.Interval != string(models.Interval30s) {
		t.Errorf("interval defaulted wrong: %s", res.Interval)
	}
}

func TestGetChartHonorsLimit(t *testing.T) {
	store := repository.NewMemoryStore(500)
	seedChart(t, store, "BTC", 20)
	uc := NewChartUseCase(store, store, nil)

	res, err := uc.GetChart(context.Background(), GetChartParams{CoinName: "BTC", Limit: 5})
	if err != nil {
		t.Fatalf("get chart: %v", err)
	}
	if len(res.Candles) != 5 {
		t.Fatalf("limit ignored: %d", len(res.Candles))
	}
	// Limit keeps the newest candles.
	last := res.Candles[len(res.Candles)-1]
	if !last.Time.Equal(time.Date(2026, 8, 1, 0, 9, 30, 0, time.UTC)) {
		t.Errorf("newest candle: %v", last.Time)
	}
}

func TestGetChartUnknownInstrument(t *testing.T) {
	store := repository.NewMemoryStore(500)
	uc := NewChartUseCase(store, store, nil)
	if _, err := uc.GetChart(context.Background(), GetChartParams{CoinName: "NOPE"}); err == nil {
		t.Fatal("unknown instrument must error")
	}
}

func TestGetChartServesFromCache(t *testing.T) {
	store := repository.NewMemoryStore(500)
	seedChart(t, store, "BTC", 3)
	uc := NewChartUseCase(store, store, cache.NewTTLCache())

	ctx := context.Background()
	first, err := uc.GetChart(ctx, GetChartParams{CoinName: "BTC"})
	if err != nil {
		t.Fatalf("get chart: %v", err)
	}

	// New candles after the cached response are invisible until the TTL
	// expires.
	c := models.NewCandle(time.Now(), 100, 101, 99, 100.5, models.Interval30s)
	store.Append(ctx, "BTC", c)

	second, err := uc.GetChart(ctx, GetChartParams{CoinName: "BTC"})
	if err != nil {
		t.Fatalf("get chart: %v", err)
	}
	if second.Count != first.Count {
		t.Errorf("cache bypassed: %d vs %d", second.Count, first.Count)
	}
}
