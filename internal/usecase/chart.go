package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	"CoinPulse/internal/service/cache"
	"CoinPulse/pkg/util"
)

const chartCacheTTL = 1 * time.Second

// ChartUseCase serves candle history for charting. Responses are cached for
// one tick-ish TTL so polling frontends don't hammer the store.
type ChartUseCase struct {
	registry domrepo.InstrumentRegistry
	history  domrepo.CandleHistory
	cache    cache.BytesCache
}

func NewChartUseCase(registry domrepo.InstrumentRegistry, history domrepo.CandleHistory, c cache.BytesCache) *ChartUseCase {
	return &ChartUseCase{registry: registry, history: history, cache: c}
}

type GetChartParams struct {
	CoinName string
	Interval string
	Limit    int
	// From/To optionally bound the window; RFC3339 or unix seconds.
	From string
	To   string
}

type ChartResult struct {
	CoinName string          `json:"coinName"`
	Interval string          `json:"currentDuration"`
	Trend    string          `json:"currentTrend"`
	Count    int             `json:"count"`
	Candles  []models.Candle `json:"candles"`
}

// GetChart returns up to limit candles for the instrument at the requested
// interval, defaulting to the instrument's selected interval.
func (uc *ChartUseCase) GetChart(ctx context.Context, p GetChartParams) (*ChartResult, error) {
	if p.CoinName == "" {
		return nil, fmt.Errorf("coinName required")
	}
	if p.Limit <= 0 || p.Limit > 500 {
		p.Limit = 500
	}

	inst, err := uc.registry.Get(ctx, p.CoinName)
	if err != nil {
		return nil, fmt.Errorf("get instrument: %w", err)
	}
	if inst == nil {
		return nil, fmt.Errorf("instrument %q not found", p.CoinName)
	}

	iv := inst.SelectedInterval
	if p.Interval != "" {
		iv = models.NormalizeInterval(p.Interval)
	}

	key := fmt.Sprintf("chart:%s:%s:%d:%s:%s", p.CoinName, iv, p.Limit, p.From, p.To)
	if uc.cache != nil {
		if b, ok, _ := uc.cache.GetBytes(key); ok {
			var cached ChartResult
			if json.Unmarshal(b, &cached) == nil {
				return &cached, nil
			}
		}
	}

	candles, err := uc.history.Query(ctx, p.CoinName, iv, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	candles = filterWindow(candles, p.From, p.To, string(iv))

	res := &ChartResult{
		CoinName: p.CoinName,
		Interval: string(iv),
		Trend:    string(inst.CurrentTrend),
		Count:    len(candles),
		Candles:  candles,
	}
	if uc.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			_ = uc.cache.SetBytes(key, b, chartCacheTTL)
		}
	}
	return res, nil
}

// filterWindow drops candles outside the optional [from, to] range, aligned
// to interval boundaries.
func filterWindow(candles []models.Candle, fromRaw, toRaw, interval string) []models.Candle {
	from, okFrom := util.ParseTime(fromRaw)
	to, okTo := util.ParseTime(toRaw)
	if !okFrom && !okTo {
		return candles
	}
	if okFrom && okTo {
		from, to = util.AlignFromTo(from, to, interval)
	}
	out := candles[:0]
	for _, c := range candles {
		if okFrom && c.Time.Before(from) {
			continue
		}
		if okTo && c.Time.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out
}
