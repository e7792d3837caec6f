package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
)

// RedisStore implements InstrumentRegistry and CandleHistory on Redis so the
// engine survives restarts. Each instrument is a hash, the symbol set is kept
// in a Redis set, and candle history is a JSON list capped with LTRIM.
type RedisStore struct {
	client *redis.Client
	prefix string
	cap    int
}

// NewRedisStore wraps an existing client. The candle cap bounds every
// per-instrument history list.
func NewRedisStore(client *redis.Client, prefix string, candleCap int) *RedisStore {
	if prefix == "" {
		prefix = "coinpulse"
	}
	if candleCap <= 0 {
		candleCap = 500
	}
	return &RedisStore{client: client, prefix: prefix, cap: candleCap}
}

var (
	_ domrepo.InstrumentRegistry = (*RedisStore)(nil)
	_ domrepo.CandleHistory      = (*RedisStore)(nil)
)

func (s *RedisStore) symbolsKey() string             { return s.prefix + ":symbols" }
func (s *RedisStore) instKey(symbol string) string   { return s.prefix + ":inst:" + symbol }
func (s *RedisStore) candleKey(symbol string) string { return s.prefix + ":candles:" + symbol }

func (s *RedisStore) List(ctx context.Context) ([]models.Instrument, error) {
	symbols, err := s.client.SMembers(ctx, s.symbolsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	out := make([]models.Instrument, 0, len(symbols))
	for _, sym := range symbols {
		inst, err := s.Get(ctx, sym)
		if err != nil {
			return nil, err
		}
		if inst != nil {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, symbol string) (*models.Instrument, error) {
	fields, err := s.client.HGetAll(ctx, s.instKey(symbol)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return instrumentFromHash(symbol, fields)
}

func (s *RedisStore) Create(ctx context.Context, inst *models.Instrument) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	added, err := s.client.SAdd(ctx, s.symbolsKey(), inst.Symbol).Result()
	if err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	if added == 0 {
		return fmt.Errorf("instrument %q already exists", inst.Symbol)
	}
	return s.writeHash(ctx, inst)
}

func (s *RedisStore) Update(ctx context.Context, inst *models.Instrument) error {
	exists, err := s.client.SIsMember(ctx, s.symbolsKey(), inst.Symbol).Result()
	if err != nil {
		return fmt.Errorf("redis sismember: %w", err)
	}
	if !exists {
		return fmt.Errorf("instrument %q not found", inst.Symbol)
	}
	return s.writeHash(ctx, inst)
}

func (s *RedisStore) Delete(ctx context.Context, symbol string) error {
	pipe := s.client.TxPipeline()
	pipe.SRem(ctx, s.symbolsKey(), symbol)
	pipe.Unlink(ctx, s.instKey(symbol), s.candleKey(symbol))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete %s: %w", symbol, err)
	}
	return nil
}

// Append pushes the candle to the head of the list and trims to the cap, so
// index 0 is always the newest candle.
func (s *RedisStore) Append(ctx context.Context, symbol string, c models.Candle) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candle: %w", err)
	}
	now := time.Now().UTC()
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.candleKey(symbol), data)
	pipe.LTrim(ctx, s.candleKey(symbol), 0, int64(s.cap-1))
	pipe.HSet(ctx, s.instKey(symbol),
		"lastPrice", c.Close,
		"lastUpdated", now.Format(time.RFC3339Nano),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append %s: %w", symbol, err)
	}
	return nil
}

func (s *RedisStore) LastClose(ctx context.Context, symbol string) (float64, bool, error) {
	data, err := s.client.LIndex(ctx, s.candleKey(symbol), 0).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis lindex: %w", err)
	}
	var c models.Candle
	if err := json.Unmarshal(data, &c); err != nil {
		return 0, false, fmt.Errorf("unmarshal candle: %w", err)
	}
	return c.Close, true, nil
}

func (s *RedisStore) Query(ctx context.Context, symbol string, iv models.Interval, limit int) ([]models.Candle, error) {
	raws, err := s.client.LRange(ctx, s.candleKey(symbol), 0, int64(s.cap-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	var out []models.Candle
	// The list is newest-first; walk backwards to return ascending time.
	for i := len(raws) - 1; i >= 0; i-- {
		var c models.Candle
		if err := json.Unmarshal([]byte(raws[i]), &c); err != nil {
			return nil, fmt.Errorf("unmarshal candle: %w", err)
		}
		if c.Interval == iv {
			out = append(out, c)
		}
	}
	// Insertion order can lag real time when the persist pipeline flushes a
	// buffered candle late, so order by candle time, not list position.
	sortCandlesByTime(out)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *RedisStore) Purge(ctx context.Context, symbol string) error {
	if err := s.client.Unlink(ctx, s.candleKey(symbol)).Err(); err != nil {
		return fmt.Errorf("redis purge %s: %w", symbol, err)
	}
	return nil
}

func (s *RedisStore) writeHash(ctx context.Context, inst *models.Instrument) error {
	err := s.client.HSet(ctx, s.instKey(inst.Symbol),
		"kind", string(inst.Kind),
		"basePrice", inst.BasePrice,
		"payoutPercentage", inst.PayoutPercentage,
		"selectedInterval", string(inst.SelectedInterval),
		"currentTrend", string(inst.CurrentTrend),
		"currentDuration", string(inst.CurrentDuration),
		"lastPrice", inst.LastPrice,
		"lastUpdated", inst.LastUpdated.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("redis hset %s: %w", inst.Symbol, err)
	}
	return nil
}

func instrumentFromHash(symbol string, fields map[string]string) (*models.Instrument, error) {
	inst := &models.Instrument{
		Symbol:           symbol,
		Kind:             models.InstrumentKind(fields["kind"]),
		SelectedInterval: models.Interval(fields["selectedInterval"]),
		CurrentTrend:     models.TrendMode(fields["currentTrend"]),
		CurrentDuration:  models.Interval(fields["currentDuration"]),
	}
	var err error
	if inst.BasePrice, err = strconv.ParseFloat(fields["basePrice"], 64); err != nil {
		return nil, fmt.Errorf("parse basePrice for %s: %w", symbol, err)
	}
	if inst.PayoutPercentage, err = strconv.ParseFloat(fields["payoutPercentage"], 64); err != nil {
		return nil, fmt.Errorf("parse payoutPercentage for %s: %w", symbol, err)
	}
	if v := fields["lastPrice"]; v != "" {
		if inst.LastPrice, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("parse lastPrice for %s: %w", symbol, err)
		}
	}
	if v := fields["lastUpdated"]; v != "" {
		if inst.LastUpdated, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("parse lastUpdated for %s: %w", symbol, err)
		}
	}
	return inst, nil
}
