package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
)

// MemoryStore implements InstrumentRegistry and CandleHistory in process
// memory. It is the authoritative backend for tests and the default when no
// Redis is configured; the candle cap gives it ring-buffer semantics.
type MemoryStore struct {
	mu      sync.RWMutex
	cap     int
	insts   map[string]models.Instrument
	candles map[string][]models.Candle
}

// NewMemoryStore creates a store with the given per-instrument candle cap.
func NewMemoryStore(candleCap int) *MemoryStore {
	if candleCap <= 0 {
		candleCap = 500
	}
	return &MemoryStore{
		cap:     candleCap,
		insts:   make(map[string]models.Instrument),
		candles: make(map[string][]models.Candle),
	}
}

var (
	_ domrepo.InstrumentRegistry = (*MemoryStore)(nil)
	_ domrepo.CandleHistory      = (*MemoryStore)(nil)
)

func (s *MemoryStore) List(ctx context.Context) ([]models.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Instrument, 0, len(s.insts))
	for _, inst := range s.insts {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, symbol string) (*models.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.insts[symbol]
	if !ok {
		return nil, nil
	}
	cp := inst
	return &cp, nil
}

func (s *MemoryStore) Create(ctx context.Context, inst *models.Instrument) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.insts[inst.Symbol]; exists {
		return fmt.Errorf("instrument %q already exists", inst.Symbol)
	}
	s.insts[inst.Symbol] = *inst
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, inst *models.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.insts[inst.Symbol]; !exists {
		return fmt.Errorf("instrument %q not found", inst.Symbol)
	}
	s.insts[inst.Symbol] = *inst
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.insts, symbol)
	delete(s.candles, symbol)
	return nil
}

// Append pushes a candle and evicts from the head once the cap is exceeded.
func (s *MemoryStore) Append(ctx context.Context, symbol string, c models.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.candles[symbol], c)
	if len(list) > s.cap {
		list = list[len(list)-s.cap:]
	}
	s.candles[symbol] = list

	if inst, ok := s.insts[symbol]; ok {
		inst.LastPrice = c.Close
		inst.LastUpdated = time.Now().UTC()
		s.insts[symbol] = inst
	}
	return nil
}

func (s *MemoryStore) LastClose(ctx context.Context, symbol string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.candles[symbol]
	if len(list) == 0 {
		return 0, false, nil
	}
	return list[len(list)-1].Close, true, nil
}

func (s *MemoryStore) Query(ctx context.Context, symbol string, iv models.Interval, limit int) ([]models.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Candle
	for _, c := range s.candles[symbol] {
		if c.Interval == iv {
			out = append(out, c)
		}
	}
	sortCandlesByTime(out)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *MemoryStore) Purge(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.candles, symbol)
	return nil
}

// Len reports the current history length for a symbol (test helper).
func (s *MemoryStore) Len(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candles[symbol])
}

// sortCandlesByTime orders candles ascending by bucket time. Every
// CandleHistory Query goes through this so out-of-order writes (late pipeline
// retries) never leak into chart responses.
func sortCandlesByTime(candles []models.Candle) {
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
}

// MemoryTrendLog is the in-process TrendLog used for tests and
// clickhouse-less deployments.
type MemoryTrendLog struct {
	mu   sync.RWMutex
	recs []models.TrendRecord
}

func NewMemoryTrendLog() *MemoryTrendLog { return &MemoryTrendLog{} }

var _ domrepo.TrendLog = (*MemoryTrendLog)(nil)

func (l *MemoryTrendLog) Append(ctx context.Context, rec models.TrendRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs = append(l.recs, rec)
	return nil
}

func (l *MemoryTrendLog) Current(ctx context.Context) (models.TrendMode, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.recs) == 0 {
		return models.DefaultTrend(), nil
	}
	return l.recs[len(l.recs)-1].Mode, nil
}

// Size reports the number of records (test helper).
func (l *MemoryTrendLog) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.recs)
}
