package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"CoinPulse/internal/domain/models"
	domsvc "CoinPulse/internal/domain/service"
	"CoinPulse/internal/repository"
	"CoinPulse/pkg/logger"
)

// stubGen returns a fixed delta so candle arithmetic is exact.
type stubGen struct {
	delta  float64
	chance bool
	jitter float64
}

func (g *stubGen) Next(mode models.TrendMode, scen models.ScenarioState, vol models.VolatilityState) (float64, models.ScenarioState, models.VolatilityState) {
	scen.Counter++
	return g.delta, scen, vol
}
func (g *stubGen) SetupVolatility() models.VolatilityState { return models.VolatilityState{Base: 1} }
func (g *stubGen) WickJitter() float64                     { return g.jitter }
func (g *stubGen) Chance(p float64) bool                   { return g.chance }

type fakeSink struct {
	mu      sync.Mutex
	prices  []models.PriceEvent
	candles []models.CandleEvent
}

func (s *fakeSink) PublishPrice(ctx context.Context, ev models.PriceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = append(s.prices, ev)
	return nil
}
func (s *fakeSink) PublishCandle(ctx context.Context, ev models.CandleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candles = append(s.candles, ev)
	return nil
}
func (s *fakeSink) Close() error { return nil }

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{counts: make(map[string]int)} }

func (m *fakeMetrics) bump(k string) {
	m.mu.Lock()
	m.counts[k]++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordCandleGenerated(symbol, interval string) { m.bump("candle") }
func (m *fakeMetrics) RecordError(kind string)                      { m.bump("err_" + kind) }
func (m *fakeMetrics) RecordLastPrice(symbol string, price float64) { m.bump("price") }
func (m *fakeMetrics) RecordTickLatency(seconds float64)            { m.bump("latency") }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testEngine(t *testing.T, gen *stubGen) (*Engine, *repository.MemoryStore, *fakeSink) {
	t.Helper()
	store := repository.NewMemoryStore(500)
	sink := &fakeSink{}
	e := NewEngine(
		store, store, repository.NewMemoryTrendLog(), sink,
		newFakeMetrics(), testLogger(t),
		func(seed int64) domsvc.PathGenerator { return gen },
		EngineConfig{ReanchorProbability: 0.10},
	)
	return e, store, sink
}

func otcInstrument(symbol string) *models.Instrument {
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

func activeRunner(t *testing.T, e *Engine, symbol string) *runner {
	t.Helper()
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.runners[symbol]
	if !ok {
		t.Fatalf("no runner for %s", symbol)
	}
	return r
}

// haltRunner stops the runner's loop so the test is the only goroutine
// touching its state and queued reset signals stay queued.
func haltRunner(t *testing.T, r *runner) {
	t.Helper()
	close(r.done)
	<-r.stopped
}

func TestAddGeneratesFirstCandleImmediately(t *testing.T) {
	ctx := context.Background()
	gen := &stubGen{delta: 0.15}
	e, store, sink := testEngine(t, gen)
	e.pipe.Start(ctx)
	defer e.pipe.Stop()

	if err := e.Add(ctx, otcInstrument("BTC")); err != nil {
		t.Fatalf("add: %v", err)
	}

	candles, _ := store.Query(ctx, "BTC", models.Interval30s, 0)
	if len(candles) != 1 {
		t.Fatalf("candle count: %d", len(candles))
	}
	c := candles[0]
	if c.Open != 100 {
		t.Errorf("open: got %v, want 100 (base price)", c.Open)
	}
	if c.Close != 115 {
		t.Errorf("close: got %v, want 115", c.Close)
	}
	if c.High < c.Close || c.Low > c.Open {
		t.Errorf("wick invariant broken: %+v", c)
	}
	if len(sink.prices) != 1 || len(sink.candles) != 1 {
		t.Errorf("events: %d prices, %d candles", len(sink.prices), len(sink.candles))
	}
	if sink.prices[0].Price != 115 {
		t.Errorf("price event: got %v", sink.prices[0].Price)
	}
}

func TestTickChainsFromPreviousClose(t *testing.T) {
	ctx := context.Background()
	gen := &stubGen{delta: 0.10}
	e, store, _ := testEngine(t, gen)
	e.pipe.Start(ctx)
	defer e.pipe.Stop()

	e.Add(ctx, otcInstrument("BTC")) // first candle generated here
	r := activeRunner(t, e, "BTC")

	e.tick(ctx, r, time.Now().Add(30*time.Second))

	candles, _ := store.Query(ctx, "BTC", models.Interval30s, 0)
	if len(candles) != 2 {
		t.Fatalf("candle count: %d", len(candles))
	}
	if candles[1].Open != candles[0].Close {
		t.Errorf("second open %v must equal first close %v", candles[1].Open, candles[0].Close)
	}
}

func TestReanchorMovesBaseToLatestClose(t *testing.T) {
	ctx := context.Background()
	gen := &stubGen{delta: 0}
	e, _, _ := testEngine(t, gen)
	e.pipe.Start(ctx)
	defer e.pipe.Stop()

	e.Add(ctx, otcInstrument("BTC"))
	r := activeRunner(t, e, "BTC")
	r.lastClose = 5000 // drifted far from base
	gen.chance = true

	e.tick(ctx, r, time.Now().Add(30*time.Second))

	if r.basePrice != 5000 {
		t.Errorf("base price: got %v, want re-anchored close 5000", r.basePrice)
	}
}

func TestCandleTimesAlignedAndStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	gen := &stubGen{delta: 0.01}
	e, store, _ := testEngine(t, gen)
	e.pipe.Start(ctx)
	defer e.pipe.Stop()

	e.Add(ctx, otcInstrument("BTC")) // first candle at the current bucket
	r := activeRunner(t, e, "BTC")

	// Deliberately unaligned tick times; the candles must still land on
	// interval boundaries.
	base := time.Now().Add(time.Minute)
	e.tick(ctx, r, base.Add(7*time.Second))
	e.tick(ctx, r, base.Add(37*time.Second))
	e.tick(ctx, r, base.Add(67*time.Second))

	candles, _ := store.Query(ctx, "BTC", models.Interval30s, 0)
	if len(candles) != 4 {
		t.Fatalf("candle count: %d", len(candles))
	}
	step := models.Interval30s.Duration()
	for i, c := range candles {
		if !c.Time.Equal(c.Time.Truncate(step)) {
			t.Errorf("candle %d time %v not aligned to %v", i, c.Time, step)
		}
		if i > 0 && !candles[i-1].Time.Before(c.Time) {
			t.Errorf("times not strictly increasing: %v then %v", candles[i-1].Time, c.Time)
		}
	}
}

func TestTrendChangeZeroesScenarioOnNextTick(t *testing.T) {
	ctx := context.Background()
	e, _, sink := testEngine(t, &stubGen{})
	e.pipe.Start(ctx)
	defer e.pipe.Stop()

	e.Add(ctx, otcInstrument("BTC")) // immediate candle, counter 1
	r := activeRunner(t, e, "BTC")
	haltRunner(t, r)
	e.tick(ctx, r, time.Now().Add(30*time.Second))
	if r.scen.Counter != 2 {
		t.Fatalf("precondition: counter %d", r.scen.Counter)
	}

	e.ApplyTrend(ctx, models.TrendScenario2)

	// The queued reset must be consumed before the candle is generated, so
	// the generator sees a zero state and advances it to exactly 1.
	e.tick(ctx, r, time.Now().Add(60*time.Second))
	if r.scen.Counter != 1 {
		t.Errorf("counter after reset tick: got %d, want 1", r.scen.Counter)
	}
	last := sink.prices[len(sink.prices)-1]
	if last.ScenarioCounter != 1 {
		t.Errorf("published counter: got %d, want 1", last.ScenarioCounter)
	}
}

func TestCloseNeverBelowFloor(t *testing.T) {
	ctx := context.Background()
	gen := &stubGen{delta: -1.5} // would drive price negative
	e, store, _ := testEngine(t, gen)
	e.pipe.Start(ctx)
	defer e.pipe.Stop()

	e.Add(ctx, otcInstrument("BTC"))

	candles, _ := store.Query(ctx, "BTC", models.Interval30s, 0)
	if len(candles) != 1 || candles[0].Close <= 0 {
		t.Errorf("close went non-positive: %+v", candles)
	}
}

func TestStartSkipsLiveInstruments(t *testing.T) {
	ctx := context.Background()
	gen := &stubGen{}
	e, store, _ := testEngine(t, gen)

	store.Create(ctx, otcInstrument("BTC"))
	live := otcInstrument("AAPL")
	live.Kind = models.KindLive
	store.Create(ctx, live)

	if err := e.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.Stop()

	if e.RunnerCount() != 1 {
		t.Errorf("runner count: got %d, want 1", e.RunnerCount())
	}
}

func TestRemoveStopsRunnerSynchronously(t *testing.T) {
	ctx := context.Background()
	e, store, _ := testEngine(t, &stubGen{})
	e.pipe.Start(ctx)
	defer e.pipe.Stop()

	e.Add(ctx, otcInstrument("BTC"))
	if e.RunnerCount() != 1 {
		t.Fatalf("runner not started")
	}

	if err := e.Remove(ctx, "BTC"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if e.RunnerCount() != 0 {
		t.Error("runner still tracked after remove")
	}
	if inst, _ := store.Get(ctx, "BTC"); inst != nil {
		t.Error("instrument survived remove")
	}
	if n := store.Len("BTC"); n != 0 {
		t.Errorf("history survived remove: %d candles", n)
	}
}

func TestUpdateIntervalRestartsRunner(t *testing.T) {
	ctx := context.Background()
	e, store, _ := testEngine(t, &stubGen{})
	e.pipe.Start(ctx)
	defer e.pipe.Stop()

	e.Add(ctx, otcInstrument("BTC"))
	if err := e.UpdateInterval(ctx, "BTC", models.Interval1m); err != nil {
		t.Fatalf("update interval: %v", err)
	}

	inst, _ := store.Get(ctx, "BTC")
	if inst.SelectedInterval != models.Interval1m {
		t.Errorf("interval not persisted: %v", inst.SelectedInterval)
	}
	r := activeRunner(t, e, "BTC")
	if r.interval != models.Interval1m {
		t.Errorf("runner interval: %v", r.interval)
	}
	candles, _ := store.Query(ctx, "BTC", models.Interval1m, 0)
	if len(candles) != 1 {
		t.Errorf("expected an immediate candle at the new interval, got %d", len(candles))
	}
}

func TestUpdateIntervalRejectsUnknown(t *testing.T) {
	ctx := context.Background()
	e, _, _ := testEngine(t, &stubGen{})
	e.Add(ctx, otcInstrument("BTC"))
	if err := e.UpdateInterval(ctx, "BTC", "7m"); err == nil {
		t.Fatal("unknown interval must be rejected")
	}
}

func TestStartRunnerReplacesExistingHandle(t *testing.T) {
	ctx := context.Background()
	e, store, _ := testEngine(t, &stubGen{})
	e.pipe.Start(ctx)
	defer e.pipe.Stop()

	e.Add(ctx, otcInstrument("BTC"))
	first := activeRunner(t, e, "BTC")

	inst, _ := store.Get(ctx, "BTC")
	e.startRunner(ctx, *inst, false)

	if e.RunnerCount() != 1 {
		t.Fatalf("runner count: got %d, want 1", e.RunnerCount())
	}
	select {
	case <-first.stopped:
	default:
		t.Error("replaced runner still live")
	}
	if activeRunner(t, e, "BTC") == first {
		t.Error("runner handle was not replaced")
	}
}

func TestApplyTrendResetsScenarioState(t *testing.T) {
	ctx := context.Background()
	e, store, _ := testEngine(t, &stubGen{})
	e.Add(ctx, otcInstrument("BTC"))
	r := activeRunner(t, e, "BTC")
	haltRunner(t, r)

	e.ApplyTrend(ctx, models.TrendScenario2)

	select {
	case <-r.reset:
	default:
		t.Fatal("runner did not receive scenario reset")
	}
	if e.CurrentTrend() != models.TrendScenario2 {
		t.Errorf("current trend: %v", e.CurrentTrend())
	}
	inst, _ := store.Get(ctx, "BTC")
	if inst.CurrentTrend != models.TrendScenario2 {
		t.Errorf("registry row not stamped: %v", inst.CurrentTrend)
	}
}

func TestApplyTrendSameModeIsNoop(t *testing.T) {
	ctx := context.Background()
	e, _, _ := testEngine(t, &stubGen{})
	e.Add(ctx, otcInstrument("BTC"))
	r := activeRunner(t, e, "BTC")
	haltRunner(t, r)

	e.ApplyTrend(ctx, models.TrendNormal) // already the default

	select {
	case <-r.reset:
		t.Fatal("unchanged trend must not reset scenario state")
	default:
	}
}
