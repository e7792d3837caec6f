package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	domsvc "CoinPulse/internal/domain/service"
	mid "CoinPulse/internal/middleware"
	"CoinPulse/pkg/logger"
)

// minPrice is the hard floor a close can never cross.
const minPrice = 1e-6

// TrendAnnouncer pushes global trend switches to live clients.
type TrendAnnouncer interface {
	BroadcastTrend(mode models.TrendMode)
}

// GeneratorFactory builds one PathGenerator per instrument runner so rng
// state is never shared across goroutines.
type GeneratorFactory func(seed int64) domsvc.PathGenerator

// EngineConfig tunes the candle engine.
type EngineConfig struct {
	// SweepInterval is the cadence at which the engine polls the trend log
	// for operator changes.
	SweepInterval time.Duration
	// ReanchorProbability is the per-tick chance that the instrument's cached
	// base price is moved to the latest close, keeping restart opens near the
	// walked price.
	ReanchorProbability float64
	// Seed fixes the rng for every runner; zero means time-seeded.
	Seed int64
}

func (c *EngineConfig) withDefaults() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = 5 * time.Second
	}
	if c.ReanchorProbability < 0 || c.ReanchorProbability >= 1 {
		c.ReanchorProbability = 0.10
	}
}

// Engine owns one generation goroutine per instrument. Each runner produces a
// candle every SelectedInterval, persists it through the pipeline, and
// publishes to the event sink. The shared trend regime is read on every tick.
type Engine struct {
	registry domrepo.InstrumentRegistry
	history  domrepo.CandleHistory
	trendLog domrepo.TrendLog
	sink     domrepo.EventSink
	archive  domrepo.CandleArchive
	pipe     *mid.PersistPipeline
	metrics  domrepo.Metrics
	log      *logger.Logger
	newGen   GeneratorFactory
	announce TrendAnnouncer
	cfg      EngineConfig

	mu      sync.RWMutex
	runners map[string]*runner
	trend   models.TrendMode
	started bool

	wg     sync.WaitGroup
	stopCh chan struct{}
}

type EngineOption func(*Engine)

// WithArchive attaches the long-term candle archive.
func WithArchive(a domrepo.CandleArchive) EngineOption {
	return func(e *Engine) { e.archive = a }
}

// WithAnnouncer attaches the live trend broadcaster.
func WithAnnouncer(a TrendAnnouncer) EngineOption {
	return func(e *Engine) { e.announce = a }
}

// NewEngine creates the engine. The persistence pipeline is built internally
// so buffered retries go through the same path as direct writes.
func NewEngine(
	registry domrepo.InstrumentRegistry,
	history domrepo.CandleHistory,
	trendLog domrepo.TrendLog,
	sink domrepo.EventSink,
	metrics domrepo.Metrics,
	log *logger.Logger,
	newGen GeneratorFactory,
	cfg EngineConfig,
	opts ...EngineOption,
) *Engine {
	cfg.withDefaults()
	e := &Engine{
		registry: registry,
		history:  history,
		trendLog: trendLog,
		sink:     sink,
		metrics:  metrics,
		log:      log,
		newGen:   newGen,
		cfg:      cfg,
		runners:  make(map[string]*runner),
		trend:    models.DefaultTrend(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.pipe = mid.NewPersistPipeline(e, metrics)
	return e
}

// Persist writes a candle to the capped history and, best effort, to the
// archive. It is called by the pipeline on both the direct and retry paths.
func (e *Engine) Persist(ctx context.Context, symbol string, c models.Candle) error {
	if err := e.history.Append(ctx, symbol, c); err != nil {
		return err
	}
	if e.archive != nil {
		if err := e.archive.Store(ctx, symbol, c); err != nil {
			e.metrics.RecordError("archive")
		}
	}
	return nil
}

// Start loads the current trend, spins up a runner per registered instrument
// and begins the trend sweep.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("engine already started")
	}
	e.started = true
	e.mu.Unlock()

	mode, err := e.trendLog.Current(ctx)
	if err != nil {
		e.log.Warn("trend load failed, using default", logger.Error(err))
		mode = models.DefaultTrend()
	}
	e.mu.Lock()
	e.trend = mode
	e.mu.Unlock()

	insts, err := e.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("list instruments: %w", err)
	}

	e.pipe.Start(ctx)
	for i := range insts {
		if insts[i].Kind == models.KindLive {
			continue
		}
		e.startRunner(ctx, insts[i], false)
	}

	e.wg.Add(1)
	go e.sweepTrend(ctx)

	e.log.Info("engine started",
		logger.Int("instruments", len(insts)),
		logger.String("trend", string(mode)))
	return nil
}

// Stop cancels all runners and waits for them to drain.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	for sym, r := range e.runners {
		close(r.done)
		delete(e.runners, sym)
	}
	close(e.stopCh)
	e.mu.Unlock()

	e.wg.Wait()
	e.pipe.Stop()
}

// Add registers an instrument and starts generating for it immediately.
func (e *Engine) Add(ctx context.Context, inst *models.Instrument) error {
	if inst.SelectedInterval == "" {
		inst.SelectedInterval = models.DefaultInterval()
	}
	if inst.CurrentDuration == "" {
		inst.CurrentDuration = inst.SelectedInterval
	}
	if inst.CurrentTrend == "" {
		inst.CurrentTrend = e.CurrentTrend()
	}
	if err := e.registry.Create(ctx, inst); err != nil {
		return err
	}
	if inst.Generated() {
		e.startRunner(ctx, *inst, true)
	}
	e.log.Info("instrument added",
		logger.String("symbol", inst.Symbol),
		logger.String("interval", string(inst.SelectedInterval)))
	return nil
}

// Remove stops the runner synchronously, then deletes the instrument and its
// history. No candle for the symbol is generated after Remove returns.
func (e *Engine) Remove(ctx context.Context, symbol string) error {
	e.mu.Lock()
	r, ok := e.runners[symbol]
	if ok {
		close(r.done)
		delete(e.runners, symbol)
	}
	e.mu.Unlock()
	if ok {
		<-r.stopped
	}

	if err := e.registry.Delete(ctx, symbol); err != nil {
		return fmt.Errorf("delete instrument: %w", err)
	}
	if err := e.history.Purge(ctx, symbol); err != nil {
		return fmt.Errorf("purge history: %w", err)
	}
	e.log.Info("instrument removed", logger.String("symbol", symbol))
	return nil
}

// UpdateInterval switches an instrument's candle cadence. The runner restarts
// with the new interval; price continuity is preserved via the stored history.
func (e *Engine) UpdateInterval(ctx context.Context, symbol string, iv models.Interval) error {
	inst, err := e.registry.Get(ctx, symbol)
	if err != nil {
		return err
	}
	if inst == nil {
		return fmt.Errorf("instrument %q not found", symbol)
	}
	if !models.IsValidInterval(iv) {
		return fmt.Errorf("invalid interval %q", iv)
	}
	inst.SelectedInterval = iv
	inst.CurrentDuration = iv
	if err := e.registry.Update(ctx, inst); err != nil {
		return err
	}

	e.mu.Lock()
	r, ok := e.runners[symbol]
	if ok {
		close(r.done)
		delete(e.runners, symbol)
	}
	e.mu.Unlock()
	if ok {
		<-r.stopped
	}
	if inst.Generated() {
		e.startRunner(ctx, *inst, true)
	}
	e.log.Info("interval updated",
		logger.String("symbol", symbol),
		logger.String("interval", string(iv)))
	return nil
}

// CurrentTrend returns the regime runners are generating under right now.
func (e *Engine) CurrentTrend() models.TrendMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trend
}

// ApplyTrend switches the shared regime, batch-resets every runner's scenario
// state so patterned regimes restart from their origin, and stamps the new
// mode onto the registry rows.
func (e *Engine) ApplyTrend(ctx context.Context, mode models.TrendMode) {
	e.mu.Lock()
	changed := e.trend != mode
	e.trend = mode
	if changed {
		for _, r := range e.runners {
			select {
			case r.reset <- struct{}{}:
			default:
			}
		}
	}
	e.mu.Unlock()

	if !changed {
		return
	}

	if insts, err := e.registry.List(ctx); err == nil {
		for i := range insts {
			insts[i].CurrentTrend = mode
			if err := e.registry.Update(ctx, &insts[i]); err != nil {
				e.metrics.RecordError("trend_stamp")
			}
		}
	} else {
		e.metrics.RecordError("trend_stamp")
	}

	if e.announce != nil {
		e.announce.BroadcastTrend(mode)
	}
	e.log.Info("trend applied", logger.String("trend", string(mode)))
}

// RunnerCount reports live generation goroutines.
func (e *Engine) RunnerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.runners)
}

// sweepTrend polls the trend log so operator changes written by another
// replica (or directly to storage) still reach this engine.
func (e *Engine) sweepTrend(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-ticker.C:
			mode, err := e.trendLog.Current(ctx)
			if err != nil {
				e.metrics.RecordError("trend_sweep")
				continue
			}
			if mode != e.CurrentTrend() {
				e.ApplyTrend(ctx, mode)
			}
		}
	}
}

// runner is one instrument's generation loop state.
type runner struct {
	symbol    string
	basePrice float64
	interval  models.Interval
	gen       domsvc.PathGenerator
	scen      models.ScenarioState
	vol       models.VolatilityState
	lastClose float64
	done      chan struct{}
	stopped   chan struct{}
	reset     chan struct{}
}

// startRunner registers a runner and arms its ticker. With immediate set, one
// candle is produced before the goroutine starts so Add and interval changes
// surface a fresh candle right away instead of after a full interval.
func (e *Engine) startRunner(ctx context.Context, inst models.Instrument, immediate bool) {
	r := &runner{
		symbol:    inst.Symbol,
		basePrice: inst.BasePrice,
		interval:  inst.SelectedInterval,
		gen:       e.newGen(e.cfg.Seed),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		reset:     make(chan struct{}, 1),
	}
	r.vol = r.gen.SetupVolatility()

	if last, ok, err := e.history.LastClose(ctx, inst.Symbol); err == nil && ok {
		r.lastClose = last
	} else {
		r.lastClose = inst.BasePrice
	}

	// Replace any stale handle so a symbol never has two live tickers.
	e.mu.Lock()
	prev, replacing := e.runners[inst.Symbol]
	if replacing {
		close(prev.done)
	}
	e.runners[inst.Symbol] = r
	e.mu.Unlock()
	if replacing {
		<-prev.stopped
	}

	if immediate {
		e.tick(ctx, r, time.Now())
	}

	e.wg.Add(1)
	go e.run(ctx, r)
}

func (e *Engine) run(ctx context.Context, r *runner) {
	defer e.wg.Done()
	defer close(r.stopped)

	ticker := time.NewTicker(r.interval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-r.reset:
			r.scen = models.ScenarioState{}
		case now := <-ticker.C:
			e.tick(ctx, r, now)
		}
	}
}

// tick produces one candle for the runner.
func (e *Engine) tick(ctx context.Context, r *runner, now time.Time) {
	start := time.Now()

	// A queued scenario reset wins over a concurrently ready ticker fire, so
	// no candle is ever generated on stale scenario state.
	select {
	case <-r.reset:
		r.scen = models.ScenarioState{}
	default:
	}

	mode := e.CurrentTrend()

	open := r.lastClose
	if open <= 0 {
		open = r.basePrice
	}

	delta, scen, vol := r.gen.Next(mode, r.scen, r.vol)
	r.scen, r.vol = scen, vol

	closePx := open * (1 + delta)
	if closePx < minPrice {
		closePx = minPrice
	}
	// Occasionally re-anchor the cached base price to the latest close so a
	// restart resumes near the walked price rather than the configured one.
	if r.gen.Chance(e.cfg.ReanchorProbability) {
		r.basePrice = closePx
	}

	high := math.Max(open, closePx) * (1 + r.gen.WickJitter())
	low := math.Min(open, closePx) * (1 - r.gen.WickJitter())

	candle := models.NewCandle(now, open, high, low, closePx, r.interval)
	r.lastClose = closePx

	if err := e.pipe.Process(ctx, r.symbol, candle); err != nil {
		e.log.Warn("candle persist failed",
			logger.String("symbol", r.symbol),
			logger.Error(err))
	}

	ev := models.PriceEvent{
		CoinName:        r.symbol,
		Price:           closePx,
		Trend:           mode,
		ScenarioCounter: r.scen.Counter,
		TS:              now.UTC(),
	}
	if err := e.sink.PublishPrice(ctx, ev); err != nil {
		e.metrics.RecordError("publish_price")
	}
	cev := models.CandleEvent{CoinName: r.symbol, Interval: r.interval, Candle: candle}
	if err := e.sink.PublishCandle(ctx, cev); err != nil {
		e.metrics.RecordError("publish_candle")
	}

	e.metrics.RecordCandleGenerated(r.symbol, string(r.interval))
	e.metrics.RecordLastPrice(r.symbol, closePx)
	e.metrics.RecordTickLatency(time.Since(start).Seconds())
}
