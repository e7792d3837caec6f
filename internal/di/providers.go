package di

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	domsvc "CoinPulse/internal/domain/service"
	"CoinPulse/internal/handler/api"
	internalrepo "CoinPulse/internal/repository"
	icache "CoinPulse/internal/service/cache"
	"CoinPulse/internal/service/hub"
	"CoinPulse/internal/service/ratelimit"
	"CoinPulse/internal/services/pricing"
	"CoinPulse/internal/usecase"
	pkgcache "CoinPulse/pkg/cache"
	pkgch "CoinPulse/pkg/clickhouse"
	"CoinPulse/pkg/config"
	xhttp "CoinPulse/pkg/http"
	pkgkafka "CoinPulse/pkg/kafka"
	applogger "CoinPulse/pkg/logger"
	"CoinPulse/pkg/metrics"
	"CoinPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideStores selects the registry/history backend. The Redis store keeps
// instruments and capped candle lists across restarts; memory is the default.
func ProvideStores(cfg *config.Config) (domrepo.InstrumentRegistry, domrepo.CandleHistory, error) {
	if cfg.Storage.Backend != "redis" {
		store := internalrepo.NewMemoryStore(cfg.Engine.HistoryCap)
		return store, store, nil
	}

	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	store := internalrepo.NewRedisStore(rc.Client(), cfg.Redis.Prefix, cfg.Engine.HistoryCap)
	return store, store, nil
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTrendLog builds the trend audit trail on ClickHouse when available,
// in memory otherwise.
func ProvideTrendLog(chClient *pkgch.Client) (domrepo.TrendLog, error) {
	if chClient == nil {
		return internalrepo.NewMemoryTrendLog(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tl, err := internalrepo.NewClickHouseTrendLog(ctx, chClient)
	if err != nil {
		return nil, fmt.Errorf("trend log: %w", err)
	}
	return tl, nil
}

// ProvideArchive builds the long-term candle archive, or nil without
// ClickHouse.
func ProvideArchive(chClient *pkgch.Client) (domrepo.CandleArchive, error) {
	if chClient == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a, err := internalrepo.NewClickHouseCandleArchive(ctx, chClient, 1024)
	if err != nil {
		return nil, fmt.Errorf("candle archive: %w", err)
	}
	return a, nil
}

// ProvideHub creates the WebSocket broadcast hub.
func ProvideHub(log *applogger.Logger) *hub.Hub {
	return hub.New(log)
}

// ProvideSink combines the hub with an optional Kafka firehose. When Kafka is
// on, aggregated error logs are shipped there too.
func ProvideSink(cfg *config.Config, log *applogger.Logger, h *hub.Hub) (domrepo.EventSink, error) {
	if !cfg.Kafka.Enabled {
		return h, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	ks := internalrepo.NewKafkaSink(producer, cfg.Kafka.PriceTopic, cfg.Kafka.CandleTopic)
	log.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          "coinpulse.logs",
		Publisher:      internalrepo.NewLogPublisher(producer),
	})
	return internalrepo.NewMultiSink(h, ks), nil
}

// ProvideGeneratorFactory builds one rng-backed generator per runner.
func ProvideGeneratorFactory() usecase.GeneratorFactory {
	return func(seed int64) domsvc.PathGenerator {
		return pricing.New(seed)
	}
}

// ProvideEngine assembles the candle engine and seeds configured instruments.
func ProvideEngine(
	cfg *config.Config,
	log *applogger.Logger,
	registry domrepo.InstrumentRegistry,
	history domrepo.CandleHistory,
	trendLog domrepo.TrendLog,
	sink domrepo.EventSink,
	archive domrepo.CandleArchive,
	mtr domrepo.Metrics,
	newGen usecase.GeneratorFactory,
	h *hub.Hub,
) (*usecase.Engine, error) {
	opts := []usecase.EngineOption{usecase.WithAnnouncer(h)}
	if archive != nil {
		opts = append(opts, usecase.WithArchive(archive))
	}
	engine := usecase.NewEngine(
		registry, history, trendLog, sink, mtr, log, newGen,
		usecase.EngineConfig{
			SweepInterval:       cfg.Engine.SweepInterval,
			ReanchorProbability: cfg.Engine.ReanchorProbability,
			Seed:                cfg.Engine.Seed,
		},
		opts...,
	)

	if err := seedInstruments(cfg, log, registry); err != nil {
		return nil, err
	}
	return engine, nil
}

// seedInstruments creates configured instruments unless they already exist.
func seedInstruments(cfg *config.Config, log *applogger.Logger, registry domrepo.InstrumentRegistry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, seed := range cfg.Instruments {
		existing, err := registry.Get(ctx, seed.Symbol)
		if err != nil {
			return fmt.Errorf("seed lookup %s: %w", seed.Symbol, err)
		}
		if existing != nil {
			continue
		}
		kind := models.InstrumentKind(seed.Kind)
		if kind == "" {
			kind = models.KindOTC
		}
		iv := models.NormalizeInterval(seed.Interval)
		inst := &models.Instrument{
			Symbol:           seed.Symbol,
			Kind:             kind,
			BasePrice:        seed.BasePrice,
			PayoutPercentage: seed.PayoutPercentage,
			SelectedInterval: iv,
			CurrentTrend:     models.DefaultTrend(),
			CurrentDuration:  iv,
		}
		if err := registry.Create(ctx, inst); err != nil {
			return fmt.Errorf("seed instrument %s: %w", seed.Symbol, err)
		}
		log.Info("seeded instrument", applogger.String("symbol", seed.Symbol))
	}
	return nil
}

// ProvideHandler bundles every route group into a single registrar.
func ProvideHandler(
	log *applogger.Logger,
	registry domrepo.InstrumentRegistry,
	history domrepo.CandleHistory,
	engine *usecase.Engine,
	trendLog domrepo.TrendLog,
	h *hub.Hub,
) xhttp.Handler {
	chart := usecase.NewChartUseCase(registry, history, icache.NewTTLCache())
	insts := usecase.NewInstrumentsUseCase(registry, engine)
	trend := usecase.NewTrendUseCase(log, trendLog, engine)

	return &routes{
		hub: h,
		handlers: []xhttp.Handler{
			api.NewCoinsHandler(log, insts, chart),
			api.NewTrendHandler(log, trend, ratelimit.New()),
			api.NewWSHandler(log, h),
		},
	}
}

type routes struct {
	hub      *hub.Hub
	handlers []xhttp.Handler
}

func (r *routes) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":     "ok",
			"ws_clients": r.hub.ClientCount(),
		})
	})
}

// ProvideApp creates the application server and registers infrastructure
// handles for shutdown.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	engine *usecase.Engine,
	handler xhttp.Handler,
	sink domrepo.EventSink,
	archive domrepo.CandleArchive,
	chClient *pkgch.Client,
) *server.App {
	app := server.New(cfg, log, engine, handler)
	app.AddCloser(sink)
	if archive != nil {
		app.AddCloser(archive)
	}
	if chClient != nil {
		app.AddCloser(chClient)
	}
	return app
}
