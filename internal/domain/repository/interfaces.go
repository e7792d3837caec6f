package repository

import (
	"context"

	"CoinPulse/internal/domain/models"
)

// InstrumentRegistry is the durable record of tradable instruments,
// simplified CRUD over whichever backend is configured.
type InstrumentRegistry interface {
	List(ctx context.Context) ([]models.Instrument, error)
	Get(ctx context.Context, symbol string) (*models.Instrument, error)
	Create(ctx context.Context, inst *models.Instrument) error
	Update(ctx context.Context, inst *models.Instrument) error
	Delete(ctx context.Context, symbol string) error
}

// CandleHistory is the bounded per-instrument candle store. Append is a
// bounded push: once an instrument's history exceeds the cap, the oldest
// candle is evicted. Implementations must be atomic with respect to
// concurrent readers.
type CandleHistory interface {
	Append(ctx context.Context, symbol string, c models.Candle) error
	LastClose(ctx context.Context, symbol string) (float64, bool, error)
	// Query returns up to limit candles with the given interval label,
	// oldest first. History can contain mixed interval labels after an
	// interval change, hence the filter.
	Query(ctx context.Context, symbol string, iv models.Interval, limit int) ([]models.Candle, error)
	Purge(ctx context.Context, symbol string) error
}

// TrendLog is the append-only operator trend audit trail. Current returns
// the mode of the most recent record, or models.DefaultTrend() when the log
// is empty.
type TrendLog interface {
	Append(ctx context.Context, rec models.TrendRecord) error
	Current(ctx context.Context) (models.TrendMode, error)
}

// EventSink receives generated price and candle events. Implementations are
// best-effort: a failing sink is logged by the caller and never stops a tick.
type EventSink interface {
	PublishPrice(ctx context.Context, ev models.PriceEvent) error
	PublishCandle(ctx context.Context, ev models.CandleEvent) error
	Close() error
}

// CandleArchive is the optional unbounded analytical store of every candle
// ever generated (the capped CandleHistory is the serving store).
type CandleArchive interface {
	Store(ctx context.Context, symbol string, c models.Candle) error
	Close() error
}

// Metrics abstracts operational counters so use cases don't depend on a
// concrete metrics backend.
type Metrics interface {
	RecordCandleGenerated(symbol string, interval string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordTickLatency(seconds float64)
}
