package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	"CoinPulse/pkg/clickhouse"
)

var trendSchema = []string{
	`CREATE TABLE IF NOT EXISTS trend_log (
		mode       LowCardinality(String),
		updated_at DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	ORDER BY updated_at`,
	`CREATE TABLE IF NOT EXISTS candle_archive (
		symbol    LowCardinality(String),
		interval  LowCardinality(String),
		ts        DateTime64(3, 'UTC'),
		open      Float64,
		high      Float64,
		low       Float64,
		close     Float64
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (symbol, interval, ts)`,
}

// ClickHouseTrendLog keeps the append-only audit trail of global trend
// switches. Reads fall back to the default regime when the table is empty.
type ClickHouseTrendLog struct {
	db *sql.DB
}

// NewClickHouseTrendLog creates the log and ensures its table exists.
func NewClickHouseTrendLog(ctx context.Context, client *clickhouse.Client) (*ClickHouseTrendLog, error) {
	if err := client.InitSchema(ctx, trendSchema[:1]); err != nil {
		return nil, err
	}
	return &ClickHouseTrendLog{db: client.DB()}, nil
}

var _ domrepo.TrendLog = (*ClickHouseTrendLog)(nil)

func (l *ClickHouseTrendLog) Append(ctx context.Context, rec models.TrendRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO trend_log (mode, updated_at) VALUES (?, ?)`,
		string(rec.Mode), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert trend record: %w", err)
	}
	return nil
}

func (l *ClickHouseTrendLog) Current(ctx context.Context) (models.TrendMode, error) {
	var mode string
	err := l.db.QueryRowContext(ctx,
		`SELECT mode FROM trend_log ORDER BY updated_at DESC LIMIT 1`,
	).Scan(&mode)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultTrend(), nil
	}
	if err != nil {
		return "", fmt.Errorf("select current trend: %w", err)
	}
	return models.ParseTrendMode(mode)
}

// ClickHouseCandleArchive writes every generated candle to long-term storage.
// It buffers rows and flushes in batches so the engine's tick path never waits
// on a round trip per candle.
type ClickHouseCandleArchive struct {
	db      *sql.DB
	rows    chan archiveRow
	done    chan struct{}
	flushed chan struct{}
}

type archiveRow struct {
	symbol string
	c      models.Candle
}

// NewClickHouseCandleArchive ensures the table exists and starts the flush
// loop. bufSize bounds the pending-row channel; a full channel drops rows
// rather than blocking generation.
func NewClickHouseCandleArchive(ctx context.Context, client *clickhouse.Client, bufSize int) (*ClickHouseCandleArchive, error) {
	if err := client.InitSchema(ctx, trendSchema[1:]); err != nil {
		return nil, err
	}
	if bufSize <= 0 {
		bufSize = 1024
	}
	a := &ClickHouseCandleArchive{
		db:      client.DB(),
		rows:    make(chan archiveRow, bufSize),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
	}
	go a.loop()
	return a, nil
}

var _ domrepo.CandleArchive = (*ClickHouseCandleArchive)(nil)

// Store enqueues a candle for the next batch flush. It never blocks.
func (a *ClickHouseCandleArchive) Store(ctx context.Context, symbol string, c models.Candle) error {
	select {
	case a.rows <- archiveRow{symbol: symbol, c: c}:
		return nil
	default:
		return fmt.Errorf("candle archive buffer full, dropping %s", symbol)
	}
}

// Close stops the flush loop after draining pending rows.
func (a *ClickHouseCandleArchive) Close() error {
	close(a.done)
	<-a.flushed
	return nil
}

func (a *ClickHouseCandleArchive) loop() {
	defer close(a.flushed)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	batch := make([]archiveRow, 0, 256)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		a.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case row := <-a.rows:
			batch = append(batch, row)
			if len(batch) >= 256 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-a.done:
			for {
				select {
				case row := <-a.rows:
					batch = append(batch, row)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (a *ClickHouseCandleArchive) flush(batch []archiveRow) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO candle_archive (symbol, interval, ts, open, high, low, close) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return
	}
	for _, row := range batch {
		if _, err := stmt.ExecContext(ctx,
			row.symbol, string(row.c.Interval), row.c.Time.UTC(),
			row.c.Open, row.c.High, row.c.Low, row.c.Close,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return
		}
	}
	_ = stmt.Close()
	_ = tx.Commit()
}
