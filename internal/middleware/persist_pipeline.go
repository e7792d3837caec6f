package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
)

// Sink is the minimal persistence interface the pipeline needs.
type Sink interface {
	Persist(ctx context.Context, symbol string, c models.Candle) error
}

// PersistPipeline sits between the candle engine and storage. It validates,
// forwards, and buffers candles when the store is unavailable so a transient
// backend outage never stalls generation.
type PersistPipeline struct {
	sink    Sink
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan bufferedCandle
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type bufferedCandle struct {
	symbol string
	c      models.Candle
}

type PipelineOption func(*PersistPipeline)

// WithBufferSize sets the retry buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(p *PersistPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewPersistPipeline creates a new pipeline.
func NewPersistPipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *PersistPipeline {
	p := &PersistPipeline{
		sink:    sink,
		metrics: metrics,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan bufferedCandle, p.bufSize)
	return p
}

// Start launches background flushing of buffered candles.
func (p *PersistPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case bc := <-p.bufCh:
				if err := p.sink.Persist(ctx, bc.symbol, bc.c); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- bc:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *PersistPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and forwards the candle, buffering on store errors.
func (p *PersistPipeline) Process(ctx context.Context, symbol string, c models.Candle) error {
	if symbol == "" {
		p.metrics.RecordError("pipeline_validate")
		return fmt.Errorf("symbol empty")
	}
	if !c.Valid() {
		p.metrics.RecordError("pipeline_validate")
		return fmt.Errorf("invalid candle for %s", symbol)
	}

	if err := p.sink.Persist(ctx, symbol, c); err != nil {
		p.metrics.RecordError("pipeline_persist")
		select {
		case p.bufCh <- bufferedCandle{symbol: symbol, c: c}:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	return nil
}

// Depth reports the current retry buffer depth.
func (p *PersistPipeline) Depth() int { return len(p.bufCh) }
