package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	candlesGenerated *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	tickLatency      prometheus.Histogram
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		candlesGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_candles_generated_total",
				Help: "Total number of candles generated",
			},
			[]string{"symbol", "interval"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coinpulse_last_price",
				Help: "Last generated price for a symbol",
			},
			[]string{"symbol"},
		),
		tickLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coinpulse_tick_duration_seconds",
				Help:    "Duration of one generation tick in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// RecordCandleGenerated records one generated candle.
func (r *Recorder) RecordCandleGenerated(symbol, interval string) {
	r.candlesGenerated.WithLabelValues(symbol, interval).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordTickLatency records one tick's duration in seconds.
func (r *Recorder) RecordTickLatency(seconds float64) {
	r.tickLatency.Observe(seconds)
}
