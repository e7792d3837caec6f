package repository

import (
	"context"
	"errors"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
)

// MultiSink fans events out to several sinks (WebSocket hub, Kafka). A failing
// sink does not stop delivery to the others.
type MultiSink struct {
	sinks []domrepo.EventSink
}

func NewMultiSink(sinks ...domrepo.EventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

var _ domrepo.EventSink = (*MultiSink)(nil)

func (m *MultiSink) PublishPrice(ctx context.Context, ev models.PriceEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.PublishPrice(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) PublishCandle(ctx context.Context, ev models.CandleEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.PublishCandle(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
