package repository

import (
	"context"
	"fmt"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	"CoinPulse/pkg/kafka"
)

// KafkaSink publishes price and candle events to Kafka topics for downstream
// consumers. It keys by symbol so per-instrument ordering is preserved.
type KafkaSink struct {
	producer    *kafka.Producer
	priceTopic  string
	candleTopic string
}

// NewKafkaSink wires the sink over an existing producer.
func NewKafkaSink(producer *kafka.Producer, priceTopic, candleTopic string) *KafkaSink {
	if priceTopic == "" {
		priceTopic = "coinpulse.prices"
	}
	if candleTopic == "" {
		candleTopic = "coinpulse.candles"
	}
	return &KafkaSink{producer: producer, priceTopic: priceTopic, candleTopic: candleTopic}
}

var _ domrepo.EventSink = (*KafkaSink)(nil)

func (s *KafkaSink) PublishPrice(ctx context.Context, ev models.PriceEvent) error {
	if err := s.producer.Publish(ctx, s.priceTopic, []byte(ev.CoinName), ev); err != nil {
		return fmt.Errorf("publish price %s: %w", ev.CoinName, err)
	}
	return nil
}

func (s *KafkaSink) PublishCandle(ctx context.Context, ev models.CandleEvent) error {
	if err := s.producer.Publish(ctx, s.candleTopic, []byte(ev.CoinName), ev); err != nil {
		return fmt.Errorf("publish candle %s: %w", ev.CoinName, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}

// LogPublisher adapts the Kafka producer to the logger's collector so
// aggregated error logs ship to a topic.
type LogPublisher struct {
	producer *kafka.Producer
}

func NewLogPublisher(producer *kafka.Producer) *LogPublisher {
	return &LogPublisher{producer: producer}
}

func (p *LogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
