package repository

import (
	"context"
	"fmt"

	"QuotePulse/internal/domain/models"
	drepo "QuotePulse/internal/domain/repository"
	"QuotePulse/pkg/kafka"
)

// KafkaHistory archives refreshed quotes onto a Kafka topic for
// downstream consumers. Messages are keyed by symbol so one symbol's
// history stays ordered within a partition.
type KafkaHistory struct {
	producer *kafka.Producer
	topic    string
}

var _ drepo.HistorySink = (*KafkaHistory)(nil)

// NewKafkaHistory wraps a producer as a history sink.
func NewKafkaHistory(producer *kafka.Producer, topic string) *KafkaHistory {
	return &KafkaHistory{producer: producer, topic: topic}
}

// Archive publishes one quote, keyed by symbol.
func (s *KafkaHistory) Archive(ctx context.Context, q *models.Quote) error {
	if err := s.producer.Publish(ctx, s.topic, []byte(q.Symbol), q); err != nil {
		return fmt.Errorf("history publish %s: %w", q.Symbol, err)
	}
	return nil
}

// Close flushes and closes the producer.
func (s *KafkaHistory) Close() error {
	return s.producer.Close()
}
