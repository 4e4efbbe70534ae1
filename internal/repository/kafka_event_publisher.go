package repository

import (
	"context"
	"fmt"
	"time"

	"MarketLens/internal/domain/models"
	pkgkafka "MarketLens/pkg/kafka"
)

// KafkaEventPublisher implements domain.repository.EventPublisher over the
// shared producer. Signal events are keyed by symbol so per-symbol ordering
// survives partitioning.
type KafkaEventPublisher struct {
	producer    *pkgkafka.Producer
	signalTopic string
	fetchTopic  string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, signalTopic, fetchTopic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer:    producer,
		signalTopic: signalTopic,
		fetchTopic:  fetchTopic,
	}
}

type signalEvent struct {
	Symbol    string             `json:"symbol"`
	State     models.SignalState `json:"state"`
	Rule      string             `json:"rule"`
	LastClose float64            `json:"last_close"`
	AsOf      time.Time          `json:"as_of"`
}

type fetchBatchEvent struct {
	Period string    `json:"period"`
	OK     int       `json:"ok"`
	Failed int       `json:"failed"`
	At     time.Time `json:"at"`
}

// PublishSignal emits one signal evaluation.
func (p *KafkaEventPublisher) PublishSignal(ctx context.Context, report models.SignalReport) error {
	event := signalEvent{
		Symbol:    report.Meta.Symbol,
		State:     report.State,
		Rule:      report.Rule,
		LastClose: report.LastClose,
		AsOf:      report.AsOf,
	}
	if err := p.producer.Publish(ctx, p.signalTopic, []byte(report.Meta.Symbol), event); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

// PublishFetchBatch emits one fetch-batch outcome.
func (p *KafkaEventPublisher) PublishFetchBatch(ctx context.Context, period models.Period, ok, failed int, at time.Time) error {
	event := fetchBatchEvent{Period: string(period), OK: ok, Failed: failed, At: at}
	if err := p.producer.Publish(ctx, p.fetchTopic, nil, event); err != nil {
		return fmt.Errorf("publish fetch batch: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying producer.
func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}
