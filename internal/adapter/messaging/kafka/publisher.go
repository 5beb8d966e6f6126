// Package kafka publishes bridge events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"custody-bridge/config"
	"custody-bridge/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
)

// producer is the part of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Publisher implements ports.EventSink on top of a franz-go client.
type Publisher struct {
	client producer
	topic  string
	log    zerolog.Logger
}

// NewPublisher creates a Kafka client for cfg. Brokers are dialed lazily on first produce.
func NewPublisher(cfg config.KafkaConfig, log zerolog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}

	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("Kafka producer configured")
	return newPublisher(client, cfg.Topic, log), nil
}

func newPublisher(client producer, topic string, log zerolog.Logger) *Publisher {
	return &Publisher{client: client, topic: topic, log: log}
}

// Name returns the sink name.
func (p *Publisher) Name() string {
	return "kafka"
}

// Publish produces one record per event and waits for the broker ack.
// Records are keyed by event name so each event kind keeps its order within a partition.
func (p *Publisher) Publish(ctx context.Context, event domain.BridgeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Name),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event-id", Value: []byte(event.ID.String())},
			{Key: "event-topic", Value: []byte(event.Topic)},
		},
	}

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("kafka produce %s: %w", p.topic, err)
	}

	p.log.Debug().Str("event", string(event.Name)).Str("event_id", event.ID.String()).Msg("event produced")
	return nil
}

// Close releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
