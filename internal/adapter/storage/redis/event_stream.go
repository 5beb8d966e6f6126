package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"custody-bridge/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// defaultStreamMaxLen caps the stream; trimming is approximate.
const defaultStreamMaxLen = 100_000

// EventStream implements ports.EventSink by appending events to a Redis stream.
type EventStream struct {
	client goredis.UniversalClient
	stream string
	maxLen int64
}

// NewEventStream creates a stream sink writing to the given stream key.
func NewEventStream(client goredis.UniversalClient, stream string) *EventStream {
	return &EventStream{client: client, stream: stream, maxLen: defaultStreamMaxLen}
}

// Name returns the sink name.
func (s *EventStream) Name() string {
	return "redis"
}

// Publish appends one entry per event with XADD.
func (s *EventStream) Publish(ctx context.Context, event domain.BridgeEvent) error {
	fields, err := json.Marshal(event.Fields)
	if err != nil {
		return fmt.Errorf("marshal event fields: %w", err)
	}

	err = s.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":         event.ID.String(),
			"name":       string(event.Name),
			"topic":      event.Topic,
			"fields":     string(fields),
			"created_at": event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd %s: %w", s.stream, err)
	}
	return nil
}
