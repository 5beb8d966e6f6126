package service

import (
	"context"
	"fmt"
	"sync"

	"custody-bridge/internal/core/domain"
	"custody-bridge/internal/core/ports"
	"custody-bridge/internal/metrics"
	"custody-bridge/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	defaultRecentEvents = 50
	maxRecentEvents     = 500
)

// EventServiceImpl implements ports.EventService.
type EventServiceImpl struct {
	repo    ports.EventRepository
	sinks   []ports.EventSink
	metrics *metrics.Metrics
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewEventService creates a new event service.
// Events are always logged; sinks may be empty.
func NewEventService(repo ports.EventRepository, sinks []ports.EventSink, m *metrics.Metrics, log zerolog.Logger) *EventServiceImpl {
	return &EventServiceImpl{repo: repo, sinks: sinks, metrics: m, log: log}
}

// Publish fans a committed event out to every sink asynchronously (fire-and-forget).
// A failing sink never affects the operation that produced the event.
func (s *EventServiceImpl) Publish(ctx context.Context, event domain.BridgeEvent) {
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.log.Info().
			Str("event", string(event.Name)).
			Str("event_id", event.ID.String()).
			Str("topic", event.Topic).
			Interface("fields", event.Fields).
			Msg("event")

		for _, sink := range s.sinks {
			err := sink.Publish(ctx, event)
			s.metrics.ObserveEvent(sink.Name(), err)
			if err != nil {
				s.log.Warn().Err(err).
					Str("sink", sink.Name()).
					Str("event_id", event.ID.String()).
					Msg("failed to publish event")
			}
		}
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (s *EventServiceImpl) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recent lists the latest persisted events, newest first. An empty name lists all events.
func (s *EventServiceImpl) Recent(ctx context.Context, name domain.EventName, limit int) ([]domain.BridgeEvent, error) {
	if limit <= 0 {
		limit = defaultRecentEvents
	}
	if limit > maxRecentEvents {
		limit = maxRecentEvents
	}
	events, err := s.repo.List(ctx, name, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list events: %w", err))
	}
	return events, nil
}
