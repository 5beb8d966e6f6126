package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"custody-bridge/internal/core/domain"
	"custody-bridge/internal/core/ports"

	"github.com/rs/zerolog"
)

// Headers carried by every webhook delivery.
const (
	HeaderEventSignature = "X-Bridge-Signature"
	HeaderEventTopic     = "X-Bridge-Topic"
	HeaderEventTimestamp = "X-Bridge-Timestamp"
)

var webhookRetryIntervals = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	15 * time.Second,
	time.Minute,
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookSink posts events to an indexer endpoint, signed with the shared secret.
type WebhookSink struct {
	url            string
	secret         string
	sigSvc         ports.SignatureService
	httpClient     HTTPClient
	retryIntervals []time.Duration
	log            zerolog.Logger
}

// NewWebhookSink creates a webhook sink.
func NewWebhookSink(url, secret string, sigSvc ports.SignatureService, httpClient HTTPClient, log zerolog.Logger) *WebhookSink {
	return &WebhookSink{
		url:            url,
		secret:         secret,
		sigSvc:         sigSvc,
		httpClient:     httpClient,
		retryIntervals: webhookRetryIntervals,
		log:            log,
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

// Publish delivers the event, retrying non-2xx responses and transport errors.
// Receivers verify HMAC(secret, TIMESTAMP|BODY) from HeaderEventSignature.
func (s *WebhookSink) Publish(ctx context.Context, event domain.BridgeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(s.retryIntervals); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryIntervals[attempt-1]):
			}
		}

		lastErr = s.deliver(ctx, body, event)
		if lastErr == nil {
			s.log.Debug().Str("event_id", event.ID.String()).Int("attempt", attempt+1).Msg("webhook: delivered")
			return nil
		}
		s.log.Warn().Err(lastErr).Str("event_id", event.ID.String()).Int("attempt", attempt+1).Msg("webhook: delivery failed")
	}

	return fmt.Errorf("webhook: all retry attempts exhausted: %w", lastErr)
}

func (s *WebhookSink) deliver(ctx context.Context, body []byte, event domain.BridgeEvent) error {
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEventTopic, event.Topic)
	req.Header.Set(HeaderEventTimestamp, ts)
	req.Header.Set(HeaderEventSignature, s.sigSvc.Sign(s.secret, ts+"|"+string(body)))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx response: %d", resp.StatusCode)
	}
	return nil
}
