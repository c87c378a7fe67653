package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/edugen-platform/edugen/internal/metrics"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

func (p *Publisher) PublishGenerationEvent(ctx context.Context, event GenerationEvent) error {
	return p.publish(ctx, SubjectGenerationEvent, event)
}

func (p *Publisher) PublishPaymentEvent(ctx context.Context, event PaymentEvent) error {
	return p.publish(ctx, SubjectPaymentEvent, event)
}

func (p *Publisher) PublishAuditEvent(ctx context.Context, event AuditEvent) error {
	return p.publish(ctx, SubjectAuditEvent, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	metrics.EventsPublishedTotal.WithLabelValues(subject, "ok").Inc()
	return nil
}
