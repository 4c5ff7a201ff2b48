package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/learnly-platform/learnly/internal/metrics"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishAuditEvent publishes an audit event.
func (p *Publisher) PublishAuditEvent(ctx context.Context, event AuditEvent) error {
	err := p.publish(ctx, SubjectAuditEvent, event)
	if err != nil {
		metrics.AuditEventsPublishedTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.AuditEventsPublishedTotal.WithLabelValues("ok").Inc()
	return nil
}

// PublishDecisionEvent publishes a workflow decision point.
func (p *Publisher) PublishDecisionEvent(ctx context.Context, event DecisionEvent) error {
	return p.publish(ctx, SubjectDecisionEvent, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
