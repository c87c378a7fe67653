package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/edugen-platform/edugen/internal/nats"
)

const consumerName = "audit-persister"

// Inserter persists audit log entries.
type Inserter interface {
	Insert(ctx context.Context, log *AuditLog) error
}

// Consumer persists every event published on the events stream as an
// audit log entry.
type Consumer struct {
	repo        Inserter
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(repo Inserter, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, consumerName, inats.SubjectEvents)
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleMessage(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	event, err := decodeEvent(msg.Subject(), msg.Data())
	if err != nil {
		// Redelivery cannot fix a payload that does not decode.
		slog.Error("audit consumer: decoding event", "error", err, "subject", msg.Subject())
		_ = msg.Term()
		return
	}

	if err := c.repo.Insert(ctx, convertEventToLog(event)); err != nil {
		slog.Error("audit consumer: persisting audit log", "error", err, "event_type", event.EventType)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()

	slog.Debug("audit consumer: persisted event",
		"event_type", event.EventType,
		"owner", event.OwnerUserID,
		"resource_id", event.ResourceID,
	)
}

// decodeEvent turns a message from any events subject into an AuditEvent.
func decodeEvent(subject string, data []byte) (inats.AuditEvent, error) {
	switch subject {
	case inats.SubjectGenerationEvent:
		var e inats.GenerationEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return inats.AuditEvent{}, fmt.Errorf("unmarshaling generation event: %w", err)
		}
		return e.Audit(), nil
	case inats.SubjectPaymentEvent:
		var e inats.PaymentEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return inats.AuditEvent{}, fmt.Errorf("unmarshaling payment event: %w", err)
		}
		return e.Audit(), nil
	case inats.SubjectAuditEvent:
		var e inats.AuditEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return inats.AuditEvent{}, fmt.Errorf("unmarshaling audit event: %w", err)
		}
		return e, nil
	default:
		return inats.AuditEvent{}, fmt.Errorf("unknown subject %q", subject)
	}
}

func convertEventToLog(event inats.AuditEvent) *AuditLog {
	log := &AuditLog{
		ID:           uuid.New(),
		OwnerUserID:  event.OwnerUserID,
		EventType:    event.EventType,
		Severity:     event.Severity,
		ResourceType: event.ResourceType,
		CreatedAt:    event.Timestamp,
	}

	// Resource IDs are not always UUIDs.
	if event.ResourceID != "" {
		if parsed, err := uuid.Parse(event.ResourceID); err == nil {
			log.ResourceID = &parsed
		}
	}

	if data, err := json.Marshal(map[string]string{"message": event.Details}); err == nil {
		log.Details = data
	}

	return log
}
