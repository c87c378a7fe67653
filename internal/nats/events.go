package nats

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents = "EDUGEN_EVENTS"
)

// Subject constants.
const (
	SubjectEvents          = "edugen.events.>"
	SubjectGenerationEvent = "edugen.events.generation"
	SubjectPaymentEvent    = "edugen.events.payment"
	SubjectAuditEvent      = "edugen.events.audit"
)

// GenerationEvent is published after a generation request was answered.
type GenerationEvent struct {
	AccountID  uuid.UUID `json:"account_id"`
	Kind       string    `json:"kind"`
	Endpoint   string    `json:"endpoint"`
	RequestID  string    `json:"request_id,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Audit converts the event into its audit log form.
func (e GenerationEvent) Audit() AuditEvent {
	return AuditEvent{
		OwnerUserID:  e.AccountID,
		EventType:    "generation_completed",
		Severity:     "info",
		ResourceType: e.Kind,
		Details:      fmt.Sprintf("%s answered in %dms", e.Endpoint, e.DurationMs),
		Timestamp:    e.Timestamp,
	}
}

// PaymentEvent is published when a payment was verified and a plan activated.
type PaymentEvent struct {
	AccountID      uuid.UUID `json:"account_id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	Plan           string    `json:"plan"`
	OrderID        string    `json:"order_id"`
	PaymentID      string    `json:"payment_id"`
	Amount         int64     `json:"amount"`
	Timestamp      time.Time `json:"timestamp"`
}

// Audit converts the event into its audit log form.
func (e PaymentEvent) Audit() AuditEvent {
	return AuditEvent{
		OwnerUserID:  e.AccountID,
		EventType:    "plan_upgraded",
		Severity:     "info",
		ResourceType: "subscription",
		ResourceID:   e.SubscriptionID.String(),
		Details:      fmt.Sprintf("upgraded to %s (order %s, payment %s)", e.Plan, e.OrderID, e.PaymentID),
		Timestamp:    e.Timestamp,
	}
}

// AuditEvent is published for compliance/audit logging.
type AuditEvent struct {
	OwnerUserID  uuid.UUID `json:"owner_user_id"`
	EventType    string    `json:"event_type"`
	Severity     string    `json:"severity"` // info, warn, error
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}
