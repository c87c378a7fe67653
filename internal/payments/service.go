package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edugen-platform/edugen/internal/metrics"
	inats "github.com/edugen-platform/edugen/internal/nats"
)

var (
	ErrNotConfigured    = errors.New("payment gateway not configured")
	ErrInvalidPlan      = errors.New("invalid plan")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrOrderMismatch    = errors.New("payment does not match order")
)

// SubscriptionStore records opened orders and persists verified
// subscriptions.
type SubscriptionStore interface {
	RecordOrder(ctx context.Context, order *PaymentOrder) error
	GetOrder(ctx context.Context, orderID string) (*PaymentOrder, error)
	ActivateSubscription(ctx context.Context, sub *Subscription) error
}

// OrderCreator opens a gateway order.
type OrderCreator interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)
}

// EventPublisher receives a PaymentEvent after each activation.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event inats.PaymentEvent) error
}

type Service struct {
	store     SubscriptionStore
	gateway   OrderCreator
	events    EventPublisher
	keyID     string
	keySecret string
	now       func() time.Time
}

// NewService builds the payment service. gateway and events may be nil.
func NewService(store SubscriptionStore, gateway OrderCreator, events EventPublisher, keyID, keySecret string) *Service {
	return &Service{
		store:     store,
		gateway:   gateway,
		events:    events,
		keyID:     keyID,
		keySecret: keySecret,
		now:       time.Now,
	}
}

// Verify checks the checkout signature and, when it matches, activates the
// plan of the order that was paid. The order must have been opened by
// CreateOrder for the same account and plan. Nothing is written when any
// check fails.
func (s *Service) Verify(ctx context.Context, accountID uuid.UUID, req VerifyRequest) (*VerifyResponse, error) {
	if s.keySecret == "" {
		return nil, ErrNotConfigured
	}
	plan, err := ParsePlan(req.PlanID)
	if err != nil {
		return nil, ErrInvalidPlan
	}
	if !VerifySignature(s.keySecret, req.OrderID, req.PaymentID, req.Signature) {
		metrics.PaymentVerificationsTotal.WithLabelValues(string(plan), "invalid_signature").Inc()
		return nil, ErrInvalidSignature
	}

	order, err := s.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			metrics.PaymentVerificationsTotal.WithLabelValues(string(plan), "order_mismatch").Inc()
			return nil, ErrOrderMismatch
		}
		metrics.PaymentVerificationsTotal.WithLabelValues(string(plan), "store_error").Inc()
		return nil, fmt.Errorf("loading order: %w", err)
	}
	if order.UserID != accountID || order.Plan != plan {
		metrics.PaymentVerificationsTotal.WithLabelValues(string(plan), "order_mismatch").Inc()
		slog.Warn("payment does not match order",
			"account_id", accountID, "order_id", req.OrderID,
			"order_account_id", order.UserID, "order_plan", order.Plan, "requested_plan", plan)
		return nil, ErrOrderMismatch
	}

	start := s.now().UTC()
	sub := &Subscription{
		ID:                uuid.New(),
		UserID:            accountID,
		Plan:              plan,
		Amount:            order.Amount,
		RazorpayOrderID:   req.OrderID,
		RazorpayPaymentID: req.PaymentID,
		StartsAt:          start,
		ExpiresAt:         plan.ExpiresAt(start),
		Status:            StatusActive,
	}
	if err := s.store.ActivateSubscription(ctx, sub); err != nil {
		metrics.PaymentVerificationsTotal.WithLabelValues(string(plan), "store_error").Inc()
		if errors.Is(err, ErrDuplicatePayment) {
			return nil, err
		}
		return nil, fmt.Errorf("activating subscription: %w", err)
	}
	metrics.PaymentVerificationsTotal.WithLabelValues(string(plan), "ok").Inc()

	if s.events != nil {
		event := inats.PaymentEvent{
			AccountID:      accountID,
			SubscriptionID: sub.ID,
			Plan:           string(plan),
			OrderID:        req.OrderID,
			PaymentID:      req.PaymentID,
			Amount:         sub.Amount,
			Timestamp:      start,
		}
		if err := s.events.PublishPaymentEvent(ctx, event); err != nil {
			slog.Warn("publishing payment event", "error", err, "subscription_id", sub.ID)
		}
	}

	return &VerifyResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully upgraded to %s plan!", plan),
		Plan:    plan,
	}, nil
}

// CreateOrder opens a gateway order for plan on behalf of accountID.
func (s *Service) CreateOrder(ctx context.Context, accountID uuid.UUID, planID string) (*CreateOrderResponse, error) {
	if s.gateway == nil || s.keyID == "" || s.keySecret == "" {
		return nil, ErrNotConfigured
	}
	plan, err := ParsePlan(planID)
	if err != nil {
		return nil, ErrInvalidPlan
	}

	order, err := s.gateway.CreateOrder(ctx, plan.Amount(), Currency, receipt(accountID, s.now()), map[string]string{
		"user_id": accountID.String(),
		"plan":    string(plan),
	})
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	if err := s.store.RecordOrder(ctx, &PaymentOrder{
		OrderID:  order.ID,
		UserID:   accountID,
		Plan:     plan,
		Amount:   order.Amount,
		Currency: order.Currency,
	}); err != nil {
		return nil, fmt.Errorf("recording order %s: %w", order.ID, err)
	}

	return &CreateOrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    s.keyID,
	}, nil
}

// receipt stays under the gateway's 40 character limit.
func receipt(accountID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("rcpt_%s_%d", accountID.String()[:8], now.Unix())
}
