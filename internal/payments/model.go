package payments

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edugen-platform/edugen/internal/usage"
)

// Plan is a paid plan identifier as sent by the checkout page.
type Plan string

const (
	PlanMonthly  Plan = usage.PlanMonthly
	PlanLifetime Plan = usage.PlanLifetime
)

// Currency of every order.
const Currency = "INR"

// planAmounts are in the smallest currency unit (paise).
var planAmounts = map[Plan]int64{
	PlanMonthly:  4900,
	PlanLifetime: 9900,
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if _, ok := planAmounts[p]; !ok {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return p, nil
}

// Amount returns the price of p.
func (p Plan) Amount() int64 {
	return planAmounts[p]
}

// ExpiresAt returns when a subscription to p started at start ends, or nil
// when it never does.
func (p Plan) ExpiresAt(start time.Time) *time.Time {
	if p != PlanMonthly {
		return nil
	}
	end := start.AddDate(0, 1, 0)
	return &end
}

const StatusActive = "active"

// Subscription matches the subscriptions table schema.
type Subscription struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	Plan              Plan       `json:"plan"`
	Amount            int64      `json:"amount"`
	RazorpayOrderID   string     `json:"razorpay_order_id"`
	RazorpayPaymentID string     `json:"razorpay_payment_id"`
	StartsAt          time.Time  `json:"starts_at"`
	ExpiresAt         *time.Time `json:"expires_at"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
}

// PaymentOrder is a gateway order as it was opened for an account. The
// plan and amount of a verified payment come from here, never from the
// verification request.
type PaymentOrder struct {
	OrderID   string    `json:"razorpay_order_id"`
	UserID    uuid.UUID `json:"user_id"`
	Plan      Plan      `json:"plan"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
	PlanID    string `json:"planId" validate:"required"`
}

type VerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Plan    Plan   `json:"plan"`
}

type CreateOrderRequest struct {
	PlanID string `json:"planId" validate:"required"`
}

type CreateOrderResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}
