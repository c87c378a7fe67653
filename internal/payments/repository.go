package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicatePayment means the payment was already recorded.
	ErrDuplicatePayment = errors.New("payment already recorded")
	ErrOrderNotFound    = errors.New("payment order not found")
)

const uniqueViolation = "23505"

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists orders, subscriptions and plan changes.
type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) RecordOrder(ctx context.Context, order *PaymentOrder) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO payment_orders (razorpay_order_id, user_id, plan, amount, currency)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		order.OrderID, order.UserID, string(order.Plan), order.Amount, order.Currency,
	).Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting payment order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID string) (*PaymentOrder, error) {
	var (
		o    PaymentOrder
		plan string
	)
	err := r.db.QueryRow(ctx,
		`SELECT razorpay_order_id, user_id, plan, amount, currency, created_at
		 FROM payment_orders WHERE razorpay_order_id = $1`,
		orderID,
	).Scan(&o.OrderID, &o.UserID, &plan, &o.Amount, &o.Currency, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting payment order: %w", err)
	}
	o.Plan = Plan(plan)
	return &o, nil
}

// ActivateSubscription records sub and moves the account to its plan in
// one transaction.
func (r *Repository) ActivateSubscription(ctx context.Context, sub *Subscription) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO subscriptions (id, user_id, plan, amount, razorpay_order_id, razorpay_payment_id, starts_at, expires_at, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING created_at`,
			sub.ID, sub.UserID, string(sub.Plan), sub.Amount, sub.RazorpayOrderID, sub.RazorpayPaymentID,
			sub.StartsAt, sub.ExpiresAt, sub.Status,
		).Scan(&sub.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return ErrDuplicatePayment
			}
			return fmt.Errorf("inserting subscription: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO profiles (user_id, plan) VALUES ($1, $2)
			 ON CONFLICT (user_id) DO UPDATE SET plan = EXCLUDED.plan, updated_at = NOW()`,
			sub.UserID, string(sub.Plan))
		if err != nil {
			return fmt.Errorf("updating profile plan: %w", err)
		}
		return nil
	})
}
