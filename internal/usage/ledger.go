package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrQuotaExceeded means the ledger refused the unit: the account is on
	// the free plan and the category is exhausted for this period.
	ErrQuotaExceeded = errors.New("usage quota exceeded")
	// ErrLedgerUnavailable means the ledger could not be asked at all.
	ErrLedgerUnavailable = errors.New("usage ledger unavailable")
)

// Ledger atomically checks and consumes one unit of usage. It reports false
// without consuming anything when the account may not generate more of kind.
type Ledger interface {
	TryConsume(ctx context.Context, accountID uuid.UUID, kind Kind) (bool, error)
}

// Consume asks l for one unit and translates the answer into ErrQuotaExceeded
// or ErrLedgerUnavailable.
func Consume(ctx context.Context, l Ledger, accountID uuid.UUID, kind Kind) error {
	ok, err := l.TryConsume(ctx, accountID, kind)
	if err != nil {
		return errors.Join(ErrLedgerUnavailable, err)
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}

// Querier is the subset of pgxpool.Pool the ledger needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger calls the increment_usage database function, which locks
// the account's profile row, rolls the monthly period if needed, and
// increments the category counter when allowed, all in one statement.
type PostgresLedger struct {
	db        Querier
	freeLimit int
}

var _ Ledger = (*PostgresLedger)(nil)

func NewPostgresLedger(db Querier, freeLimit int) *PostgresLedger {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeLimit
	}
	return &PostgresLedger{db: db, freeLimit: freeLimit}
}

func (l *PostgresLedger) TryConsume(ctx context.Context, accountID uuid.UUID, kind Kind) (bool, error) {
	var allowed bool
	err := l.db.QueryRow(ctx,
		`SELECT increment_usage($1, $2, $3)`, accountID, string(kind), l.freeLimit,
	).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("calling increment_usage: %w", err)
	}
	return allowed, nil
}
