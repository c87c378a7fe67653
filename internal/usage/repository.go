package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository reads usage counters from the profiles table.
type Repository struct {
	db Querier
}

func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// GetCounters returns the stored counters. An account without a profile row
// is reported as a fresh free account.
func (r *Repository) GetCounters(ctx context.Context, accountID uuid.UUID) (*Counters, error) {
	var c Counters
	err := r.db.QueryRow(ctx,
		`SELECT plan, monthly_mcq_count, monthly_paper_count, monthly_voice_count, usage_reset_at
		 FROM profiles WHERE user_id = $1`, accountID,
	).Scan(&c.Plan, &c.MCQ, &c.Paper, &c.Voice, &c.UsageResetAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Counters{Plan: PlanFree}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching usage counters: %w", err)
	}
	return &c, nil
}
