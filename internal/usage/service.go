package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type countersReader interface {
	GetCounters(ctx context.Context, accountID uuid.UUID) (*Counters, error)
}

// Service builds the usage report shown on the dashboard.
type Service struct {
	repo      countersReader
	freeLimit int
	now       func() time.Time
}

func NewService(repo countersReader, freeLimit int) *Service {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeLimit
	}
	return &Service{repo: repo, freeLimit: freeLimit, now: time.Now}
}

// GetUsage reports the account's consumption in the current period. Counters
// left over from an earlier month read as zero; the ledger resets them on the
// next consumption.
func (s *Service) GetUsage(ctx context.Context, accountID uuid.UUID) (*Report, error) {
	c, err := s.repo.GetCounters(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("getting usage: %w", err)
	}

	period := PeriodStart(s.now())
	stale := c.UsageResetAt.Before(period)
	plan := c.Plan
	if plan == "" {
		plan = PlanFree
	}

	report := &Report{
		Plan:        plan,
		PeriodStart: period,
		Unlimited:   plan != PlanFree,
	}
	for _, k := range Kinds {
		used := c.count(k)
		if stale {
			used = 0
		}
		cu := CategoryUsage{Kind: k, Used: used}
		if !report.Unlimited {
			limit := s.freeLimit
			remaining := max(limit-used, 0)
			cu.Limit = &limit
			cu.Remaining = &remaining
		}
		report.Categories = append(report.Categories, cu)
	}
	return report, nil
}
