package usage

import (
	"fmt"
	"time"
)

// Kind is a usage category. Each generation endpoint consumes one unit of
// its own category.
type Kind string

const (
	KindMCQ   Kind = "mcq"
	KindPaper Kind = "paper"
	KindVoice Kind = "voice"
)

// Kinds lists every category in display order.
var Kinds = []Kind{KindMCQ, KindPaper, KindVoice}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindMCQ, KindPaper, KindVoice:
		return k, nil
	}
	return "", fmt.Errorf("unknown usage kind %q", s)
}

const (
	PlanFree     = "free"
	PlanMonthly  = "monthly"
	PlanLifetime = "lifetime"
)

// DefaultFreeLimit is the per-category monthly allowance on the free plan.
const DefaultFreeLimit = 10

// Counters mirrors the usage columns of the profiles table.
type Counters struct {
	Plan         string
	MCQ          int
	Paper        int
	Voice        int
	UsageResetAt time.Time
}

func (c Counters) count(k Kind) int {
	switch k {
	case KindMCQ:
		return c.MCQ
	case KindPaper:
		return c.Paper
	case KindVoice:
		return c.Voice
	}
	return 0
}

// CategoryUsage is one row of the usage report. Limit and Remaining are nil
// on paid plans.
type CategoryUsage struct {
	Kind      Kind `json:"kind"`
	Used      int  `json:"used"`
	Limit     *int `json:"limit"`
	Remaining *int `json:"remaining"`
}

// Report is the API response for the current billing period.
type Report struct {
	Plan        string          `json:"plan"`
	PeriodStart time.Time       `json:"period_start"`
	Unlimited   bool            `json:"unlimited"`
	Categories  []CategoryUsage `json:"categories"`
}

// PeriodStart returns the first instant of t's calendar month in UTC.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
