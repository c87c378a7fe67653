// Package ratelimit implements the fixed-window request limiter shared by
// the generation endpoints and the payment routes.
//
// A window opens on the first request for a key and lasts for the configured
// duration. Requests inside the window are admitted while fewer than the
// ceiling have been admitted; a denied request does not count. The first
// request strictly after the window end opens a new one.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const (
	DefaultMaxRequests = 5
	DefaultWindow      = time.Minute
)
