// Package generation runs the metered AI generation endpoints.
//
// Every request moves through the same stages: the body is validated and
// sanitized, the caller is authenticated, the per-account rate limit is
// checked, one unit of usage is consumed, the prompt is rendered and sent
// to the completion API, and the JSON in the reply is extracted. Rejections
// before the completion call carry a specific message; anything that fails
// afterwards is reported with one generic message and logged.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/edugen-platform/edugen/internal/api"
	"github.com/edugen-platform/edugen/internal/auth"
	"github.com/edugen-platform/edugen/internal/completion"
	"github.com/edugen-platform/edugen/internal/metrics"
	mw "github.com/edugen-platform/edugen/internal/middleware"
	inats "github.com/edugen-platform/edugen/internal/nats"
	"github.com/edugen-platform/edugen/internal/ratelimit"
	"github.com/edugen-platform/edugen/internal/usage"
)

// maxBodyBytes admits the longest text field even when every code point is
// sent as an escaped surrogate pair (12 bytes each).
const maxBodyBytes = 256 << 10

var errInvalidBody = api.NewBadRequestError("Invalid request body")

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (*auth.AccessClaims, error)
}

// EventPublisher receives a GenerationEvent after each successful request.
type EventPublisher interface {
	PublishGenerationEvent(ctx context.Context, event inats.GenerationEvent) error
}

type Pipeline struct {
	auth       Authenticator
	limiter    ratelimit.Limiter
	ledger     usage.Ledger
	completer  completion.Completer
	events     EventPublisher
	rateWindow time.Duration
	now        func() time.Time
}

// NewPipeline wires the stages together. events may be nil.
func NewPipeline(
	authn Authenticator,
	limiter ratelimit.Limiter,
	ledger usage.Ledger,
	completer completion.Completer,
	events EventPublisher,
	rateWindow time.Duration,
) *Pipeline {
	if rateWindow <= 0 {
		rateWindow = ratelimit.DefaultWindow
	}
	return &Pipeline{
		auth:       authn,
		limiter:    limiter,
		ledger:     ledger,
		completer:  completer,
		events:     events,
		rateWindow: rateWindow,
		now:        time.Now,
	}
}

// Handler serves one endpoint.
func (p *Pipeline) Handler(ep Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := p.now()
		ctx := r.Context()
		log := slog.With("endpoint", ep.Name, "request_id", mw.GetRequestID(ctx))

		// Validated
		body, err := decodeBody(w, r)
		if err != nil {
			p.reject(w, ep, "invalid", errInvalidBody)
			return
		}
		values, err := Validate(body, ep.Rules)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				p.reject(w, ep, "invalid", api.NewValidationError(verr.Message))
				return
			}
			log.Error("validating request", "error", err)
			p.reject(w, ep, "internal", api.ErrGenerationFailed)
			return
		}

		// Authenticated
		claims, err := p.auth.Authenticate(r)
		if err != nil {
			if errors.Is(err, auth.ErrMissingToken) {
				p.reject(w, ep, "unauthorized", api.ErrUnauthorized)
				return
			}
			log.Debug("rejecting token", "error", err)
			p.reject(w, ep, "unauthorized", api.ErrInvalidToken)
			return
		}
		accountID, err := claims.AccountID()
		if err != nil {
			p.reject(w, ep, "unauthorized", api.ErrInvalidToken)
			return
		}
		log = log.With("account_id", accountID)

		// RateChecked
		allowed, err := p.limiter.Allow(ctx, rateKey(ep, accountID))
		if err != nil {
			log.Warn("rate limiter: backend error, failing open", "error", err)
		} else if !allowed {
			metrics.RateLimitDenialsTotal.WithLabelValues(string(ep.Kind)).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(p.rateWindow.Seconds())))
			p.reject(w, ep, "rate_limited", api.ErrTooManyRequests)
			return
		}

		// QuotaConsumed
		if err := usage.Consume(ctx, p.ledger, accountID, ep.Kind); err != nil {
			if errors.Is(err, usage.ErrQuotaExceeded) {
				log.Info("usage quota exceeded", "kind", ep.Kind)
				p.reject(w, ep, "quota_exceeded", api.ErrUsageLimit)
				return
			}
			log.Error("usage ledger unavailable", "error", err, "kind", ep.Kind)
			p.reject(w, ep, "ledger_unavailable", api.ErrUsageLimit)
			return
		}

		// Prompted
		prompt, err := BuildPrompt(ep, values)
		if err != nil {
			log.Error("building prompt", "error", err)
			p.reject(w, ep, "internal", api.ErrGenerationFailed)
			return
		}

		// Completed
		callStart := p.now()
		reply, err := p.completer.Complete(ctx, completion.Request{
			System:     ep.System,
			Prompt:     prompt,
			JSONObject: ep.Shape == ShapeObject,
		})
		metrics.CompletionDuration.WithLabelValues(string(ep.Kind)).Observe(p.now().Sub(callStart).Seconds())
		if err != nil {
			log.Error("completion failed", "error", err)
			p.reject(w, ep, "upstream_error", api.ErrGenerationFailed)
			return
		}

		// Extracted
		payload, err := Extract(reply, ep.Shape)
		if err != nil {
			log.Error("extracting model reply", "error", err, "reply_bytes", len(reply))
			p.reject(w, ep, "invalid_response", api.ErrGenerationFailed)
			return
		}

		// Responded
		var resp any = payload
		if ep.ResponseKey != "" {
			resp = map[string]json.RawMessage{ep.ResponseKey: payload}
		}
		api.JSONBody(w, http.StatusOK, resp)
		metrics.GenerationsTotal.WithLabelValues(string(ep.Kind), "success").Inc()

		p.publish(ctx, log, inats.GenerationEvent{
			AccountID:  accountID,
			Kind:       string(ep.Kind),
			Endpoint:   ep.Name,
			RequestID:  mw.GetRequestID(ctx),
			DurationMs: p.now().Sub(start).Milliseconds(),
			Timestamp:  p.now().UTC(),
		})
	}
}

func (p *Pipeline) reject(w http.ResponseWriter, ep Endpoint, outcome string, err *api.AppError) {
	metrics.GenerationsTotal.WithLabelValues(string(ep.Kind), outcome).Inc()
	api.HandleError(w, err)
}

// publish is best effort; the response has already been written.
func (p *Pipeline) publish(ctx context.Context, log *slog.Logger, event inats.GenerationEvent) {
	if p.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.events.PublishGenerationEvent(ctx, event); err != nil {
		log.Warn("publishing generation event", "error", err)
	}
}

// rateKey scopes windows per endpoint so each endpoint keeps its own budget.
func rateKey(ep Endpoint, accountID uuid.UUID) string {
	return "gen:" + string(ep.Kind) + ":" + accountID.String()
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errors.New("body is not a JSON object")
	}
	return body, nil
}
