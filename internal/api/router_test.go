package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(name string, hit *string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*hit = name
		w.WriteHeader(http.StatusTeapot)
	}
}

func denyAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			HandleError(w, ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func testRouter(hit *string, checks map[string]HealthCheck) http.Handler {
	passthrough := func(next http.Handler) http.Handler { return next }
	return NewRouter(RouterConfig{Checks: checks}, HandlerSet{
		GenerateMCQ:         named("mcq", hit),
		GeneratePaper:       named("paper", hit),
		ProcessVoiceNotes:   named("voice", hit),
		CreateOrder:         named("order", hit),
		VerifyPayment:       named("verify", hit),
		GetUsage:            named("usage", hit),
		CreateContent:       named("content.create", hit),
		ListContent:         named("content.list", hit),
		GetContent:          named("content.get", hit),
		DeleteContent:       named("content.delete", hit),
		OwnershipMiddleware: passthrough,
		ListAuditLogs:       named("audit", hit),
		AuthMiddleware:      denyAll,
	})
}

func TestRouter_FunctionRoutes(t *testing.T) {
	var hit string
	r := testRouter(&hit, nil)

	t.Run("generation routes skip the auth middleware", func(t *testing.T) {
		for path, name := range map[string]string{
			"/functions/v1/generate-mcq":        "mcq",
			"/functions/v1/generate-paper":      "paper",
			"/functions/v1/process-voice-notes": "voice",
		} {
			hit = ""
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
			assert.Equal(t, http.StatusTeapot, rec.Code, path)
			assert.Equal(t, name, hit)
		}
	})

	t.Run("payment routes require auth", func(t *testing.T) {
		hit = ""
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/functions/v1/verify-razorpay-payment", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, hit)

		req := httptest.NewRequest(http.MethodPost, "/functions/v1/verify-razorpay-payment", nil)
		req.Header.Set("Authorization", "Bearer x")
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, "verify", hit)
	})

	t.Run("plain OPTIONS is an empty 200", func(t *testing.T) {
		for _, path := range functionPaths {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/functions/v1"+path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
			assert.Zero(t, rec.Body.Len())
		}
	})

	t.Run("preflight carries CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/functions/v1/generate-mcq", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "authorization, x-client-info, apikey, content-type")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRouter_APIRoutes(t *testing.T) {
	var hit string
	r := testRouter(&hit, nil)

	tests := []struct {
		method, path, name string
	}{
		{http.MethodGet, "/api/v1/usage", "usage"},
		{http.MethodGet, "/api/v1/audit", "audit"},
		{http.MethodPost, "/api/v1/content", "content.create"},
		{http.MethodGet, "/api/v1/content", "content.list"},
		{http.MethodGet, "/api/v1/content/5b1f0f5e-7c5e-4c1e-9a53-0d4a8e0b7a11", "content.get"},
		{http.MethodDelete, "/api/v1/content/5b1f0f5e-7c5e-4c1e-9a53-0d4a8e0b7a11", "content.delete"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			hit = ""
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, hit)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer x")
			rec = httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.name, hit)
		})
	}
}

func TestRouter_Health(t *testing.T) {
	var hit string

	t.Run("live", func(t *testing.T) {
		rec := httptest.NewRecorder()
		testRouter(&hit, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ready reports each dependency", func(t *testing.T) {
		r := testRouter(&hit, map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("down") },
			"nats":     nil,
		})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body struct {
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "degraded", body.Data["status"])
		assert.Equal(t, "healthy", body.Data["database"])
		assert.Equal(t, "unhealthy", body.Data["redis"])
		assert.Equal(t, "not configured", body.Data["nats"])
	})

	t.Run("ready when all healthy", func(t *testing.T) {
		r := testRouter(&hit, map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
		})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		testRouter(&hit, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
