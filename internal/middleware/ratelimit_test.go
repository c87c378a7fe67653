package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/edugen-platform/edugen/internal/ratelimit"
)

func setupRateLimiter(t *testing.T, maxReqs int) (func(http.Handler) http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	l := ratelimit.NewRedis(client, maxReqs, time.Minute)
	return IPRateLimit(l, "payments", time.Minute), mr
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	mw, _ := setupRateLimiter(t, 5)
	handler := mw(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "/functions/v1/verify-razorpay-payment", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	mw, _ := setupRateLimiter(t, 3)
	handler := mw(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/functions/v1/verify-razorpay-payment", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	// 4th request should be blocked
	req := httptest.NewRequest("POST", "/functions/v1/verify-razorpay-payment", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After: 60, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_DifferentIPsIndependent(t *testing.T) {
	mw, _ := setupRateLimiter(t, 2)
	handler := mw(okHandler())

	// Exhaust IP 1
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/", nil)
		req.RemoteAddr = "1.1.1.1:1"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	// IP 2 should still be allowed
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "2.2.2.2:1"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for different IP, got %d", rec.Code)
	}
}

func TestRateLimiter_KeysOnTrustedForwardedHop(t *testing.T) {
	mw, _ := setupRateLimiter(t, 1)
	handler := ClientIP(1)(mw(okHandler()))

	send := func(xff string) int {
		req := httptest.NewRequest("POST", "/", nil)
		req.RemoteAddr = "127.0.0.1:1"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("5.5.5.5"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	// The client can prepend anything; the proxy-appended entry still wins.
	if code := send("9.9.9.9, 5.5.5.5"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for same proxied client, got %d", code)
	}
	if code := send("6.6.6.6"); code != http.StatusOK {
		t.Fatalf("expected 200 for another proxied client, got %d", code)
	}
}

func TestRateLimiter_IgnoresForwardedForWithoutTrustedProxy(t *testing.T) {
	mw, _ := setupRateLimiter(t, 1)
	handler := ClientIP(0)(mw(okHandler()))

	send := func(xff string) int {
		req := httptest.NewRequest("POST", "/", nil)
		req.RemoteAddr = "7.7.7.7:1"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("1.0.0.1"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := send("1.0.0.2"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 when rotating X-Forwarded-For, got %d", code)
	}
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	mw, mr := setupRateLimiter(t, 1)
	mr.Close() // kill Redis

	handler := mw(okHandler())

	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "3.3.3.3:1"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on Redis failure (fail-open), got %d", rec.Code)
	}
}
