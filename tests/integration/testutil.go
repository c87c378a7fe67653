//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/edugen-platform/edugen/internal/api"
	"github.com/edugen-platform/edugen/internal/audit"
	"github.com/edugen-platform/edugen/internal/auth"
	"github.com/edugen-platform/edugen/internal/completion"
	"github.com/edugen-platform/edugen/internal/config"
	"github.com/edugen-platform/edugen/internal/content"
	"github.com/edugen-platform/edugen/internal/database"
	"github.com/edugen-platform/edugen/internal/generation"
	"github.com/edugen-platform/edugen/internal/payments"
	"github.com/edugen-platform/edugen/internal/ratelimit"
	"github.com/edugen-platform/edugen/internal/usage"
)

const (
	jwtSecret      = "integration-secret-that-is-32-chars!"
	razorpaySecret = "rzp_test_secret"
	freeLimit      = 10
)

const mcqReply = `[{"question":"Q?","options":["A","B","C","D"],"correct_answer":"A","explanation":"E"}]`

type TestEnv struct {
	Pool   *pgxpool.Pool
	Server *httptest.Server
}

var (
	testEnv *TestEnv
	setupMu sync.Mutex
	emailID atomic.Int64
)

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	setupMu.Lock()
	defer setupMu.Unlock()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "edugen_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/edugen_test?sslmode=disable", pgHost, pgPort.Port())
	if err := database.RunMigrations(dsn, getMigrationsPath()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}

	// Stands in for the completion API; always answers with one MCQ.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":   0,
				"message": map[string]string{"role": "assistant", "content": mcqReply},
			}},
		})
	}))

	// Stands in for the Razorpay Orders API.
	var orderSeq atomic.Int64
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       fmt.Sprintf("order_it_%d", orderSeq.Add(1)),
			"amount":   req.Amount,
			"currency": req.Currency,
			"receipt":  req.Receipt,
			"status":   "created",
		})
	}))

	authSvc := auth.NewService(auth.NewJWTManager(jwtSecret, "authenticated"))
	pipeline := generation.NewPipeline(
		authSvc,
		// A high ceiling keeps the limiter out of the way of quota tests.
		ratelimit.NewMemory(1000, time.Minute),
		usage.NewPostgresLedger(pool, freeLimit),
		completion.NewClient(config.AIConfig{
			BaseURL: upstream.URL + "/v1",
			APIKey:  "test",
			Model:   "test-model",
			Timeout: 5 * time.Second,
		}),
		nil,
		time.Minute,
	)
	razorpay := payments.NewRazorpayClient(config.RazorpayConfig{
		KeyID:     "rzp_key",
		KeySecret: razorpaySecret,
		BaseURL:   gateway.URL,
	})
	paymentHandler := payments.NewHandler(payments.NewService(payments.NewRepository(pool), razorpay, nil, "rzp_key", razorpaySecret))
	usageHandler := usage.NewHandler(usage.NewService(usage.NewRepository(pool), freeLimit))
	contentHandler := content.NewHandler(content.NewService(content.NewRepository(pool), nil))
	auditHandler := audit.NewHandler(audit.NewRepository(pool))

	router := api.NewRouter(api.RouterConfig{
		Checks: map[string]api.HealthCheck{
			"database": func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
		},
	}, api.HandlerSet{
		GenerateMCQ:         pipeline.Handler(generation.MCQ),
		GeneratePaper:       pipeline.Handler(generation.Paper),
		ProcessVoiceNotes:   pipeline.Handler(generation.VoiceNotes),
		CreateOrder:         paymentHandler.CreateOrder,
		VerifyPayment:       paymentHandler.Verify,
		GetUsage:            usageHandler.Get,
		CreateContent:       contentHandler.Create,
		ListContent:         contentHandler.List,
		GetContent:          contentHandler.Get,
		DeleteContent:       contentHandler.Delete,
		OwnershipMiddleware: contentHandler.OwnershipMiddleware,
		ListAuditLogs:       auditHandler.List,
		AuthMiddleware:      auth.Middleware(authSvc),
	})

	testEnv = &TestEnv{Pool: pool, Server: httptest.NewServer(router)}
	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// NewAccount returns a fresh account id and an access token for it.
func NewAccount(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.AccessClaims{
		Email: fmt.Sprintf("teacher-%d@test.com", emailID.Add(1)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return id, signed
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

// CreateOrder opens an order for plan and returns its id.
func CreateOrder(t *testing.T, env *TestEnv, token, plan string) string {
	t.Helper()
	resp := DoRequest(t, env, http.MethodPost, "/functions/v1/create-razorpay-order", map[string]string{"planId": plan}, token)
	result := ParseResponse(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("creating order: status %d: %v", resp.StatusCode, result)
	}
	return result["orderId"].(string)
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
