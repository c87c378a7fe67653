package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edugen-platform/edugen/internal/auth"
	"github.com/edugen-platform/edugen/internal/completion"
	inats "github.com/edugen-platform/edugen/internal/nats"
	"github.com/edugen-platform/edugen/internal/ratelimit"
	"github.com/edugen-platform/edugen/internal/usage"
)

// callLog records the order in which collaborators are reached.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	l.calls = append(l.calls, s)
	l.mu.Unlock()
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeAuth struct {
	log       *callLog
	accountID uuid.UUID
}

func (f *fakeAuth) Authenticate(r *http.Request) (*auth.AccessClaims, error) {
	f.log.add("auth")
	switch r.Header.Get("Authorization") {
	case "":
		return nil, auth.ErrMissingToken
	case "Bearer good":
		return &auth.AccessClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: f.accountID.String()}}, nil
	default:
		return nil, auth.ErrInvalidToken
	}
}

type fakeLimiter struct {
	log   *callLog
	inner ratelimit.Limiter
	err   error
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	f.log.add("limiter")
	if f.err != nil {
		return false, f.err
	}
	return f.inner.Allow(ctx, key)
}

type fakeLedger struct {
	log   *callLog
	allow bool
	err   error
	kinds []usage.Kind
}

func (f *fakeLedger) TryConsume(_ context.Context, _ uuid.UUID, kind usage.Kind) (bool, error) {
	f.log.add("ledger")
	f.kinds = append(f.kinds, kind)
	return f.allow, f.err
}

type fakeCompleter struct {
	log   *callLog
	reply string
	err   error
	reqs  []completion.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req completion.Request) (string, error) {
	f.log.add("completer")
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

type fakePublisher struct {
	events []inats.GenerationEvent
	err    error
}

func (f *fakePublisher) PublishGenerationEvent(_ context.Context, e inats.GenerationEvent) error {
	f.events = append(f.events, e)
	return f.err
}

type harness struct {
	log       *callLog
	accountID uuid.UUID
	limiter   *fakeLimiter
	ledger    *fakeLedger
	completer *fakeCompleter
	events    *fakePublisher
	pipeline  *Pipeline
}

const mcqReply = "Here you go:\n[{\"question\":\"Q\",\"options\":[\"A\",\"B\",\"C\",\"D\"],\"answer\":\"B\",\"explanation\":\"E\"}]"

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{log: &callLog{}, accountID: uuid.New()}
	h.limiter = &fakeLimiter{log: h.log, inner: ratelimit.NewMemory(5, time.Minute)}
	h.ledger = &fakeLedger{log: h.log, allow: true}
	h.completer = &fakeCompleter{log: h.log, reply: mcqReply}
	h.events = &fakePublisher{}
	h.pipeline = NewPipeline(&fakeAuth{log: h.log, accountID: h.accountID}, h.limiter, h.ledger, h.completer, h.events, time.Minute)
	return h
}

func (h *harness) do(ep Endpoint, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/"+ep.Name, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.pipeline.Handler(ep).ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

const validMCQ = `{"subject":"Physics","topic":"Optics","difficulty":"easy","count":1}`

func TestPipeline_MCQSuccess(t *testing.T) {
	h := newHarness(t)

	rec := h.do(MCQ, validMCQ, "good")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		MCQs []map[string]any `json:"mcqs"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.MCQs, 1)
	assert.Equal(t, "Q", body.MCQs[0]["question"])

	assert.Equal(t, []string{"auth", "limiter", "ledger", "completer"}, h.log.list())
	assert.Equal(t, []usage.Kind{usage.KindMCQ}, h.ledger.kinds)

	require.Len(t, h.completer.reqs, 1)
	req := h.completer.reqs[0]
	assert.Equal(t, MCQ.System, req.System)
	assert.False(t, req.JSONObject)
	assert.Contains(t, req.Prompt, "Generate 1 multiple choice questions about Optics in Physics")

	require.Len(t, h.events.events, 1)
	assert.Equal(t, h.accountID, h.events.events[0].AccountID)
	assert.Equal(t, "mcq", h.events.events[0].Kind)
}

func TestPipeline_LedgerHappensBeforeCompletion(t *testing.T) {
	for _, tc := range []struct {
		ep    Endpoint
		body  string
		reply string
	}{
		{MCQ, validMCQ, mcqReply},
		{Paper, `{"subject":"Maths","topics":"Algebra"}`, `{"oneMarks":[],"twoMarks":[],"fiveMarks":[]}`},
		{VoiceNotes, `{"text":"Photosynthesis converts light into chemical energy."}`, `{"summary":"s","mcqs":[]}`},
	} {
		t.Run(tc.ep.Name, func(t *testing.T) {
			h := newHarness(t)
			h.completer.reply = tc.reply

			rec := h.do(tc.ep, tc.body, "good")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			calls := h.log.list()
			ledgerAt, completerAt := -1, -1
			for i, c := range calls {
				switch c {
				case "ledger":
					ledgerAt = i
				case "completer":
					completerAt = i
				}
			}
			require.NotEqual(t, -1, ledgerAt)
			require.NotEqual(t, -1, completerAt)
			assert.Less(t, ledgerAt, completerAt)
		})
	}
}

func TestPipeline_PaperResponseShape(t *testing.T) {
	h := newHarness(t)
	h.completer.reply = "Sure!\n{\"oneMarks\":[{\"question\":\"q\",\"marks\":1,\"answer\":\"a\"}],\"twoMarks\":[],\"fiveMarks\":[]}\nGood luck."

	rec := h.do(Paper, `{"subject":"Maths","topics":"Algebra"}`, "good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"paper":{"oneMarks":[{"question":"q","marks":1,"answer":"a"}],"twoMarks":[],"fiveMarks":[]}}`, rec.Body.String())
	assert.True(t, h.completer.reqs[0].JSONObject)
	assert.Equal(t, []usage.Kind{usage.KindPaper}, h.ledger.kinds)
}

func TestPipeline_VoiceResponseIsUnwrapped(t *testing.T) {
	h := newHarness(t)
	h.completer.reply = `{"summary":"Plants make food.","mcqs":[{"question":"q","options":["a","b","c","d"],"answer":"a"}]}`

	rec := h.do(VoiceNotes, `{"text":"Photosynthesis converts light into chemical energy."}`, "good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, h.completer.reply, rec.Body.String())
	assert.Equal(t, []usage.Kind{usage.KindVoice}, h.ledger.kinds)
}

func TestPipeline_ValidationRejectsBeforeAnyCollaborator(t *testing.T) {
	long := strings.Repeat("s", 101)
	tests := []struct {
		name string
		ep   Endpoint
		body string
		want string
	}{
		{"mcq subject too long", MCQ, `{"subject":"` + long + `","topic":"t","difficulty":"easy","count":1}`, "Subject must be 100 characters or less"},
		{"paper subject too long", Paper, `{"subject":"` + long + `","topics":"t"}`, "Subject must be 100 characters or less"},
		{"bad difficulty", MCQ, `{"subject":"s","topic":"t","difficulty":"Impossible","count":1}`, "Difficulty must be one of: easy, medium, hard"},
		{"count zero", MCQ, `{"subject":"s","topic":"t","difficulty":"easy","count":0}`, "Count must be between 1 and 10"},
		{"count eleven", MCQ, `{"subject":"s","topic":"t","difficulty":"easy","count":11}`, "Count must be between 1 and 10"},
		{"short text", VoiceNotes, `{"text":"tiny"}`, "Text must be at least 10 characters"},
		{"not json", MCQ, `subject=physics`, "Invalid request body"},
		{"json array", MCQ, `[1,2]`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.do(tt.ep, tt.body, "good")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, errorBody(t, rec))
			assert.Empty(t, h.log.list())
		})
	}
}

func TestPipeline_EscapedTextAtLimitIsAccepted(t *testing.T) {
	h := newHarness(t)
	h.completer.reply = `{"summary":"s","mcqs":[]}`

	// U+1F600 written as an escaped surrogate pair takes 12 bytes.
	text := strings.Repeat(`\ud83d\ude00`, MaxTextLength)
	rec := h.do(VoiceNotes, `{"text":"`+text+`"}`, "good")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []usage.Kind{usage.KindVoice}, h.ledger.kinds)
}

func TestPipeline_OversizedBodyIsRejected(t *testing.T) {
	h := newHarness(t)

	rec := h.do(VoiceNotes, `{"text":"`+strings.Repeat("a", maxBodyBytes)+`"}`, "good")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", errorBody(t, rec))
	assert.Empty(t, h.log.list())
}

func TestPipeline_CountBoundariesProceed(t *testing.T) {
	for _, count := range []string{"1", "10"} {
		h := newHarness(t)
		rec := h.do(MCQ, `{"subject":"s","topic":"t","difficulty":"easy","count":`+count+`}`, "good")
		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, h.completer.reqs, 1)
		assert.Contains(t, h.completer.reqs[0].Prompt, "Generate "+count+" multiple choice questions")
	}
}

func TestPipeline_Authentication(t *testing.T) {
	h := newHarness(t)

	rec := h.do(MCQ, validMCQ, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", errorBody(t, rec))

	rec = h.do(MCQ, validMCQ, "forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid authentication", errorBody(t, rec))

	assert.Equal(t, []string{"auth", "auth"}, h.log.list())
}

func TestPipeline_RateLimit(t *testing.T) {
	h := newHarness(t)
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	h.limiter.inner = ratelimit.NewMemory(5, time.Minute, ratelimit.WithClock(func() time.Time { return clock }))

	for i := 0; i < 5; i++ {
		rec := h.do(MCQ, validMCQ, "good")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := h.do(MCQ, validMCQ, "good")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests. Please wait a minute before trying again.", errorBody(t, rec))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Len(t, h.ledger.kinds, 5, "a rate-limited request must not consume quota")

	clock = clock.Add(time.Minute + time.Second)
	rec = h.do(MCQ, validMCQ, "good")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPipeline_RateLimiterErrorFailsOpen(t *testing.T) {
	h := newHarness(t)
	h.limiter.err = errors.New("redis down")

	rec := h.do(MCQ, validMCQ, "good")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPipeline_QuotaRejections(t *testing.T) {
	t.Run("over quota", func(t *testing.T) {
		h := newHarness(t)
		h.ledger.allow = false

		rec := h.do(MCQ, validMCQ, "good")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Usage limit exceeded. Please upgrade your plan.", errorBody(t, rec))
		assert.Empty(t, h.completer.reqs)
	})

	t.Run("ledger unavailable", func(t *testing.T) {
		h := newHarness(t)
		h.ledger.err = errors.New("connection refused")

		rec := h.do(MCQ, validMCQ, "good")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Usage limit exceeded. Please upgrade your plan.", errorBody(t, rec))
		assert.Empty(t, h.completer.reqs)
	})
}

func TestPipeline_UpstreamFailuresAreGeneric(t *testing.T) {
	t.Run("completion error", func(t *testing.T) {
		h := newHarness(t)
		h.completer.err = errors.New("upstream status 502: secret internals")

		rec := h.do(MCQ, validMCQ, "good")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "An error occurred. Please try again.", errorBody(t, rec))
		assert.Equal(t, []usage.Kind{usage.KindMCQ}, h.ledger.kinds, "quota stays consumed")
		assert.Empty(t, h.events.events)
	})

	t.Run("no json in reply", func(t *testing.T) {
		h := newHarness(t)
		h.completer.reply = "I'm sorry, I cannot help with that."

		rec := h.do(MCQ, validMCQ, "good")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "An error occurred. Please try again.", errorBody(t, rec))
	})
}

func TestPipeline_PublishErrorDoesNotAffectResponse(t *testing.T) {
	h := newHarness(t)
	h.events.err = errors.New("nats down")

	rec := h.do(MCQ, validMCQ, "good")
	assert.Equal(t, http.StatusOK, rec.Code)
}
