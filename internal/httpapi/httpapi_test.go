package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudtutor/cloudtutor/internal/auth"
	"github.com/cloudtutor/cloudtutor/internal/model"
	"github.com/cloudtutor/cloudtutor/internal/pipeline"
	"github.com/cloudtutor/cloudtutor/internal/ratelimit"
	"github.com/cloudtutor/cloudtutor/internal/state"
)

func newTestServer(t *testing.T, mutate func(*Config)) http.Handler {
	t.Helper()
	store, err := state.NewLocalStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	orch := pipeline.New(pipeline.Config{Store: store, Offline: true})
	cfg := Config{
		Orchestrator: orch,
		Offline:      true,
		Store:        store,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg).Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Fatalf("body = %v", got)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/healthz", nil, http.Header{"X-Request-Id": {"req-42"}})
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("request id = %q, want echoed", got)
	}

	rec = doJSON(t, h, http.MethodGet, "/healthz", nil, nil)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id must be generated when absent")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/v1/session/start", map[string]any{
		"user_id": "alice",
		"minutes": 45,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	start := decode[startSessionResponse](t, rec)
	if !start.OfflineUsed {
		t.Fatal("offline deployment must report offline_used")
	}
	if start.UserID != "alice" || len(start.Exam.Questions) == 0 {
		t.Fatalf("start = %+v", start.StartResult)
	}

	answers := map[string]int{}
	for _, q := range start.Exam.Questions {
		answers[q.ID] = q.AnswerKey
	}
	rec = doJSON(t, h, http.MethodPost, "/v1/session/submit", map[string]any{
		"user_id": "alice",
		"exam":    start.Exam,
		"answers": map[string]any{"answers": answers},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	submit := decode[submitSessionResponse](t, rec)
	if len(submit.Diagnosis.Results) != len(start.Exam.Questions) {
		t.Fatalf("diagnosis = %+v", submit.Diagnosis)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/state/alice", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
	st := decode[model.StudentState](t, rec)
	total := 0
	for _, stat := range st.DomainStats {
		total += stat.Attempted
	}
	if total != len(start.Exam.Questions) {
		t.Fatalf("persisted attempts = %d", total)
	}
}

func TestStartRejectsBadInput(t *testing.T) {
	h := newTestServer(t, nil)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"bad mode", map[string]any{"mode": "chaos"}},
		{"zero minutes", map[string]any{"minutes": 0}},
		{"oversized user id", map[string]any{"user_id": string(make([]byte, 200))}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/v1/session/start", tc.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSubmitRejectsTamperedExam(t *testing.T) {
	h := newTestServer(t, nil)

	start := decode[startSessionResponse](t,
		doJSON(t, h, http.MethodPost, "/v1/session/start", map[string]any{"user_id": "bob"}, nil))

	rec := doJSON(t, h, http.MethodPost, "/v1/session/submit", map[string]any{
		"user_id": "bob",
		"exam":    start.Exam,
		"answers": map[string]any{"answers": map[string]int{"no-such-id": 0}},
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRateLimitReturns429(t *testing.T) {
	h := newTestServer(t, func(cfg *Config) {
		cfg.Limiter = ratelimit.New(1, time.Minute)
	})

	if rec := doJSON(t, h, http.MethodGet, "/v1/state/alice", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := doJSON(t, h, http.MethodGet, "/v1/state/alice", nil, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("429 must carry Retry-After")
	}
}

func TestAuthGatesAndRekeysState(t *testing.T) {
	const secret = "api-secret"
	h := newTestServer(t, func(cfg *Config) {
		cfg.Authorizer = auth.NewJWTAuthorizer(secret, "")
	})

	rec := doJSON(t, h, http.MethodPost, "/v1/session/start", map[string]any{"user_id": "alice"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Fatal("401 must carry WWW-Authenticate")
	}

	token, err := auth.IssueToken(secret, "user-7", "contoso", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	header := http.Header{"Authorization": {"Bearer " + token}}

	rec = doJSON(t, h, http.MethodPost, "/v1/session/start", map[string]any{"user_id": "alice"}, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	start := decode[startSessionResponse](t, rec)
	// The token identity wins over the requested user id.
	if start.UserID != "contoso:user-7" {
		t.Fatalf("user id = %q, want token identity", start.UserID)
	}
}
