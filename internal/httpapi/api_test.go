package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sevadarpan.org/internal/audit"
	"sevadarpan.org/internal/auth"
	"sevadarpan.org/internal/perf"
)

type testEnv struct {
	handler   http.Handler
	users     *auth.InMemory
	perfStore *perf.InMemory
	sink      *audit.MemorySink
	recorder  *audit.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("SEVADARPAN_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	users := auth.NewInMemory()
	if err := auth.SeedDemo(context.Background(), users); err != nil {
		t.Fatalf("seed demo: %v", err)
	}
	perfStore := perf.NewInMemory()
	perfSvc, err := perf.NewService(perfStore)
	if err != nil {
		t.Fatalf("perf service: %v", err)
	}
	sink := audit.NewMemorySink()
	recorder := audit.NewRecorder(sink)

	api := New(Config{
		Users:    users,
		Owners:   perfStore,
		Perf:     perfSvc,
		Recorder: recorder,
		AuditLog: sink,
		Version:  "test",
	})
	return &testEnv{
		handler:   api.Handler(),
		users:     users,
		perfStore: perfStore,
		sink:      sink,
		recorder:  recorder,
	}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) doWith2FA(t *testing.T, method, path, token string, body any, code string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-2FA-Token", code)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	return rr
}

// login returns a session token for one of the demo fixture accounts.
func (env *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", email, rr.Code, rr.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if !resp.Success || resp.Token == "" {
		t.Fatalf("unexpected login response: %s", rr.Body.String())
	}
	return resp.Token
}

func (env *testEnv) userByEmail(t *testing.T, email string) *auth.User {
	t.Helper()
	u, err := env.users.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("find %s: %v", email, err)
	}
	return u
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func TestHealthEndpointsArePublic(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/health", "/api/ready", "/api/info"} {
		rr := env.do(t, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-Id", "trace-123")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-Id"); got != "trace-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}
