package http_handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/response"
)

// seqOTP hands out 1111, 1112, ... so tests know every code in advance.
type seqOTP struct {
	mu   sync.Mutex
	next int
}

func (g *seqOTP) Generate() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next == 0 {
		g.next = 1111
	}
	c := g.next
	g.next++
	return c, nil
}

type testEnv struct {
	handler  http.Handler
	users    *memory.UserStore
	notifier *memory.LogNotifier
	auditLog *bytes.Buffer
}

// newTestEnv wires the real service over in-memory adapters.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := memory.NewUserStore()
	notifier := memory.NewLogNotifier(zerolog.Nop())
	tokens := security.NewJWTIssuer("test-secret", "identity-service", time.Hour)

	svc := auth.NewService(
		users,
		security.NewBcryptHasher(4),
		&seqOTP{},
		tokens,
		notifier,
		auth.Config{},
	)
	auditLog := &bytes.Buffer{}
	svc.WithAudit(audit.New(zerolog.New(auditLog)).Record)
	h := NewAuthHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/verify-otp", h.VerifyOTP)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokens, response.WriteError))
			r.Post("/change-password", h.ChangePassword)
			r.Post("/change-profile", h.ChangeProfile)
			r.Get("/me", h.Me)
		})
	})

	return &testEnv{handler: r, users: users, notifier: notifier, auditLog: auditLog}
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	if s, ok := v.(string); ok {
		return bytes.NewBufferString(s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadJSON decodes JSON from r into out.
func mustReadJSON(t *testing.T, r io.Reader, out any) {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode json failed: %v; body=%s", err, string(raw))
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		rdr = mustJSONBody(t, body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d; body=%s", want, rr.Code, rr.Body.String())
	}
}

type errorBody struct {
	Status    string            `json:"status"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors"`
	RequestID string            `json:"request_id"`
}

func readError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var b errorBody
	mustReadJSON(t, rr.Body, &b)
	return b
}

type sessionBody struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Email    string  `json:"email"`
		Location *string `json:"location"`
		Phone    *string `json:"phone_number"`
		Verified bool    `json:"verified"`
	} `json:"user"`
}

func registerBody(email string) map[string]any {
	return map[string]any{
		"name":                  "Alice",
		"email":                 email,
		"password":              "secret123",
		"password_confirmation": "secret123",
	}
}

// registerAndVerify returns a bearer token for a freshly verified user.
func (e *testEnv) registerAndVerify(t *testing.T, email string) string {
	t.Helper()

	expectStatus(t, e.do(t, http.MethodPost, "/api/register", registerBody(email), ""), http.StatusOK)

	msg, ok := e.notifier.Last(email)
	if !ok {
		t.Fatalf("expected a code to be sent to %s", email)
	}

	rr := e.do(t, http.MethodPost, "/api/verify-otp", map[string]any{"email": email, "otp": msg.Code}, "")
	expectStatus(t, rr, http.StatusOK)

	var s sessionBody
	mustReadJSON(t, rr.Body, &s)
	return s.AccessToken
}
