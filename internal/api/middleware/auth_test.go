package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/domain"
)

type lookupFunc func(ctx context.Context, token string) (*domain.Session, error)

func (f lookupFunc) Lookup(ctx context.Context, token string) (*domain.Session, error) {
	return f(ctx, token)
}

func TestSessionAuth(t *testing.T) {
	store := lookupFunc(func(_ context.Context, token string) (*domain.Session, error) {
		switch token {
		case "good":
			return &domain.Session{UserID: "u1", Plan: domain.PlanFree}, nil
		case "broken":
			return nil, stderrors.New("redis down")
		default:
			return nil, domain.ErrUnauthenticated
		}
	})

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFrom(r.Context())
		if !ok {
			t.Fatalf("expected session in context")
		}
		seen = sess.UserID
		w.WriteHeader(http.StatusNoContent)
	})
	h := SessionAuth(store, "tf_session", zap.NewNop())(next)

	cases := []struct {
		token string
		want  int
	}{
		{"", http.StatusUnauthorized},
		{"bad", http.StatusUnauthorized},
		{"broken", http.StatusServiceUnavailable},
		{"good", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.token != "" {
			req.AddCookie(&http.Cookie{Name: "tf_session", Value: tc.token})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("token %q: expected %d, got %d", tc.token, tc.want, rec.Code)
		}
	}
	if seen != "u1" {
		t.Fatalf("expected handler to see u1, got %q", seen)
	}
}

func TestRecoveryReturns500(t *testing.T) {
	h := Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin header, got %q", got)
	}
}

func TestCORSWildcardOmitsCredentials(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard allow-origin, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("expected no credentials for wildcard origin, got %q", got)
	}
}

func TestCORSListedOriginKeepsCredentialsAlongsideWildcard(t *testing.T) {
	h := CORS([]string{"*", "https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected listed origin to be echoed, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials for listed origin, got %q", got)
	}
}
