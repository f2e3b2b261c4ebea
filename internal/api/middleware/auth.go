package middleware

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/domain"
)

type SessionLookup interface {
	Lookup(ctx context.Context, token string) (*domain.Session, error)
}

type sessionKey struct{}

func WithSession(ctx context.Context, sess *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func SessionFrom(ctx context.Context) (*domain.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*domain.Session)
	return sess, ok && sess != nil
}

// SessionAuth resolves the session cookie and rejects the request with 401
// when it is missing or unknown.
func SessionAuth(store SessionLookup, cookieName string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			sess, err := store.Lookup(r.Context(), cookie.Value)
			if err != nil {
				if stderrors.Is(err, domain.ErrUnauthenticated) {
					writeError(w, http.StatusUnauthorized, "authentication required")
					return
				}
				logger.Error("Session lookup failed", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "session store unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// CORS echoes listed origins and permits credentials so the dashboard can
// send its session cookie. "*" answers any other origin with a wildcard and
// no credentials, so the cookie never rides a cross-site request.
func CORS(allowed []string) func(http.Handler) http.Handler {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if _, ok := set[origin]; ok && origin != "*" {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Add("Vary", "Origin")
				} else if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
