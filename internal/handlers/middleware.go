package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mathwizard/internal/logging"
	"mathwizard/internal/metrics"
	"mathwizard/internal/models"
	"mathwizard/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const PrincipalContextKey ContextKey = "principal"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	sessions   *security.SessionManager
	authorizer *security.Authorizer
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(sessions *security.SessionManager, authorizer *security.Authorizer) *Middleware {
	return &Middleware{
		sessions:   sessions,
		authorizer: authorizer,
	}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token's principal on the request context
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondWithStatus(w, http.StatusUnauthorized, ErrUnauthorized)
			return
		}

		principal, err := m.sessions.Validate(token)
		if err != nil {
			respondWithStatus(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authorize checks the principal's role against the route policy.
// It must run after RequireAuth.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := GetPrincipalFromContext(r.Context())
		if principal == nil {
			respondWithStatus(w, http.StatusUnauthorized, ErrUnauthorized)
			return
		}

		allowed, err := m.authorizer.Allowed(principal.Role, r.URL.Path, r.Method)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		if !allowed {
			logging.Ctx(r.Context()).Warn().
				Str("role", string(principal.Role)).
				Str("subject", principal.Subject()).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("Access denied")
			respondWithStatus(w, http.StatusForbidden, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequestID assigns a request id, echoes it in X-Request-ID and makes it
// available to logging.Ctx. An incoming X-Request-ID is reused.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 64 {
			id = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// Logging writes one access log entry per request and records request metrics
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.RecordAPIRequest(r.Method, route, status, duration)

		event := logging.Ctx(r.Context()).Info()
		if status >= http.StatusInternalServerError {
			event = logging.Ctx(r.Context()).Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", duration).
			Str("ip", security.GetClientIP(r)).
			Msg("HTTP request")
	})
}

// GetPrincipalFromContext retrieves the authenticated principal from the request context
func GetPrincipalFromContext(ctx context.Context) *models.Principal {
	principal, ok := ctx.Value(PrincipalContextKey).(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}
