package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mathwizard/internal/config"
	"mathwizard/internal/credentials"
	"mathwizard/internal/database"
	"mathwizard/internal/repository"
	"mathwizard/internal/security"
	"mathwizard/internal/service"
	"mathwizard/internal/validation"
)

const (
	testSecret        = "handlers-test-secret-0123456789abcdef"
	testAdminEmail    = "admin@mathwizard.test"
	testAdminPassword = "admin-secret"
)

type capturedMail struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *capturedMail) SendVerificationEmail(_ context.Context, toEmail, _, token, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[toEmail] = token
	return nil
}

func (m *capturedMail) tokenFor(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

type testServer struct {
	handler http.Handler
	mail    *capturedMail
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background()))

	parents := repository.NewParentRepository(db)
	schools := repository.NewSchoolRepository(db)
	children := repository.NewChildRepository(db)
	partners := repository.NewPartnerRepository(db)
	logs := repository.NewSystemLogRepository(db)
	topics := repository.NewTopicRepository(db)
	codec := credentials.NewCodec(bcrypt.MinCost)
	mail := &capturedMail{tokens: map[string]string{}}

	authService := service.NewAuthService(parents, schools, children, codec, credentials.NewIssuer(), mail, config.AuthConfig{
		AdminEmail:    testAdminEmail,
		AdminPassword: testAdminPassword,
	})
	audit := service.NewAuditService(logs)

	sessions, err := security.NewSessionManager(testSecret, time.Hour)
	require.NoError(t, err)
	authorizer, err := security.NewAuthorizer()
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		Middleware: NewMiddleware(sessions, authorizer),
		Auth:       NewAuthHandler(authService, sessions),
		Children:   NewChildHandler(service.NewRosterService(parents, children, codec)),
		Parents: NewParentHandler(
			service.NewParentService(parents),
			service.NewPartnerService(parents, partners, codec),
			service.NewCheckoutService(config.CheckoutConfig{}),
		),
		Admin: NewAdminHandler(
			service.NewAdminService(parents, schools, audit),
			service.NewBackupService(parents, partners, schools, children, logs, "sqlite"),
		),
		Topics:            NewTopicHandler(service.NewTopicService(topics)),
		Health:            NewHealthHandler(db),
		CORSOrigins:       []string{"http://localhost:3000"},
		RateLimitRequests: 0,
	})

	return &testServer{handler: router, mail: mail}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec, body := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// signUpParent registers, verifies and logs in a parent
func (s *testServer) signUpParent(t *testing.T, email string, maxChildren int) string {
	t.Helper()
	rec, _ := s.do(t, http.MethodPost, "/api/register/parent", "", map[string]any{
		"name":        "Pat Parent",
		"email":       email,
		"password":    "password123",
		"maxChildren": maxChildren,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = s.do(t, http.MethodGet, "/api/verify-email?token="+s.mail.tokenFor(email), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return s.login(t, email, "password123")
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", service.ValidationError("bad year"), http.StatusBadRequest},
		{"quota", service.ErrQuotaReached, http.StatusBadRequest},
		{"partner limit", service.ErrPartnerLimit, http.StatusBadRequest},
		{"credentials", service.ErrBadLogin, http.StatusUnauthorized},
		{"unverified", service.ErrEmailNotVerified, http.StatusForbidden},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"not found", service.ErrParentNotFound, http.StatusNotFound},
		{"conflict", service.ErrUsernameTaken, http.StatusConflict},
		{"wrapped conflict", fmt.Errorf("add child: %w", service.ErrUsernameTaken), http.StatusConflict},
		{"unavailable", service.ErrCheckoutDisabled, http.StatusServiceUnavailable},
		{"request shape", &validation.RequestValidationError{}, http.StatusBadRequest},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestRespondWithErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/anything", nil)
	respondWithError(rec, req, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, ErrInternalServerError, body["error"])
}

func TestRespondSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	respondSuccess(rec, http.StatusCreated, envelope{"message": "done"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "done", body["message"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/topics/Year%201", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = s.do(t, http.MethodGet, "/api/topics/Year%201", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newTestServer(t)
	s.signUpParent(t, "pat@example.com", 2)

	rec, body := s.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "pat@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestLoginUnverifiedParent(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodPost, "/api/register/parent", "", map[string]any{
		"name":     "Pat Parent",
		"email":    "pat@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "pat@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/register/parent", "", map[string]any{
		"name":     "Pat",
		"email":    "not-an-email",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])

	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChildRosterOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.signUpParent(t, "pat@example.com", 1)

	rec, body := s.do(t, http.MethodPost, "/api/children", token, map[string]string{
		"name":     "Sam",
		"username": "sam.one",
		"year":     "Year 2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	child, ok := body["child"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sam.one", child["username"])
	assert.NotEmpty(t, child["password"])

	// quota of one
	rec, body = s.do(t, http.MethodPost, "/api/children", token, map[string]string{
		"name":     "Alex",
		"username": "alex.two",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, body = s.do(t, http.MethodGet, "/api/parents/pat@example.com/children", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"sam.one"}, body["children"])

	rec, _ = s.do(t, http.MethodDelete, "/api/children/sam.one", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// no longer on this roster
	rec, _ = s.do(t, http.MethodGet, "/api/children/sam.one", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestParentCannotReadAnotherRoster(t *testing.T) {
	s := newTestServer(t)
	pat := s.signUpParent(t, "pat@example.com", 2)
	s.signUpParent(t, "lee@example.com", 2)

	rec, _ := s.do(t, http.MethodGet, "/api/parents/lee@example.com/children", pat, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodPut, "/api/parent/settings/lee@example.com", pat, map[string]string{"name": "Mallory"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestParentCannotUseAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.signUpParent(t, "pat@example.com", 2)

	rec, body := s.do(t, http.MethodGet, "/api/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, ErrForbidden, body["error"])
}

func TestAdminListsUsers(t *testing.T) {
	s := newTestServer(t)
	s.signUpParent(t, "pat@example.com", 2)
	admin := s.login(t, testAdminEmail, testAdminPassword)

	rec, body := s.do(t, http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])

	rec, _ = s.do(t, http.MethodGet, "/api/admin/system-logs", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminBackupDownload(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, testAdminEmail, testAdminPassword)

	rec, _ := s.do(t, http.MethodGet, "/api/admin/backup", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "mathwizard_backup_")
	assert.Contains(t, rec.Body.String(), `"version"`)
}

func TestCheckoutDisabled(t *testing.T) {
	s := newTestServer(t)
	token := s.signUpParent(t, "pat@example.com", 2)

	rec, body := s.do(t, http.MethodPost, "/api/create-checkout-session", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, service.ErrCheckoutDisabled.Error(), body["error"])
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

type downPinger struct{}

func (downPinger) PingContext(context.Context) error { return errors.New("connection refused") }

func TestHealthzDegraded(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(downPinger{}).Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unreachable")
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
}
