package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/MohamadAlaskari/EventHub/internal/api/http/handlers"
	"github.com/MohamadAlaskari/EventHub/internal/auth"
	"github.com/MohamadAlaskari/EventHub/internal/config"
	"github.com/MohamadAlaskari/EventHub/internal/domain"
	"github.com/MohamadAlaskari/EventHub/internal/observability"
	"github.com/MohamadAlaskari/EventHub/internal/repository"
	"github.com/MohamadAlaskari/EventHub/internal/service"
	apperrors "github.com/MohamadAlaskari/EventHub/pkg/util/errorutil"
)

type memoryDirectory struct {
	mu     sync.Mutex
	users  map[string]domain.User
	hasher auth.PasswordHasher
}

func (d *memoryDirectory) Create(_ context.Context, name, email, password string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	email = service.NormalizeEmail(email)
	for _, u := range d.users {
		if u.Email == email {
			return nil, apperrors.NewConflict("email already registered", nil)
		}
	}
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := domain.User{ID: fmt.Sprintf("u%d", len(d.users)+1), Name: name, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	d.users[user.ID] = user
	return &user, nil
}

func (d *memoryDirectory) FindByID(_ context.Context, id string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (d *memoryDirectory) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == service.NormalizeEmail(email) {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (d *memoryDirectory) Update(_ context.Context, user *domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	d.users[user.ID] = *user
	return nil
}

type capturingNotifier struct {
	mu     sync.Mutex
	tokens []string
}

func (n *capturingNotifier) SendVerificationEmail(_ context.Context, _, _, token, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens = append(n.tokens, token)
	return nil
}

func (n *capturingNotifier) SendWelcomeEmail(context.Context, string, string) error { return nil }

func (n *capturingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.tokens) == 0 {
		return ""
	}
	return n.tokens[len(n.tokens)-1]
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	app      *fiber.App
	svc      *service.AuthService
	notifier *capturingNotifier
}

func newTestServer(t *testing.T, deps map[string]handlers.Pinger) *testServer {
	t.Helper()
	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:         "access",
		RefreshSecret:     "refresh",
		EmailVerifySecret: "verify",
		AccessTokenTTL:    30 * time.Minute,
		RefreshTokenTTL:   48 * time.Hour,
		SessionTTL:        7 * 24 * time.Hour,
		EmailVerifyTTL:    time.Hour,
		BaseURL:           "http://localhost:3000",
	}}
	logger := zaptest.NewLogger(t)
	metrics := observability.NewMetrics()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	notifier := &capturingNotifier{}

	svc := service.NewAuthService(cfg, service.AuthDependencies{
		Users:    &memoryDirectory{users: map[string]domain.User{}, hasher: hasher},
		Sessions: repository.NewMemorySessionStore(nil),
		Hasher:   hasher,
		Notifier: notifier,
		Logger:   logger,
		Metrics:  metrics,
	})
	t.Cleanup(svc.Wait)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("eventhub-api", "test", deps),
		Auth:           handlers.NewAuthHandler(svc),
		AuthMiddleware: auth.NewAuthMiddleware(svc.TokenManager()),
		Metrics:        metrics,
	})
	return &testServer{app: app, svc: svc, notifier: notifier}
}

func (s *testServer) do(t *testing.T, method, path string, body any, bearer string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func (s *testServer) signupAndVerify(t *testing.T, name, email, password string) {
	t.Helper()
	status, _ := s.do(t, http.MethodPost, "/auth/signup", map[string]string{"name": name, "email": email, "password": password}, "")
	require.Equal(t, http.StatusCreated, status)
	status, _ = s.do(t, http.MethodGet, "/auth/verify-email?token="+s.notifier.last(), nil, "")
	require.Equal(t, http.StatusOK, status)
}

func (s *testServer) login(t *testing.T, email, password string) (string, string) {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, status, body)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, http.MethodPost, "/auth/signup", map[string]string{"name": "Alice", "email": "a@x.com", "password": "pw"}, "")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["status"])
	assert.Equal(t, "User created successfully, please verify your email", body["message"])

	status, body = s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "pw"}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", errorCode(body))

	token := s.notifier.last()
	status, body = s.do(t, http.MethodGet, "/auth/verify-email?token="+token, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Email verified successfully", body["message"])

	status, body = s.do(t, http.MethodGet, "/auth/verify-email?token="+token, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Email already verified", body["message"])

	access, refresh := s.login(t, "a@x.com", "pw")

	status, body = s.do(t, http.MethodGet, "/auth/profile", nil, access)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Alice", body["name"])
	assert.Equal(t, true, body["is_email_verified"])
	assert.NotContains(t, body, "password_hash")

	status, body = s.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, status)
	rotated := body["refresh_token"].(string)
	assert.NotEqual(t, refresh, rotated)

	status, body = s.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", errorCode(body))

	status, body = s.do(t, http.MethodPost, "/auth/logout", nil, access)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged out successfully", body["message"])

	status, body = s.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": rotated}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NO_ACTIVE_SESSION", errorCode(body))
}

func TestSignupValidationAndConflict(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, http.MethodPost, "/auth/signup", map[string]string{"name": "", "email": "nope", "password": ""}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "password")

	payload := map[string]string{"name": "Alice", "email": "a@x.com", "password": "pw"}
	status, _ = s.do(t, http.MethodPost, "/auth/signup", payload, "")
	require.Equal(t, http.StatusCreated, status)
	status, body = s.do(t, http.MethodPost, "/auth/signup", payload, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))
}

func TestSignupRejectsOverlongPassword(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, http.MethodPost, "/auth/signup", map[string]string{"name": "Alice", "email": "a@x.com", "password": strings.Repeat("p", 73)}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "must be at most 72 bytes", details["password"])

	status, _ = s.do(t, http.MethodPost, "/auth/signup", map[string]string{"name": "Alice", "email": "a@x.com", "password": strings.Repeat("p", 72)}, "")
	assert.Equal(t, http.StatusCreated, status)
}

func TestSignupRejectsDisplayNameAddress(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, http.MethodPost, "/auth/signup", map[string]string{"name": "Bob", "email": "Bob <b@x.com>", "password": "pw"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
	assert.Empty(t, s.notifier.last())

	s.signupAndVerify(t, "Bob", " b@x.com ", "pw")
	s.login(t, "b@x.com", "pw")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t, nil)
	s.signupAndVerify(t, "Alice", "a@x.com", "pw")

	status, body := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(body))

	status, body = s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "", "password": ""}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestRefreshRejectsWrongKinds(t *testing.T) {
	s := newTestServer(t, nil)
	s.signupAndVerify(t, "Alice", "a@x.com", "pw")
	access, _ := s.login(t, "a@x.com", "pw")

	status, body := s.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": access}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_OR_EXPIRED_TOKEN", errorCode(body), "separate secrets reject the signature first")

	status, body = s.do(t, http.MethodGet, "/auth/verify-email?token="+access, nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_OR_EXPIRED_TOKEN", errorCode(body))

	status, body = s.do(t, http.MethodGet, "/auth/verify-email", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestProtectedRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	s.signupAndVerify(t, "Alice", "a@x.com", "pw")
	_, refresh := s.login(t, "a@x.com", "pw")

	status, body := s.do(t, http.MethodGet, "/auth/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = s.do(t, http.MethodPost, "/auth/logout", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, status)

	unverified, _, err := s.svc.TokenManager().Issue(auth.AccessClaims(&domain.User{ID: "u1", Name: "Alice", Email: "a@x.com"}))
	require.NoError(t, err)
	status, body = s.do(t, http.MethodGet, "/auth/profile", nil, unverified)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", errorCode(body))

	ghost, _, err := s.svc.TokenManager().Issue(auth.AccessClaims(&domain.User{ID: "ghost", Name: "G", Email: "g@x.com", IsEmailVerified: true}))
	require.NoError(t, err)
	status, body = s.do(t, http.MethodGet, "/auth/profile", nil, ghost)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, map[string]handlers.Pinger{"postgres": failingPinger{}})

	status, body := s.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(body))

	status, body = s.do(t, http.MethodGet, "/does-not-exist", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "http_requests_total")
}
