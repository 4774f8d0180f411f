package auth

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamadAlaskari/EventHub/internal/domain"
	apperrors "github.com/MohamadAlaskari/EventHub/pkg/util/errorutil"
)

func newProtectedApp(tm *TokenManager, guards ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) {
				return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
	handlers := append([]fiber.Handler{NewAuthMiddleware(tm).Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(principal.UserID)
	})
	app.Get("/me", handlers...)
	return app
}

func doGet(t *testing.T, app *fiber.App, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testAuthConfig()
	cfg.RefreshSecret = cfg.JWTSecret
	tm := NewTokenManager(cfg, nil)
	app := newProtectedApp(tm, RequireUser())

	access, _, err := tm.Issue(AccessClaims(testUser()))
	require.NoError(t, err)
	refresh, _, err := tm.Issue(SubjectClaims(domain.TokenKindRefresh, "user-1"))
	require.NoError(t, err)

	status, body := doGet(t, app, "Bearer "+access)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-1", body)

	status, _ = doGet(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doGet(t, app, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doGet(t, app, "Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRequireVerifiedEmail(t *testing.T) {
	tm := NewTokenManager(testAuthConfig(), nil)
	app := newProtectedApp(tm, RequireVerifiedEmail())

	unverified := testUser()
	unverified.IsEmailVerified = false
	access, _, err := tm.Issue(AccessClaims(unverified))
	require.NoError(t, err)

	status, body := doGet(t, app, "Bearer "+access)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", body)

	verified, _, err := tm.Issue(AccessClaims(testUser()))
	require.NoError(t, err)
	status, _ = doGet(t, app, "Bearer "+verified)
	assert.Equal(t, http.StatusOK, status)
}
