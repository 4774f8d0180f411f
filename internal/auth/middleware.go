package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/MohamadAlaskari/EventHub/internal/domain"
	apperrors "github.com/MohamadAlaskari/EventHub/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller as described by its access token.
type Principal struct {
	UserID          string
	Name            string
	Email           string
	IsEmailVerified bool
}

// AuthMiddleware validates bearer access tokens.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes. Refresh and
// email-verify tokens are rejected even when signed with the same secret.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.Parse(domain.TokenKindAccess, strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &Principal{
		UserID:          claims.Subject,
		Name:            claims.Name,
		Email:           claims.Email,
		IsEmailVerified: claims.IsEmailVerified(),
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
