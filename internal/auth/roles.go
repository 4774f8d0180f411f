package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/MohamadAlaskari/EventHub/pkg/util/errorutil"
)

// RequireUser ensures a caller is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireVerifiedEmail ensures the access token was issued to a user whose
// email was verified at issuance time.
func RequireVerifiedEmail() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.IsEmailVerified {
			return apperrors.NewForbidden("EMAIL_NOT_VERIFIED", "email not verified")
		}
		return c.Next()
	}
}
