package service

import (
	"net/http"

	apperrors "github.com/MohamadAlaskari/EventHub/pkg/util/errorutil"
)

// Auth failures. Each carries a distinct code so clients can branch, e.g.
// prompt for re-verification versus force a new login.
var (
	ErrInvalidOrExpiredToken    = apperrors.NewBadRequest("INVALID_OR_EXPIRED_TOKEN", "invalid or expired token")
	ErrInvalidTokenType         = apperrors.NewBadRequest("INVALID_TOKEN_TYPE", "invalid token type")
	ErrInvalidVerificationToken = apperrors.NewDomainError("INVALID_TOKEN", "invalid token", http.StatusNotFound, nil)
	ErrUserNotFound             = apperrors.NewDomainError("NOT_FOUND", "user not found", http.StatusNotFound, nil)
	ErrNoActiveSession          = apperrors.NewForbidden("NO_ACTIVE_SESSION", "no active session")
	ErrInvalidRefreshToken      = apperrors.NewForbidden("INVALID_REFRESH_TOKEN", "invalid refresh token")
	ErrEmailNotVerified         = apperrors.NewForbidden("EMAIL_NOT_VERIFIED", "email not verified")
	ErrInvalidCredentials       = apperrors.NewDomainError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
)
