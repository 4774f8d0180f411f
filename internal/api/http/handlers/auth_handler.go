package handlers

import (
	"fmt"
	"net/http"
	netmail "net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/MohamadAlaskari/EventHub/internal/api/dto"
	"github.com/MohamadAlaskari/EventHub/internal/auth"
	"github.com/MohamadAlaskari/EventHub/internal/domain"
	"github.com/MohamadAlaskari/EventHub/internal/service"
	apperrors "github.com/MohamadAlaskari/EventHub/pkg/util/errorutil"
)

// AuthHandler exposes signup, login and session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateSignup(req); err != nil {
		return err
	}

	ack, err := h.auth.Signup(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.AckResponse{Status: ack.Status, Message: ack.Message})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, err := h.auth.ValidateUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	if user == nil {
		return service.ErrInvalidCredentials
	}

	tokens, err := h.auth.Login(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(tokensResponse(tokens))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RefreshToken == "" {
		return apperrors.NewValidationError("refresh_token required", nil)
	}

	tokens, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(tokensResponse(tokens))
}

// Logout handles POST /auth/logout for the bearer of the access token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	ack, err := h.auth.Logout(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(dto.AckResponse{Status: ack.Status, Message: ack.Message})
}

// VerifyEmail handles GET /auth/verify-email?token=.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	result, err := h.auth.VerifyEmail(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: result.Message})
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user, err := h.auth.GetProfile(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(dto.UserResponse{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		IsEmailVerified: user.IsEmailVerified,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	})
}

func validateSignup(req dto.SignupRequest) error {
	details := map[string]any{}
	if strings.TrimSpace(req.Name) == "" {
		details["name"] = "required"
	}
	email := strings.TrimSpace(req.Email)
	if addr, err := netmail.ParseAddress(email); err != nil || addr.Address != email {
		details["email"] = "must be a bare email address"
	}
	switch {
	case req.Password == "":
		details["password"] = "required"
	case len(req.Password) > auth.MaxPasswordBytes:
		details["password"] = fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes)
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid signup payload", details)
	}
	return nil
}

func tokensResponse(tokens *domain.Tokens) dto.TokensResponse {
	return dto.TokensResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}
}
