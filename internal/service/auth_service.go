package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/MohamadAlaskari/EventHub/internal/auth"
	"github.com/MohamadAlaskari/EventHub/internal/config"
	"github.com/MohamadAlaskari/EventHub/internal/domain"
	"github.com/MohamadAlaskari/EventHub/internal/observability"
	"github.com/MohamadAlaskari/EventHub/internal/repository"
)

const welcomeEmailTimeout = 10 * time.Second

// Ack is the acknowledgement returned by signup and logout.
type Ack struct {
	Status  bool
	Message string
}

// VerifyEmailResult reports the outcome of an email verification.
type VerifyEmailResult struct {
	AlreadyVerified bool
	Message         string
}

// AuthService issues, rotates and revokes tokens and drives email
// verification. Each user has at most one live refresh session.
type AuthService struct {
	users       UserDirectory
	sessions    repository.SessionStore
	credentials *CredentialVerifier
	notifier    Notifier
	tokenMgr    *auth.TokenManager
	logger      *zap.Logger
	metrics     *observability.Metrics
	sessionTTL  time.Duration
	baseURL     string

	mu         sync.Mutex
	closed     bool
	background sync.WaitGroup
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Users    UserDirectory
	Sessions repository.SessionStore
	Hasher   auth.PasswordHasher
	Notifier Notifier
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	// Clock overrides time.Now for token issuance and verification.
	Clock func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.Users,
		sessions:    deps.Sessions,
		credentials: NewCredentialVerifier(deps.Users, deps.Hasher),
		notifier:    deps.Notifier,
		tokenMgr:    auth.NewTokenManager(cfg.Auth, deps.Clock),
		logger:      logger,
		metrics:     deps.Metrics,
		sessionTTL:  cfg.Auth.SessionTTL,
		baseURL:     cfg.Auth.BaseURL,
	}
}

// Signup creates an unverified account and sends the verification link. It
// does not log the user in. Directory errors such as a duplicate email are
// returned unchanged.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (Ack, error) {
	user, err := s.users.Create(ctx, name, email, password)
	if err != nil {
		return Ack{}, err
	}

	token, _, err := s.tokenMgr.Issue(auth.SubjectClaims(domain.TokenKindEmailVerify, user.ID))
	if err != nil {
		return Ack{}, err
	}

	if err := s.notifier.SendVerificationEmail(ctx, user.Email, user.Name, token, s.baseURL); err != nil {
		return Ack{}, fmt.Errorf("send verification email: %w", err)
	}

	s.metrics.RecordAuthEvent(observability.AuthEventSignup)
	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return Ack{Status: true, Message: "User created successfully, please verify your email"}, nil
}

// ValidateUser checks credentials; see CredentialVerifier.Verify.
func (s *AuthService) ValidateUser(ctx context.Context, email, password string) (*domain.User, error) {
	return s.credentials.Verify(ctx, email, password)
}

// Login issues a token pair for a user that already passed ValidateUser. The
// welcome email is sent in the background and cannot fail the login.
func (s *AuthService) Login(ctx context.Context, user *domain.User) (*domain.Tokens, error) {
	s.sendWelcome(user.Email, user.Name)

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAuthEvent(observability.AuthEventLogin)
	return tokens, nil
}

// Refresh rotates the user's session: the presented token must be the one
// currently stored, and it is replaced by a new pair. A refresh token can
// therefore be redeemed once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.Tokens, error) {
	tokens, err := s.refresh(ctx, refreshToken)
	if err != nil {
		s.metrics.RecordAuthEvent(observability.AuthEventRefreshRejected)
		return nil, err
	}
	s.metrics.RecordAuthEvent(observability.AuthEventRefresh)
	return tokens, nil
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (*domain.Tokens, error) {
	claims, err := s.tokenMgr.Parse(domain.TokenKindRefresh, refreshToken)
	if errors.Is(err, auth.ErrWrongTokenKind) {
		return nil, ErrInvalidTokenType
	}
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	user, err := s.findUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	stored, found, err := s.sessions.Get(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoActiveSession
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		return nil, ErrInvalidRefreshToken
	}

	tokens, err := s.signTokens(user)
	if err != nil {
		return nil, err
	}

	swapped, err := s.sessions.CompareAndSwap(ctx, user.ID, refreshToken, tokens.RefreshToken, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Another refresh or a logout won the race since the read above.
		if _, found, err := s.sessions.Get(ctx, user.ID); err == nil && !found {
			return nil, ErrNoActiveSession
		}
		return nil, ErrInvalidRefreshToken
	}
	return tokens, nil
}

// Logout deletes the user's session; outstanding refresh tokens stop working
// immediately. Access tokens remain valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID string) (Ack, error) {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return Ack{}, err
	}
	s.metrics.RecordAuthEvent(observability.AuthEventLogout)
	return Ack{Status: true, Message: "Logged out successfully"}, nil
}

// VerifyEmail marks the token's user as verified. Verifying an already
// verified user succeeds without writing.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (VerifyEmailResult, error) {
	claims, err := s.tokenMgr.Parse(domain.TokenKindEmailVerify, token)
	if errors.Is(err, auth.ErrWrongTokenKind) {
		return VerifyEmailResult{}, ErrInvalidVerificationToken
	}
	if err != nil {
		return VerifyEmailResult{}, ErrInvalidOrExpiredToken
	}

	user, err := s.findUser(ctx, claims.Subject)
	if err != nil {
		return VerifyEmailResult{}, err
	}

	if user.IsEmailVerified {
		return VerifyEmailResult{AlreadyVerified: true, Message: "Email already verified"}, nil
	}

	user.IsEmailVerified = true
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VerifyEmailResult{}, ErrUserNotFound
		}
		return VerifyEmailResult{}, err
	}

	s.metrics.RecordAuthEvent(observability.AuthEventEmailVerified)
	return VerifyEmailResult{Message: "Email verified successfully"}, nil
}

// GetProfile returns the user without the password hash.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// Wait stops scheduling welcome emails and blocks until pending ones have
// finished. Logins after Wait still succeed but send no welcome email.
func (s *AuthService) Wait() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.background.Wait()
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*domain.Tokens, error) {
	tokens, err := s.signTokens(user)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, user.ID, tokens.RefreshToken, s.sessionTTL); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (s *AuthService) signTokens(user *domain.User) (*domain.Tokens, error) {
	access, _, err := s.tokenMgr.Issue(auth.AccessClaims(user))
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.tokenMgr.Issue(auth.SubjectClaims(domain.TokenKindRefresh, user.ID))
	if err != nil {
		return nil, err
	}
	return &domain.Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) findUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) sendWelcome(email, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug("shutting down; welcome email skipped", zap.String("email", email))
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), welcomeEmailTimeout)
		defer cancel()

		if err := s.notifier.SendWelcomeEmail(ctx, email, name); err != nil {
			s.metrics.RecordAuthEvent(observability.AuthEventWelcomeFailed)
			s.logger.Warn("welcome email failed", zap.String("email", email), zap.Error(err))
		}
	}()
}
