package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MohamadAlaskari/EventHub/internal/config"
	"github.com/MohamadAlaskari/EventHub/internal/domain"
)

var (
	// ErrInvalidOrExpired covers bad signatures, malformed tokens and expired tokens.
	ErrInvalidOrExpired = errors.New("token invalid or expired")
	// ErrWrongTokenKind is returned when a validly signed token is presented
	// where a different kind is expected, or lacks a subject.
	ErrWrongTokenKind = errors.New("unexpected token kind")
)

// Claims describes the JWT payload shared by every token kind. Name, Email and
// EmailVerified are only set on access tokens.
type Claims struct {
	Kind          domain.TokenKind `json:"type"`
	Name          string           `json:"name,omitempty"`
	Email         string           `json:"email,omitempty"`
	EmailVerified *bool            `json:"isEmailVerified,omitempty"`
	jwt.RegisteredClaims
}

// IsEmailVerified reports the snapshot carried by an access token.
func (c *Claims) IsEmailVerified() bool {
	return c.EmailVerified != nil && *c.EmailVerified
}

// AccessClaims builds the claim set for an access token.
func AccessClaims(user *domain.User) Claims {
	verified := user.IsEmailVerified
	return Claims{
		Kind:             domain.TokenKindAccess,
		Name:             user.Name,
		Email:            user.Email,
		EmailVerified:    &verified,
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
	}
}

// SubjectClaims builds a claim set carrying only subject and kind, as used by
// refresh and email-verify tokens.
func SubjectClaims(kind domain.TokenKind, subject string) Claims {
	return Claims{Kind: kind, RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}
}

// TokenCodec signs and verifies HS256 JWTs.
type TokenCodec struct {
	now func() time.Time
}

// NewTokenCodec builds a codec. A nil clock means time.Now.
func NewTokenCodec(now func() time.Time) *TokenCodec {
	if now == nil {
		now = time.Now
	}
	return &TokenCodec{now: now}
}

// Sign stamps issuance, expiry and a unique id onto claims and signs them.
func (c *TokenCodec) Sign(claims Claims, secret []byte, ttl time.Duration) (string, time.Time, error) {
	issuedAt := c.now()
	expiresAt := issuedAt.Add(ttl)
	claims.IssuedAt = jwt.NewNumericDate(issuedAt)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	claims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", claims.Kind, err)
	}
	return tokenString, expiresAt, nil
}

// Verify checks signature, structure and expiry and returns the claims.
func (c *TokenCodec) Verify(tokenStr string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrExpired, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidOrExpired
	}
	return claims, nil
}

type kindSettings struct {
	secret []byte
	ttl    time.Duration
}

// TokenManager binds each token kind to its own secret and lifetime so the
// secrets can be rotated independently.
type TokenManager struct {
	codec *TokenCodec
	kinds map[domain.TokenKind]kindSettings
}

// NewTokenManager builds a manager from auth configuration.
func NewTokenManager(cfg config.AuthConfig, now func() time.Time) *TokenManager {
	return &TokenManager{
		codec: NewTokenCodec(now),
		kinds: map[domain.TokenKind]kindSettings{
			domain.TokenKindAccess:      {secret: []byte(cfg.JWTSecret), ttl: cfg.AccessTokenTTL},
			domain.TokenKindRefresh:     {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTokenTTL},
			domain.TokenKindEmailVerify: {secret: []byte(cfg.EmailVerifySecret), ttl: cfg.EmailVerifyTTL},
		},
	}
}

// Issue signs claims with the secret and TTL of claims.Kind.
func (tm *TokenManager) Issue(claims Claims) (string, time.Time, error) {
	settings, ok := tm.kinds[claims.Kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("issue token: unknown kind %q", claims.Kind)
	}
	return tm.codec.Sign(claims, settings.secret, settings.ttl)
}

// Parse verifies tokenStr with the secret of the expected kind. The kind tag
// is checked before any kind-specific field.
func (tm *TokenManager) Parse(expected domain.TokenKind, tokenStr string) (*Claims, error) {
	settings, ok := tm.kinds[expected]
	if !ok {
		return nil, fmt.Errorf("parse token: unknown kind %q", expected)
	}

	claims, err := tm.codec.Verify(tokenStr, settings.secret)
	if err != nil {
		return nil, err
	}
	if _, err := domain.ParseTokenKind(string(claims.Kind)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrExpired, err)
	}

	if claims.Kind != expected || claims.Subject == "" {
		return nil, ErrWrongTokenKind
	}
	if expected == domain.TokenKindAccess && (claims.Email == "" || claims.EmailVerified == nil) {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}
