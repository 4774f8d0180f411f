package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/MohamadAlaskari/EventHub/internal/auth"
	"github.com/MohamadAlaskari/EventHub/internal/domain"
)

// CredentialVerifier checks an email and password against the directory.
type CredentialVerifier struct {
	users  UserDirectory
	hasher auth.PasswordHasher
}

// NewCredentialVerifier constructs a verifier.
func NewCredentialVerifier(users UserDirectory, hasher auth.PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{users: users, hasher: hasher}
}

// Verify returns the matching user without its password hash, or nil when
// the email is unknown or the password is wrong. A correct password for an
// unverified account fails with ErrEmailNotVerified.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := v.users.FindByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !v.hasher.Compare(password, user.PasswordHash) {
		return nil, nil
	}
	if !user.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}
	return user.Sanitized(), nil
}
