package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/MohamadAlaskari/EventHub/internal/auth"
	"github.com/MohamadAlaskari/EventHub/internal/domain"
	"github.com/MohamadAlaskari/EventHub/internal/repository"
	apperrors "github.com/MohamadAlaskari/EventHub/pkg/util/errorutil"
)

// UserDirectory owns persistent user records. Lookups of absent users return
// pgx.ErrNoRows; Create reports a duplicate email as a CONFLICT DomainError.
type UserDirectory interface {
	Create(ctx context.Context, name, email, password string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// UserService implements UserDirectory on top of the user repository. It
// hashes passwords and normalizes email addresses.
type UserService struct {
	users  repository.UserRepository
	hasher auth.PasswordHasher
}

// NewUserService builds the directory.
func NewUserService(users repository.UserRepository, hasher auth.PasswordHasher) *UserService {
	return &UserService{users: users, hasher: hasher}
}

// Create registers a new, unverified user.
func (s *UserService) Create(ctx context.Context, name, email, password string) (*domain.User, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apperrors.NewValidationError("password too long", map[string]any{"password": fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes)})
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, NormalizeEmail(email))
}

func (s *UserService) Update(ctx context.Context, user *domain.User) error {
	return s.users.Update(ctx, user)
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
