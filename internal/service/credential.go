// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postboard/postboard/internal/apperr"
	"github.com/postboard/postboard/internal/auth"
	"github.com/postboard/postboard/internal/metrics"
	"github.com/postboard/postboard/internal/model"
	"github.com/postboard/postboard/internal/repository"
)

// Client-facing messages for credential failures.
const (
	msgAllFieldsRequired   = "All fields required"
	msgCredentialsRequired = "Email and password required"
	msgPasswordTooLong     = "Password must be at most 72 bytes"
)

// AuthService registers identities, checks credentials and issues tokens.
type AuthService struct {
	users   repository.UserStore
	hasher  auth.Hasher
	tokens  *auth.TokenService
	metrics metrics.Recorder

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users repository.UserStore, hasher auth.Hasher, tokens *auth.TokenService, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		metrics: recorder,
	}
}

// RegisterInput defines input for registering an identity.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register stores a new identity. The password is hashed before anything
// reaches the store; the returned user still carries the hash but it never
// serializes.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if isBlank(input.Username) || isBlank(input.Email) || isBlank(input.Password) {
		return nil, apperr.Validation(msgAllFieldsRequired)
	}

	hash, err := s.hasher.Hash(input.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperr.Validation(msgPasswordTooLong)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, apperr.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.IncUserRegistered()
	return user, nil
}

// VerifyCredentials returns the identity matching email and password. An
// unknown email and a wrong password are indistinguishable to the caller.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.burnHash(password)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password for user %s: %w", user.ID, err)
	}
	if !ok {
		return nil, apperr.ErrInvalidCredentials
	}

	return user, nil
}

// Login verifies credentials and issues a bearer token for the identity.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	if isBlank(email) || isBlank(password) {
		return "", apperr.Validation(msgCredentialsRequired)
	}

	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		s.metrics.IncLogin(metrics.LoginFailed)
		return "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.metrics.IncLogin(metrics.LoginFailed)
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return token, nil
}

// burnHash spends roughly one hash verification so unknown emails take as
// long as wrong passwords.
func (s *AuthService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("postboard-timing-equalizer")
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
