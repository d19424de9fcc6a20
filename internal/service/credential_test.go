package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/postboard/postboard/internal/apperr"
	"github.com/postboard/postboard/internal/auth"
	"github.com/postboard/postboard/internal/metrics"
	"github.com/postboard/postboard/internal/model"
	"github.com/postboard/postboard/internal/repository"
)

type authTestEnv struct {
	svc     *AuthService
	users   *repository.MemoryUserStore
	tokens  *auth.TokenService
	metrics *metrics.InMemoryRecorder
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()
	users := repository.NewMemoryUserStore()
	tokens := auth.NewTokenService("test-secret", time.Hour)
	recorder := metrics.NewInMemory()
	return &authTestEnv{
		svc:     NewAuthService(users, auth.NewBcryptHasher(bcrypt.MinCost), tokens, recorder),
		users:   users,
		tokens:  tokens,
		metrics: recorder,
	}
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()
	env := newAuthTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == "" {
		t.Error("expected id to be generated")
	}
	if user.PasswordHash == "" || user.PasswordHash == "s3cret" {
		t.Errorf("password must be stored hashed, got %q", user.PasswordHash)
	}

	stored, err := env.users.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if stored.PasswordHash == "s3cret" {
		t.Error("plaintext password reached the store")
	}
	if got := env.metrics.Snapshot().UsersRegistered; got != 1 {
		t.Errorf("UsersRegistered = %d, want 1", got)
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"missing username", RegisterInput{Email: "a@example.com", Password: "pw"}},
		{"missing email", RegisterInput{Username: "a", Password: "pw"}},
		{"missing password", RegisterInput{Username: "a", Email: "a@example.com"}},
		{"whitespace username", RegisterInput{Username: "  ", Email: "a@example.com", Password: "pw"}},
		{"all empty", RegisterInput{}},
		{"password over bcrypt limit", RegisterInput{Username: "a", Email: "a@example.com", Password: strings.Repeat("p", auth.BcryptMaxPasswordLen+1)}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newAuthTestEnv(t)

			_, err := env.svc.Register(context.Background(), tt.input)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Fatalf("error = %v, want validation error", err)
			}
			if env.users.Len() != 0 {
				t.Errorf("store has %d users, want 0", env.users.Len())
			}
		})
	}
}

func TestAuthService_RegisterPasswordAtBcryptLimit(t *testing.T) {
	t.Parallel()
	env := newAuthTestEnv(t)
	ctx := context.Background()

	password := strings.Repeat("p", auth.BcryptMaxPasswordLen)
	if _, err := env.svc.Register(ctx, RegisterInput{Username: "a", Email: "a@example.com", Password: password}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := env.svc.Login(ctx, "a@example.com", password); err != nil {
		t.Errorf("Login failed: %v", err)
	}

	_, err := env.svc.Register(ctx, RegisterInput{Username: "b", Email: "b@example.com", Password: password + "p"})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Message != "Password must be at most 72 bytes" {
		t.Errorf("error = %v, want password length validation", err)
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	env := newAuthTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Register(ctx, RegisterInput{Username: "alice", Email: "dup@example.com", Password: "pw1"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	_, err := env.svc.Register(ctx, RegisterInput{Username: "mallory", Email: "dup@example.com", Password: "pw2"})
	if !errors.Is(err, apperr.ErrDuplicateEmail) {
		t.Fatalf("error = %v, want ErrDuplicateEmail", err)
	}
	if env.users.Len() != 1 {
		t.Errorf("store has %d users, want 1", env.users.Len())
	}

	// The original identity still authenticates with its own password.
	if _, err := env.svc.VerifyCredentials(ctx, "dup@example.com", "pw1"); err != nil {
		t.Errorf("VerifyCredentials for original user failed: %v", err)
	}
}

func TestAuthService_VerifyCredentials(t *testing.T) {
	t.Parallel()
	env := newAuthTestEnv(t)
	ctx := context.Background()

	registered, err := env.svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	user, err := env.svc.VerifyCredentials(ctx, "bob@example.com", "hunter2")
	if err != nil {
		t.Fatalf("VerifyCredentials failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("ID = %q, want %q", user.ID, registered.ID)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "bob@example.com", "hunter3"},
		{"unknown email", "nobody@example.com", "hunter2"},
		{"email case differs", "BOB@example.com", "hunter2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.VerifyCredentials(ctx, tt.email, tt.password)
			if !errors.Is(err, apperr.ErrInvalidCredentials) {
				t.Errorf("error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()
	env := newAuthTestEnv(t)
	ctx := context.Background()

	registered, err := env.svc.Register(ctx, RegisterInput{Username: "carol", Email: "carol@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	token, err := env.svc.Login(ctx, "carol@example.com", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	subject, err := env.tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if subject != registered.ID {
		t.Errorf("subject = %q, want %q", subject, registered.ID)
	}

	if _, err := env.svc.Login(ctx, "carol@example.com", "nope"); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}

	snap := env.metrics.Snapshot()
	if snap.LoginsSucceeded != 1 || snap.LoginsFailed != 1 {
		t.Errorf("logins = %d ok / %d failed, want 1 / 1", snap.LoginsSucceeded, snap.LoginsFailed)
	}
}

func TestAuthService_LoginBlankInput(t *testing.T) {
	t.Parallel()
	env := newAuthTestEnv(t)

	for _, input := range [][2]string{{"", "pw"}, {"a@example.com", ""}, {" ", " "}} {
		_, err := env.svc.Login(context.Background(), input[0], input[1])
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("Login(%q, %q) error = %v, want validation error", input[0], input[1], err)
		}
	}
}

type failingUserStore struct {
	repository.UserStore
	err error
}

func (s failingUserStore) CreateUser(context.Context, *model.User) error { return s.err }

func (s failingUserStore) GetUserByEmail(context.Context, string) (*model.User, error) {
	return nil, s.err
}

func TestAuthService_StoreFailureIsInternal(t *testing.T) {
	t.Parallel()
	outage := errors.New("connection refused")
	svc := NewAuthService(failingUserStore{err: outage}, auth.NewBcryptHasher(bcrypt.MinCost), auth.NewTokenService("s", time.Hour), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "a", Email: "a@example.com", Password: "pw"})
	if !errors.Is(err, outage) || apperr.KindOf(err) != apperr.KindInternal {
		t.Errorf("Register error = %v, want wrapped internal outage", err)
	}

	_, err = svc.VerifyCredentials(ctx, "a@example.com", "pw")
	if !errors.Is(err, outage) || apperr.KindOf(err) != apperr.KindInternal {
		t.Errorf("VerifyCredentials error = %v, want wrapped internal outage", err)
	}
}
