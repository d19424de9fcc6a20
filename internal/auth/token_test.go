package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fakeClock is a settable time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestTokenService(secret string, clock *fakeClock) *TokenService {
	return NewTokenService(secret, time.Hour, WithClock(clock.Now))
}

func TestTokenService_IssueVerify(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokenService("test-secret", clock)

	token, err := svc.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token should have three segments: %q", token)
	}

	subject, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if subject != "user-42" {
		t.Errorf("subject = %q, want user-42", subject)
	}
}

func TestTokenService_Expiry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr bool
	}{
		{"fresh", 0, false},
		{"just before expiry", 59*time.Minute + 59*time.Second, false},
		{"one second after expiry", time.Hour + time.Second, true},
		{"a day later", 24 * time.Hour, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
			clock := &fakeClock{now: start}
			svc := newTestTokenService("test-secret", clock)

			token, err := svc.Issue("user-1")
			if err != nil {
				t.Fatalf("Issue failed: %v", err)
			}

			clock.now = start.Add(tt.elapsed)
			_, err = svc.Verify(token)
			if tt.wantErr && !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify error = %v, want ErrInvalidToken", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Verify error = %v, want nil", err)
			}
		})
	}
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	ours := newTestTokenService("our-secret", clock)
	theirs := newTestTokenService("their-secret", clock)

	forged, err := theirs.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := ours.Verify(forged); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token signed with another secret: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenService_RejectsAlteredToken(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokenService("test-secret", clock)
	other := newTestTokenService("other-secret", clock)

	genuine, err := svc.Issue("alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	impostor, err := other.Issue("mallory")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	g := strings.Split(genuine, ".")
	i := strings.Split(impostor, ".")

	tests := []struct {
		name  string
		token string
	}{
		{"swapped payload", g[0] + "." + i[1] + "." + g[2]},
		{"swapped signature", g[0] + "." + g[1] + "." + i[2]},
		{"empty signature", g[0] + "." + g[1] + "."},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify(%s) error = %v, want ErrInvalidToken", tt.name, err)
			}
		})
	}
}

func TestTokenService_RejectsUnsignedToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService("test-secret", &fakeClock{now: now})

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("build unsigned token: %v", err)
	}

	if _, err := svc.Verify(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg=none token: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenService_RejectsMissingSubjectOrExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	secret := "test-secret"
	svc := newTestTokenService(secret, &fakeClock{now: now})

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-1",
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for name, token := range map[string]string{"no subject": noSubject, "no expiry": noExpiry} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	t.Parallel()

	if got := NewTokenService("s", 0).TTL(); got != DefaultTokenTTL {
		t.Errorf("TTL = %v, want %v", got, DefaultTokenTTL)
	}
}
