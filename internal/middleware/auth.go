package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/postboard/postboard/internal/apperr"
	"github.com/postboard/postboard/internal/auth"
)

// Reasons a request fails authentication. They are logged, never returned
// to the client.
var (
	errMissingAuthorization   = errors.New("missing_authorization")
	errMalformedAuthorization = errors.New("malformed_authorization")
	errInvalidToken           = errors.New("invalid_token")
)

// TokenVerifier validates a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(raw string) (subject string, err error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Tokens TokenVerifier
}

// Auth returns a middleware that requires a valid bearer token. On success
// only the caller id is placed in the request context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerID, err := Authenticate(r, cfg.Tokens)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", err.Error()),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				apperr.Respond(w, r, cfg.Logger, apperr.ErrUnauthorized)
				return
			}

			ctx := auth.ContextWithCaller(r.Context(), callerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate extracts and verifies the bearer token of r. The
// Authorization header must be exactly "Bearer <token>".
func Authenticate(r *http.Request, tokens TokenVerifier) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingAuthorization
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errMalformedAuthorization
	}

	subject, err := tokens.Verify(parts[1])
	if err != nil {
		return "", errInvalidToken
	}
	return subject, nil
}
