package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"taskBoard/internal/logger"
	"taskBoard/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const userKey contextKey = "acting_user"

// UserDirectory resolves a token subject to a full user record.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Middleware extracts the acting user from a Bearer token and attaches
// it to the request context. Everything behind it can trust the
// identity; token issuance happens elsewhere.
func Middleware(secret string, users UserDirectory) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "no token provided")
				return
			}

			userID, err := parseSubject(token, key)
			if err != nil {
				logger.Warn("Auth: invalid token",
					zap.Error(err),
					zap.String("client_ip", r.RemoteAddr))
				unauthorized(w, "invalid token")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				logger.Warn("Auth: token subject unknown",
					zap.String("user_id", userID.String()),
					zap.String("client_ip", r.RemoteAddr))
				unauthorized(w, "user not found")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, *user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser returns a context carrying the acting user directly,
// bypassing the token path. Intended for handler tests and tooling.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// ActingUser returns the authenticated user stored by Middleware.
func ActingUser(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

// NewToken mints an HS256 token for the given user. The server only
// consumes tokens; this is for tooling and tests.
func NewToken(secret string, userID uuid.UUID, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func parseSubject(token string, key []byte) (uuid.UUID, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("token has no subject: %w", err)
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a user id: %w", err)
	}
	return userID, nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`, message)
}
