// internal/handlers/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/pkg/logger"
)

type sessionContextKey struct{}

// AccessClaims is the JWT claim set issued by the auth frontend
type AccessClaims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticate validates the bearer token and resolves it into a
// domain.Session exactly once. Handlers downstream read the session
// from the context and never look at the token again.
func Authenticate(secret string) func(http.Handler) http.Handler {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w, "Missing bearer token")
				return
			}

			claims := &AccessClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims, keyFunc,
				jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
			if err != nil || !token.Valid {
				unauthorized(w, "Invalid or expired token")
				return
			}

			session, err := sessionFromClaims(claims)
			if err != nil {
				unauthorized(w, "Invalid token claims")
				return
			}

			if !session.Valid(time.Now()) {
				unauthorized(w, "Session expired")
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
			ctx = context.WithValue(ctx, logger.ContextKeyUserID, session.UserID.String())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles rejects authenticated requests whose session role is
// not in the allowed set. It must run after Authenticate.
func RequireRoles(roles ...domain.Role) func(http.Handler) http.Handler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok {
				unauthorized(w, "Missing session")
				return
			}

			if _, ok := allowed[session.Role]; !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"Insufficient permissions"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext returns the session resolved by Authenticate
func SessionFromContext(ctx context.Context) (domain.Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(domain.Session)
	return session, ok
}

// WithSession injects a session into the context. Intended for tests.
func WithSession(ctx context.Context, session domain.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

func sessionFromClaims(claims *AccessClaims) (domain.Session, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Session{}, err
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{
		UserID: userID,
		Role:   role,
		Name:   claims.Name,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}

	return session, nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
