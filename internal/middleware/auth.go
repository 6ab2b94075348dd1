// internal/middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LoginPath is where unauthenticated requests to protected routes are sent,
// with the original destination preserved in the next parameter.
const LoginPath = "/auth/login/"

// Claims represents the JWT claims for our application
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates tokens and gates protected routes.
type Authenticator struct {
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthenticator(secret string, tokenTTL time.Duration) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// GenerateToken creates a new JWT token for the given user ID
func (a *Authenticator) GenerateToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "fernpost",
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates the provided JWT token
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return a.secret, nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// bearerToken extracts the token from the Authorization header, if present.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}

// RedirectToLogin sends the client to the login page, carrying the original
// destination so it can be resumed after authentication.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	next := url.Values{"next": {r.URL.RequestURI()}}
	http.Redirect(w, r, LoginPath+"?"+next.Encode(), http.StatusFound)
}

// RequireAuth wraps a handler that only authenticated users may reach.
// Missing or invalid credentials do not produce a 401: the request is
// redirected to the login page with the return path preserved.
func (a *Authenticator) RequireAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			RedirectToLogin(w, r)
			return
		}

		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			RedirectToLogin(w, r)
			return
		}

		ctx := SetUserIDInContext(r.Context(), claims.UserID)
		handler(w, r.WithContext(ctx))
	}
}

// Identify is like RequireAuth but for public routes that render differently
// for authenticated viewers (the profile's follow state). An absent or bad
// token just means an anonymous viewer.
func (a *Authenticator) Identify(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tokenString := bearerToken(r); tokenString != "" {
			if claims, err := a.ValidateToken(tokenString); err == nil {
				r = r.WithContext(SetUserIDInContext(r.Context(), claims.UserID))
			}
		}
		handler(w, r)
	}
}

// Define a custom context key type to avoid collisions
type contextKey string

// UserIDKey is the key used to store the user ID in the context
const UserIDKey contextKey = "user_id"

// SetUserIDInContext saves the user ID in the request context
func SetUserIDInContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserIDFromContext retrieves the user ID from the context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}
