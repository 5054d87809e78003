package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/auth"
)

type contextKey string

const (
	// UserIDKey holds the authenticated user's id.
	UserIDKey contextKey = "user_id"
	// EmailKey holds the authenticated user's email.
	EmailKey contextKey = "email"
)

// TokenValidator turns a bearer token into session claims.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// WithIdentity returns ctx carrying the caller's id and email.
func WithIdentity(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, EmailKey, email)
}

// GetUserID returns the caller's id, or "" on an unauthenticated context.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail returns the caller's email, or "".
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// RequireAuth rejects requests without a valid "Authorization: Bearer"
// token and stores the caller's identity on the context otherwise.
func RequireAuth(tokens TokenValidator) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			token, err := bearerToken(req.Header().Get("Authorization"))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			claims, err := tokens.Validate(token)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(WithIdentity(ctx, claims.UserID, claims.Email), req)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", auth.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}
