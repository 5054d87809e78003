// Package auth handles account credentials and session tokens.
package auth

import (
	"context"

	"github.com/mmynk/settleup/internal/models"
)

// Authenticator owns the credential side of an account. PasswordAuthenticator
// is the only implementation today.
type Authenticator interface {
	// Register creates an account. The email is normalized before it is
	// checked for uniqueness.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the account for email when credential matches,
	// and ErrInvalidCredentials otherwise.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential reports whether credential is acceptable for a new account.
	ValidateCredential(credential string) error
}

// TokenIssuer mints and checks session tokens.
type TokenIssuer interface {
	Generate(user *models.User) (string, error)
	Validate(token string) (*Claims, error)
}

var _ TokenIssuer = (*JWTManager)(nil)
