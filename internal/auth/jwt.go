package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/settleup/internal/models"
)

const issuer = "settleup"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// Claims is the payload of a session token. Subject mirrors UserID.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTManager signs session tokens with HS256.
type JWTManager struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewJWTManager returns a manager whose tokens live for ttl.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{key: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate issues a token for user.
func (m *JWTManager) Generate(user *models.User) (string, error) {
	issued := m.now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature, issuer and lifetime of token. Every
// failure wraps ErrInvalidToken.
func (m *JWTManager) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *JWTManager) keyFunc(*jwt.Token) (any, error) {
	return m.key, nil
}
