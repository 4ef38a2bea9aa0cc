package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("token secret must not be empty")
)

// Claims is the verified content of a bearer token.
type Claims struct {
	UserID    uint64
	TokenID   string
	ExpiresAt time.Time
}

// TokenManager issues and verifies HMAC-signed bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager that issues tokens valid for ttl.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a new token for userID.
func (m *TokenManager) Issue(userID uint64) (string, Claims, error) {
	now := m.now()
	claims := Claims{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		ID:        claims.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature, algorithm and expiry of raw and returns its
// claims. Every failure is reported as ErrInvalidToken.
func (m *TokenManager) Verify(raw string) (Claims, error) {
	var registered jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &registered, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseUint(registered.Subject, 10, 64)
	if err != nil || userID == 0 {
		return Claims{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if registered.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing token id", ErrInvalidToken)
	}

	return Claims{
		UserID:    userID,
		TokenID:   registered.ID,
		ExpiresAt: registered.ExpiresAt.Time,
	}, nil
}
