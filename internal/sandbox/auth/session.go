// Package auth authenticates sandbox callers by API key or operator session.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims are the JWT claims of an operator session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	OrgID string `json:"org_id"`
	Email string `json:"email"`
}

// SessionIssuer issues and verifies HS256 operator session tokens.
type SessionIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewSessionIssuer creates a SessionIssuer. ttl defaults to 24 hours.
func NewSessionIssuer(secret []byte, issuer string, ttl time.Duration) (*SessionIssuer, error) {
	if len(secret) < 16 {
		return nil, errors.New("session secret must be at least 16 bytes")
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &SessionIssuer{secret: secret, issuer: issuer, ttl: ttl}, nil
}

// Issue creates a signed session token for an operator.
func (s *SessionIssuer) Issue(operatorID, orgID uuid.UUID, email string) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   operatorID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.New().String(),
		},
		OrgID: orgID.String(),
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses a session token and returns the org it grants access to.
func (s *SessionIssuer) Verify(tokenStr string) (uuid.UUID, *SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&SessionClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("verify session token: %w", err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return uuid.Nil, nil, errors.New("invalid session token claims")
	}
	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("session org id: %w", err)
	}
	return orgID, claims, nil
}

// KeyHasher hashes API keys with HMAC-SHA256 so raw keys are never stored.
type KeyHasher struct {
	secret []byte
}

// NewKeyHasher creates a KeyHasher keyed with secret.
func NewKeyHasher(secret []byte) *KeyHasher {
	return &KeyHasher{secret: secret}
}

// Hash returns the hex-encoded HMAC of key.
func (h *KeyHasher) Hash(key string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
