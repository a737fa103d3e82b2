package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultSessionCookieName is the cookie carrying the opaque session token.
	DefaultSessionCookieName = "gatehouse.session"

	// SessionDuration is the default session lifetime (12 hours)
	SessionDuration = 12 * time.Hour

	// TokenLength is the length of generated session tokens in bytes
	TokenLength = 32
)

var (
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionRevoked   = errors.New("session revoked")
	ErrIdentityDisabled = errors.New("identity disabled")
)

// GenerateSessionToken generates a cryptographically secure random session token.
// Returns: token (hex string), token hash (SHA256 hex), error
func GenerateSessionToken() (string, string, error) {
	tokenBytes := make([]byte, TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("generate random token: %w", err)
	}

	token := hex.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// HashToken hashes a session token for storage/lookup.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// CalculateExpiry returns createdAt + SessionDuration.
func CalculateExpiry(createdAt time.Time) time.Time {
	return createdAt.Add(SessionDuration)
}

// ValidateSession checks expiration, revocation and identity status, in that order.
func ValidateSession(now, expiresAt time.Time, revoked bool, identityDisabled bool) error {
	if now.After(expiresAt) {
		return ErrSessionExpired
	}
	if revoked {
		return ErrSessionRevoked
	}
	if identityDisabled {
		return ErrIdentityDisabled
	}
	return nil
}
