package iam

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Worker credential headers.
const (
	HeaderWorkerSecret    = "X-Worker-Secret"
	HeaderWorkerSignature = "X-Worker-Signature"
	HeaderAuthorization   = "Authorization"
)

// Worker authentication methods, for logs and metrics.
const (
	WorkerMethodSecret    = "worker_secret"
	WorkerMethodToken     = "worker_token"
	WorkerMethodSignature = "worker_signature"
)

// WorkerAuthenticator decides whether a request comes from a trusted internal
// worker. Any one of these proves knowledge of the shared secret:
//
//   - X-Worker-Secret: the secret itself
//   - Authorization: Bearer <HS256 JWT> with the configured issuer and an exp
//   - X-Worker-Signature: hex HMAC-SHA256 of the request body
//
// An empty secret disables worker trust.
type WorkerAuthenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewWorkerAuthenticator creates a worker authenticator.
func NewWorkerAuthenticator(secret, issuer string) *WorkerAuthenticator {
	return &WorkerAuthenticator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Enabled reports whether a secret is configured.
func (w *WorkerAuthenticator) Enabled() bool {
	return w != nil && len(w.secret) > 0
}

// Verify returns the method that established trust, or "" when the request
// carries no valid worker credential.
func (w *WorkerAuthenticator) Verify(req AuthRequest) string {
	if !w.Enabled() {
		return ""
	}

	if v := req.Headers.Get(HeaderWorkerSecret); v != "" {
		if subtle.ConstantTimeCompare([]byte(v), w.secret) == 1 {
			return WorkerMethodSecret
		}
		return ""
	}

	if token, ok := bearerToken(req.Headers.Get(HeaderAuthorization)); ok {
		if err := w.verifyToken(token); err == nil {
			return WorkerMethodToken
		}
		return ""
	}

	if sig := req.Headers.Get(HeaderWorkerSignature); sig != "" {
		if w.verifySignature(req.Body, sig) {
			return WorkerMethodSignature
		}
	}
	return ""
}

// SignToken issues a worker token valid for ttl.
func (w *WorkerAuthenticator) SignToken(subject string, ttl time.Duration) (string, error) {
	if !w.Enabled() {
		return "", errors.New("worker secret not configured")
	}
	now := w.now()
	claims := jwt.RegisteredClaims{
		Issuer:    w.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(w.secret)
	if err != nil {
		return "", fmt.Errorf("sign worker token: %w", err)
	}
	return token, nil
}

// Sign returns the hex HMAC-SHA256 of body, as sent in X-Worker-Signature.
func (w *WorkerAuthenticator) Sign(body []byte) string {
	mac := hmac.New(sha256.New, w.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (w *WorkerAuthenticator) verifyToken(token string) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(w.now),
	}
	if w.issuer != "" {
		opts = append(opts, jwt.WithIssuer(w.issuer))
	}
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return w.secret, nil
	}, opts...)
	return err
}

func (w *WorkerAuthenticator) verifySignature(body []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, w.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
