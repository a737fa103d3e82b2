package iam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/repository"
)

// SessionAuthenticator authenticates requests using the session cookie.
//
//  1. Extract the session cookie, return (nil, nil) if absent
//  2. Hash the cookie value and look the session up
//  3. Load the user
//  4. Validate expiry, revocation and account status, in that order
//  5. Construct the Principal
//
// This authenticator is stateless and thread-safe.
type SessionAuthenticator struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	cookieName string
	logger     *slog.Logger
	now        func() time.Time
}

// NewSessionAuthenticator creates a new session authenticator.
func NewSessionAuthenticator(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	cookieName string,
	logger *slog.Logger,
) *SessionAuthenticator {
	if cookieName == "" {
		cookieName = auth.DefaultSessionCookieName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionAuthenticator{
		users:      users,
		sessions:   sessions,
		cookieName: cookieName,
		logger:     logger,
		now:        time.Now,
	}
}

// Authenticate extracts and validates the session cookie.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*auth.Principal, error) {
	token := req.cookie(a.cookieName)
	if token == "" {
		return nil, nil
	}

	session, err := a.sessions.GetByTokenHash(ctx, auth.HashToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		a.logger.DebugContext(ctx, "unknown session token")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	user, err := a.users.GetByID(ctx, session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		a.logger.WarnContext(ctx, "session references missing user", "session_id", session.ID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session user: %w", err)
	}

	if err := auth.ValidateSession(a.now(), session.ExpiresAt, session.Revoked, user.Disabled()); err != nil {
		a.logger.DebugContext(ctx, "session rejected", "session_id", session.ID, "reason", err)
		return nil, nil
	}

	principal := &auth.Principal{
		ID:            user.ID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		PlatformRole:  auth.PlatformRole(user.PlatformRole),
		EmailVerified: user.EmailVerified,
		SessionID:     session.ID,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}

	// Update session last used timestamp (non-blocking)
	go func(id string) {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.sessions.UpdateLastUsed(bgCtx, id); err != nil {
			a.logger.Warn("update session last used", "session_id", id, "error", err)
		}
	}(session.ID)

	return principal, nil
}
