package iam

import (
	"context"
	"time"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
)

// Service provides identity operations.
//
// Request path:
//   - AuthenticateRequest (session cookie → principal)
//   - VerifyWorker (worker credential → trusted caller)
//
// Control plane (CLI and handlers):
//   - CreateUser, ListUsers
//   - CreateSession, RevokeUserSessions
type Service interface {
	// AuthenticateRequest tries all registered authenticators in order.
	//
	// Returns:
	//   - (principal, nil): authentication successful
	//   - (nil, nil): no valid credentials found (anonymous request)
	//   - (nil, error): identity could not be decided
	AuthenticateRequest(ctx context.Context, req AuthRequest) (*auth.Principal, error)

	// VerifyWorker reports whether the request carries a valid worker
	// credential. It never produces a principal.
	VerifyWorker(ctx context.Context, req AuthRequest) bool

	// CreateUser creates a platform account. The email is stored lowercased.
	CreateUser(ctx context.Context, email, displayName string, role auth.PlatformRole) (*models.User, error)

	// ListUsers returns every account ordered by creation time.
	ListUsers(ctx context.Context) ([]models.User, error)

	// CreateSession issues a session for userID.
	//
	// Returns the stored session and the unhashed token to set as the cookie.
	// Only the SHA256 hash of the token is persisted.
	CreateSession(ctx context.Context, userID string, ttl time.Duration, userAgent, ipAddress string) (*models.Session, string, error)

	// RevokeUserSessions revokes every active session of userID and returns
	// how many were revoked.
	RevokeUserSessions(ctx context.Context, userID string) (int64, error)
}
