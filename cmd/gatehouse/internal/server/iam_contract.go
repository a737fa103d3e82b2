package server

import (
	"context"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/iam"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/membership"
)

// iamHandlerService defines the exact IAM methods used by server handlers.
// Keeping the contract here lets handler tests substitute a small fake while
// the assertion below proves iam.Service still satisfies it.
type iamHandlerService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	RevokeUserSessions(ctx context.Context, userID string) (int64, error)
}

// memberService defines the membership operations used by the organization
// handlers.
type memberService interface {
	AddMember(ctx context.Context, organizationID, email string, role membership.Role, addedBy string) (*membership.Member, error)
	ListMembers(ctx context.Context, organizationID string) ([]membership.Member, error)
}

// Compile-time assertions: a missing method fails the build here rather than
// at the call site in cmd.
var (
	_ iamHandlerService = (iam.Service)(nil)
	_ memberService     = (*membership.Service)(nil)
)
