package repository

import (
	"context"
	"errors"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
)

// ErrNotFound is wrapped by every lookup that finds no row. Callers must use
// errors.Is; any other error is a storage failure.
var ErrNotFound = errors.New("not found")

// UserRepository exposes persistence operations for platform accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

// SessionRepository exposes persistence operations for cookie sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	UpdateLastUsed(ctx context.Context, id string) error
	RevokeByUserID(ctx context.Context, userID string) (int64, error)
}

// OrganizationRepository exposes persistence operations for tenants.
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
}

// MembershipRepository exposes persistence operations for organization members.
type MembershipRepository interface {
	// Upsert adds the membership or replaces the role of an existing one.
	Upsert(ctx context.Context, m *models.Membership) error
	Get(ctx context.Context, organizationID, userID string) (*models.Membership, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]models.Membership, error)
}

// ProductRepository exposes persistence operations for the product catalog.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	ListByCreator(ctx context.Context, creatorID string) ([]models.Product, error)
}

// MediaTranscodeRepository stores worker transcode results.
type MediaTranscodeRepository interface {
	Upsert(ctx context.Context, t *models.MediaTranscode) error
	Get(ctx context.Context, mediaID string) (*models.MediaTranscode, error)
}
