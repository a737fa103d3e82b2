package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/uptrace/bun"
)

// BunMembershipRepository implements MembershipRepository using Bun ORM
type BunMembershipRepository struct {
	db *bun.DB
}

// NewBunMembershipRepository creates a new Bun-based membership repository
func NewBunMembershipRepository(db *bun.DB) *BunMembershipRepository {
	return &BunMembershipRepository{db: db}
}

// Upsert inserts a membership or updates the role when the pair already exists.
func (r *BunMembershipRepository) Upsert(ctx context.Context, m *models.Membership) error {
	if m.AddedAt.IsZero() {
		m.AddedAt = time.Now().UTC()
	}
	_, err := r.db.NewInsert().
		Model(m).
		On("CONFLICT (organization_id, user_id) DO UPDATE").
		Set("role = EXCLUDED.role").
		Set("added_by = EXCLUDED.added_by").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

// Get returns the membership of userID in organizationID. A missing row is
// reported as ErrNotFound.
func (r *BunMembershipRepository) Get(ctx context.Context, organizationID, userID string) (*models.Membership, error) {
	m := new(models.Membership)
	err := r.db.NewSelect().
		Model(m).
		Where("organization_id = ?", organizationID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("membership %s/%s: %w", organizationID, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// ListByOrganization returns every member of an organization
func (r *BunMembershipRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.Membership, error) {
	var members []models.Membership
	err := r.db.NewSelect().
		Model(&members).
		Where("organization_id = ?", organizationID).
		Order("added_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return members, nil
}
