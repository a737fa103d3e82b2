package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/bunx"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/uptrace/bun"
)

// BunOrganizationRepository implements OrganizationRepository using Bun ORM
type BunOrganizationRepository struct {
	db *bun.DB
}

// NewBunOrganizationRepository creates a new Bun-based organization repository
func NewBunOrganizationRepository(db *bun.DB) *BunOrganizationRepository {
	return &BunOrganizationRepository{db: db}
}

// Create inserts a new organization
func (r *BunOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = bunx.NewUUIDv7()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(org).Exec(ctx); err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// GetByID retrieves an organization by ID
func (r *BunOrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetBySlug retrieves an organization by its unique slug
func (r *BunOrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return r.getOne(ctx, "slug = ?", slug)
}

func (r *BunOrganizationRepository) getOne(ctx context.Context, where string, arg string) (*models.Organization, error) {
	org := new(models.Organization)
	err := r.db.NewSelect().
		Model(org).
		Where(where, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("organization %s: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return org, nil
}
