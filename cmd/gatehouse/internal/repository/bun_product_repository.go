package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/bunx"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/uptrace/bun"
)

// BunProductRepository implements ProductRepository using Bun ORM
type BunProductRepository struct {
	db *bun.DB
}

// NewBunProductRepository creates a new Bun-based product repository
func NewBunProductRepository(db *bun.DB) *BunProductRepository {
	return &BunProductRepository{db: db}
}

// Create inserts a new product
func (r *BunProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = bunx.NewUUIDv7()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	if _, err := r.db.NewInsert().Model(product).Exec(ctx); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// ListByCreator returns the products published by a creator, newest first
func (r *BunProductRepository) ListByCreator(ctx context.Context, creatorID string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.NewSelect().
		Model(&products).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}
