package migrations

import (
	"context"
	"fmt"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260901000003, down_20260901000003)
}

// up_20260901000003 creates products and media_transcodes
func up_20260901000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating products table...")
	if _, err := db.NewCreateTable().
		Model((*models.Product)(nil)).
		IfNotExists().
		ForeignKey(`("creator_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create products table: %w", err)
	}
	if err := addCheckConstraints(ctx, db, checkConstraint{
		Table: "products",
		Name:  "products_price_cents_check",
		Expr:  "price_cents >= 0",
	}); err != nil {
		return err
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating media_transcodes table...")
	if _, err := db.NewCreateTable().
		Model((*models.MediaTranscode)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create media_transcodes table: %w", err)
	}
	if err := addCheckConstraints(ctx, db, checkConstraint{
		Table: "media_transcodes",
		Name:  "media_transcodes_status_check",
		Expr:  "status IN ('completed', 'failed')",
	}); err != nil {
		return err
	}
	fmt.Println(" OK")
	return nil
}

// down_20260901000003 drops media_transcodes and products
func down_20260901000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping catalog tables...")
	for _, model := range []any{(*models.MediaTranscode)(nil), (*models.Product)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}
