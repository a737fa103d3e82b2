package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/bunx"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// setupTestDB opens an in-memory SQLite database with every migration applied.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}

func createTestUser(t *testing.T, repo *BunUserRepository, email, role string) *models.User {
	t.Helper()
	u := &models.User{Email: email, DisplayName: email, PlatformRole: role}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

