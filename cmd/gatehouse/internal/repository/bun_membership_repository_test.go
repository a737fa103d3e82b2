package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
)

func TestBunMembershipRepository(t *testing.T) {
	db := setupTestDB(t)
	users := NewBunUserRepository(db)
	orgs := NewBunOrganizationRepository(db)
	repo := NewBunMembershipRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, users, "owner@example.com", "creator")
	member := createTestUser(t, users, "member@example.com", "customer")

	org := &models.Organization{Slug: "acme", Name: "Acme", CreatedBy: owner.ID}
	require.NoError(t, orgs.Create(ctx, org))

	t.Run("organization lookups", func(t *testing.T) {
		byID, err := orgs.GetByID(ctx, org.ID)
		require.NoError(t, err)
		assert.Equal(t, "acme", byID.Slug)

		bySlug, err := orgs.GetBySlug(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, org.ID, bySlug.ID)

		_, err = orgs.GetBySlug(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("absent membership is ErrNotFound", func(t *testing.T) {
		_, err := repo.Get(ctx, org.ID, member.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("upsert inserts then updates role", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, &models.Membership{
			OrganizationID: org.ID, UserID: member.ID, Role: "member", AddedBy: auth.SystemUserID,
		}))
		got, err := repo.Get(ctx, org.ID, member.ID)
		require.NoError(t, err)
		assert.Equal(t, "member", got.Role)

		require.NoError(t, repo.Upsert(ctx, &models.Membership{
			OrganizationID: org.ID, UserID: member.ID, Role: "admin", AddedBy: owner.ID,
		}))
		got, err = repo.Get(ctx, org.ID, member.ID)
		require.NoError(t, err)
		assert.Equal(t, "admin", got.Role)
		assert.Equal(t, owner.ID, got.AddedBy)
	})

	t.Run("list by organization", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, &models.Membership{
			OrganizationID: org.ID, UserID: owner.ID, Role: "owner", AddedBy: auth.SystemUserID,
		}))
		members, err := repo.ListByOrganization(ctx, org.ID)
		require.NoError(t, err)
		assert.Len(t, members, 2)
	})

	t.Run("unknown organization rejected by foreign key", func(t *testing.T) {
		err := repo.Upsert(ctx, &models.Membership{
			OrganizationID: "0190b3a4-0000-7000-8000-000000000000", UserID: member.ID, Role: "member", AddedBy: auth.SystemUserID,
		})
		assert.Error(t, err)
	})
}
