package membership

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/repository"
)

type mockUserRepository struct {
	users map[string]*models.User
	err   error
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, repository.ErrNotFound)
}

func (m *mockUserRepository) List(ctx context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

type recordingInvalidator struct {
	calls [][2]string
}

func (r *recordingInvalidator) Invalidate(organizationID, userID string) {
	r.calls = append(r.calls, [2]string{organizationID, userID})
}

func TestService_AddMember(t *testing.T) {
	ctx := context.Background()
	users := &mockUserRepository{users: map[string]*models.User{
		"user-1": {ID: "user-1", Email: "ana@example.com", DisplayName: "Ana"},
	}}

	t.Run("upserts and invalidates", func(t *testing.T) {
		repo := new(MockMembershipRepository)
		repo.On("Upsert", ctx, mock.MatchedBy(func(m *models.Membership) bool {
			return m.OrganizationID == "org-1" && m.UserID == "user-1" && m.Role == "admin" && m.AddedBy == "owner-1"
		})).Return(nil)
		inv := &recordingInvalidator{}

		member, err := NewService(repo, users, inv).AddMember(ctx, "org-1", "ana@example.com", RoleAdmin, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", member.UserID)
		assert.Equal(t, RoleAdmin, member.Role)
		assert.Equal(t, [][2]string{{"org-1", "user-1"}}, inv.calls)
		repo.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(MockMembershipRepository)
		_, err := NewService(repo, users, nil).AddMember(ctx, "org-1", "ghost@example.com", RoleMember, "owner-1")
		assert.ErrorIs(t, err, ErrUnknownUser)
		repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("invalid role", func(t *testing.T) {
		repo := new(MockMembershipRepository)
		_, err := NewService(repo, users, nil).AddMember(ctx, "org-1", "ana@example.com", Role("root"), "owner-1")
		assert.Error(t, err)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		repo := new(MockMembershipRepository)
		repo.On("Upsert", ctx, mock.Anything).Return(errors.New("disk full"))
		inv := &recordingInvalidator{}

		_, err := NewService(repo, users, inv).AddMember(ctx, "org-1", "ana@example.com", RoleMember, "owner-1")
		assert.Error(t, err)
		assert.Empty(t, inv.calls)
	})
}

func TestService_ListMembers(t *testing.T) {
	ctx := context.Background()
	users := &mockUserRepository{users: map[string]*models.User{
		"user-1": {ID: "user-1", Email: "ana@example.com", DisplayName: "Ana"},
	}}
	repo := new(MockMembershipRepository)
	repo.On("ListByOrganization", ctx, "org-1").Return([]models.Membership{
		{OrganizationID: "org-1", UserID: "user-1", Role: "owner"},
		{OrganizationID: "org-1", UserID: "user-gone", Role: "member"},
	}, nil)

	members, err := NewService(repo, users, nil).ListMembers(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "ana@example.com", members[0].Email)
	assert.Equal(t, RoleOwner, members[0].Role)
	assert.Empty(t, members[1].Email)
}
