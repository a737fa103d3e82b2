package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/repository"
)

// ErrUnknownUser is returned when adding a member who has no account.
var ErrUnknownUser = errors.New("user not found")

// Invalidator drops cached memberships after a write.
type Invalidator interface {
	Invalidate(organizationID, userID string)
}

// Member is a membership joined with the member's account.
type Member struct {
	UserID      string
	Email       string
	DisplayName string
	Role        Role
	AddedBy     string
}

// Service manages organization memberships.
type Service struct {
	members repository.MembershipRepository
	users   repository.UserRepository
	cache   Invalidator
}

// NewService creates a membership service. cache may be nil.
func NewService(members repository.MembershipRepository, users repository.UserRepository, cache Invalidator) *Service {
	return &Service{members: members, users: users, cache: cache}
}

// AddMember adds email to the organization with role, or changes the role of
// an existing member.
func (s *Service) AddMember(ctx context.Context, organizationID, email string, role Role, addedBy string) (*Member, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, email)
		}
		return nil, fmt.Errorf("resolve member: %w", err)
	}

	m := &models.Membership{
		OrganizationID: organizationID,
		UserID:         user.ID,
		Role:           string(role),
		AddedBy:        addedBy,
	}
	if err := s.members.Upsert(ctx, m); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(organizationID, user.ID)
	}

	return &Member{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        role,
		AddedBy:     addedBy,
	}, nil
}

// ListMembers returns every member of the organization.
func (s *Service) ListMembers(ctx context.Context, organizationID string) ([]Member, error) {
	rows, err := s.members.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	out := make([]Member, 0, len(rows))
	for _, row := range rows {
		m := Member{UserID: row.UserID, Role: Role(row.Role), AddedBy: row.AddedBy}
		user, err := s.users.GetByID(ctx, row.UserID)
		switch {
		case err == nil:
			m.Email = user.Email
			m.DisplayName = user.DisplayName
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("resolve member %s: %w", row.UserID, err)
		}
		out = append(out, m)
	}
	return out, nil
}
