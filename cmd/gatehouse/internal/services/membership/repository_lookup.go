package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/repository"
)

// RepositoryLookup resolves memberships from the membership table.
type RepositoryLookup struct {
	repo    repository.MembershipRepository
	timeout time.Duration
}

// NewRepositoryLookup creates a lookup over repo. A positive timeout bounds
// each query; zero inherits the caller's deadline.
func NewRepositoryLookup(repo repository.MembershipRepository, timeout time.Duration) *RepositoryLookup {
	return &RepositoryLookup{repo: repo, timeout: timeout}
}

// Lookup implements Lookup.
func (l *RepositoryLookup) Lookup(ctx context.Context, organizationID, userID string) (*Record, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	m, err := l.repo.Get(ctx, organizationID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	role, err := ParseRole(m.Role)
	if err != nil {
		// An unknown stored role cannot be trusted either way.
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	return &Record{Role: role}, nil
}
