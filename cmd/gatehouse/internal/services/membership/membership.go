// Package membership defines the organization membership lookup used by the
// organization-management check, and its storage-backed implementations.
package membership

import (
	"context"
	"errors"
	"fmt"
)

// Role is a member's role inside one organization.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleAdmin      Role = "admin"
	RoleCreator    Role = "creator"
	RoleSubscriber Role = "subscriber"
	RoleMember     Role = "member"
)

// Roles lists every membership role.
func Roles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleCreator, RoleSubscriber, RoleMember}
}

// ParseRole validates s as a membership role.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles() {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown membership role %q", s)
}

func (r Role) String() string { return string(r) }

// Record is a membership returned by Lookup.
type Record struct {
	Role Role
}

// ErrLookupFailed wraps every lookup failure so callers can tell "could not
// decide" apart from "no membership".
var ErrLookupFailed = errors.New("membership lookup failed")

// Lookup resolves (organizationID, userID) to a membership.
//
// A nil record with a nil error means the user is not a member. Any error,
// including a context deadline, is a failure and wraps ErrLookupFailed.
type Lookup interface {
	Lookup(ctx context.Context, organizationID, userID string) (*Record, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, organizationID, userID string) (*Record, error)

func (f LookupFunc) Lookup(ctx context.Context, organizationID, userID string) (*Record, error) {
	return f(ctx, organizationID, userID)
}
