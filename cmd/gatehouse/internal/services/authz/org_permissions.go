package authz

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/membership"
)

//go:embed org_model.conf
var orgModelContent string

// ActionManage is the organization action gated by the org-management check.
const ActionManage = "org:manage"

// OrgPermissions maps membership roles to organization actions. Owners
// inherit every admin permission; no other role can manage.
type OrgPermissions struct {
	enforcer casbin.IEnforcer
}

// NewOrgPermissions builds the enforcer from the embedded model and the static
// role policy. The enforcer is never mutated afterwards.
func NewOrgPermissions() (*OrgPermissions, error) {
	m, err := model.NewModelFromString(orgModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse org permission model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create org permission enforcer: %w", err)
	}

	if _, err := enforcer.AddPolicy(string(membership.RoleAdmin), ActionManage); err != nil {
		return nil, fmt.Errorf("seed org permission policy: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicy(string(membership.RoleOwner), string(membership.RoleAdmin)); err != nil {
		return nil, fmt.Errorf("seed org role hierarchy: %w", err)
	}

	return &OrgPermissions{enforcer: enforcer}, nil
}

// MustOrgPermissions is NewOrgPermissions for static initialization.
func MustOrgPermissions() *OrgPermissions {
	p, err := NewOrgPermissions()
	if err != nil {
		panic(err)
	}
	return p
}

// CanManage reports whether role may manage the organization.
func (p *OrgPermissions) CanManage(role membership.Role) (bool, error) {
	return p.Allowed(role, ActionManage)
}

// Allowed reports whether role may perform act.
func (p *OrgPermissions) Allowed(role membership.Role, act string) (bool, error) {
	if p == nil || p.enforcer == nil {
		return false, fmt.Errorf("org permissions not initialized")
	}
	ok, err := p.enforcer.Enforce(string(role), act)
	if err != nil {
		return false, fmt.Errorf("enforce %s for %s: %w", act, role, err)
	}
	return ok, nil
}
