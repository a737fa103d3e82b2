package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Organization is a tenant that users can be members of.
type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:o"`

	ID        string    `bun:"id,pk,type:uuid"`
	Slug      string    `bun:"slug,notnull,unique"`
	Name      string    `bun:"name,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	CreatedBy string    `bun:"created_by,notnull,type:uuid"`
}

// Membership binds a user to an organization with a role
// (owner, admin, creator, subscriber, member).
type Membership struct {
	bun.BaseModel `bun:"table:organization_members,alias:om"`

	OrganizationID string    `bun:"organization_id,pk,type:uuid"` // FK to organizations(id)
	UserID         string    `bun:"user_id,pk,type:uuid"`         // FK to users(id)
	Role           string    `bun:"role,notnull"`
	AddedAt        time.Time `bun:"added_at,notnull,default:current_timestamp"`
	AddedBy        string    `bun:"added_by,notnull,type:uuid"`
}
