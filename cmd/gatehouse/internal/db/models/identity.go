package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a platform account. PlatformRole holds the flat role string
// (customer, creator, admin) surfaced on the request principal.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            string     `bun:"id,pk,type:uuid"`
	Email         string     `bun:"email,notnull,unique"`
	DisplayName   string     `bun:"display_name"`
	PlatformRole  string     `bun:"platform_role,notnull,default:'customer'"`
	EmailVerified bool       `bun:"email_verified,notnull,default:false"`
	CreatedAt     time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	DisabledAt    *time.Time `bun:"disabled_at"`
}

// Disabled reports whether the account has been disabled.
func (u *User) Disabled() bool {
	return u != nil && u.DisabledAt != nil
}

// Session is an opaque cookie session. Only the SHA256 hash of the token is stored.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`

	ID         string    `bun:"id,pk,type:uuid"`
	UserID     string    `bun:"user_id,notnull,type:uuid"` // FK to users(id)
	TokenHash  string    `bun:"token_hash,notnull,unique"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	LastUsedAt time.Time `bun:"last_used_at,notnull,default:current_timestamp"`
	UserAgent  *string   `bun:"user_agent"`
	IPAddress  *string   `bun:"ip_address"`
	Revoked    bool      `bun:"revoked,notnull,default:false"`
}
