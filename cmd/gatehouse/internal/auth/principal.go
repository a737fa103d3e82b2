package auth

import "time"

// PlatformRole is the flat, platform-wide role carried by a principal.
type PlatformRole string

const (
	RoleCustomer PlatformRole = "customer"
	RoleCreator  PlatformRole = "creator"
	RoleAdmin    PlatformRole = "admin"
)

// PlatformRoles lists the roles the platform issues.
func PlatformRoles() []PlatformRole {
	return []PlatformRole{RoleCustomer, RoleCreator, RoleAdmin}
}

// Valid reports whether r is one of the issued platform roles.
func (r PlatformRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleCreator, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r PlatformRole) String() string { return string(r) }

// Principal is an authenticated end user as produced by the session service.
// It is treated as an already-validated value and never modified after
// identity resolution.
type Principal struct {
	ID            string
	Email         string
	DisplayName   string
	PlatformRole  PlatformRole
	EmailVerified bool
	SessionID     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
