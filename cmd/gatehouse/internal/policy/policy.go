// Package policy defines the declarative security policy attached to every
// route and the pure merge that fills unspecified fields from the default.
package policy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
)

// AuthTier describes whether and how identity is mandatory for a route.
type AuthTier int

const (
	// TierRequired is the zero value so a forgotten tier fails closed.
	TierRequired AuthTier = iota
	TierNone
	TierOptional
	TierServiceToService
)

func (t AuthTier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierOptional:
		return "optional"
	case TierRequired:
		return "required"
	case TierServiceToService:
		return "serviceToService"
	default:
		return fmt.Sprintf("AuthTier(%d)", int(t))
	}
}

// ParseAuthTier maps the textual tier names back to AuthTier.
func ParseAuthTier(s string) (AuthTier, error) {
	switch s {
	case "none":
		return TierNone, nil
	case "optional":
		return TierOptional, nil
	case "required":
		return TierRequired, nil
	case "serviceToService", "service_to_service":
		return TierServiceToService, nil
	default:
		return TierRequired, fmt.Errorf("unknown auth tier %q", s)
	}
}

// Rate limit preset keys understood by the rate limiter.
const (
	RateLimitWeb     = "web"
	RateLimitAPI     = "api"
	RateLimitAuth    = "auth"
	RateLimitWebhook = "webhook"
)

// SecurityPolicy is the fully resolved authorization requirement of one route.
// Values are built with Merge and never mutated afterwards.
type SecurityPolicy struct {
	AuthTier             AuthTier
	AllowedRoles         []auth.PlatformRole // empty = no role restriction
	RateLimitPreset      string
	RequireOrgManagement bool
	AllowedIPs           []string // nil = no restriction
}

// Partial is a policy with every field optional. Nil fields take the default.
type Partial struct {
	AuthTier             *AuthTier
	AllowedRoles         []auth.PlatformRole
	RateLimitPreset      *string
	RequireOrgManagement *bool
	AllowedIPs           []string
}

// Default returns a fresh copy of the global default policy.
func Default() SecurityPolicy {
	return SecurityPolicy{
		AuthTier:        TierRequired,
		AllowedRoles:    []auth.PlatformRole{},
		RateLimitPreset: RateLimitAPI,
	}
}

// Merge resolves p against the default policy. Fields set on p override the
// default; omitted fields keep the default's value. Neither input is mutated
// and the result shares no backing arrays with p.
func Merge(p *Partial) SecurityPolicy {
	out := Default()
	if p == nil {
		return out
	}
	if p.AuthTier != nil {
		out.AuthTier = *p.AuthTier
	}
	if p.AllowedRoles != nil {
		out.AllowedRoles = slices.Clone(p.AllowedRoles)
	}
	if p.RateLimitPreset != nil {
		out.RateLimitPreset = *p.RateLimitPreset
	}
	if p.RequireOrgManagement != nil {
		out.RequireOrgManagement = *p.RequireOrgManagement
	}
	if p.AllowedIPs != nil {
		out.AllowedIPs = slices.Clone(p.AllowedIPs)
	}
	return out
}

// Tier, Preset and Bool return pointers for building a Partial inline.
func Tier(t AuthTier) *AuthTier { return &t }
func Preset(s string) *string   { return &s }
func Bool(b bool) *bool         { return &b }

// AllowsRole reports exact membership of role in AllowedRoles. An empty set
// allows every role.
func (p SecurityPolicy) AllowsRole(role auth.PlatformRole) bool {
	if len(p.AllowedRoles) == 0 {
		return true
	}
	return slices.Contains(p.AllowedRoles, role)
}

// RestrictsIP reports whether an IP allow-list is configured.
func (p SecurityPolicy) RestrictsIP() bool {
	return p.AllowedIPs != nil
}

// AllowsIP reports whether ip is on the allow-list. Without an allow-list every
// address is allowed.
func (p SecurityPolicy) AllowsIP(ip string) bool {
	if !p.RestrictsIP() {
		return true
	}
	return slices.Contains(p.AllowedIPs, ip)
}

// RoleStrings returns AllowedRoles as plain strings, for error details and logs.
func (p SecurityPolicy) RoleStrings() []string {
	out := make([]string, len(p.AllowedRoles))
	for i, r := range p.AllowedRoles {
		out[i] = string(r)
	}
	return out
}

func (p SecurityPolicy) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tier=%s rate=%s", p.AuthTier, p.RateLimitPreset)
	if len(p.AllowedRoles) > 0 {
		fmt.Fprintf(&b, " roles=%s", strings.Join(p.RoleStrings(), ","))
	}
	if p.RequireOrgManagement {
		b.WriteString(" org=manage")
	}
	if p.RestrictsIP() {
		fmt.Fprintf(&b, " ips=%s", strings.Join(p.AllowedIPs, ","))
	}
	return b.String()
}
