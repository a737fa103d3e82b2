package policy

import (
	"sort"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
)

// Public is open to anonymous callers.
func Public() SecurityPolicy {
	return Merge(&Partial{AuthTier: Tier(TierNone), RateLimitPreset: Preset(RateLimitWeb)})
}

// Authenticated requires a principal.
func Authenticated() SecurityPolicy {
	return Merge(&Partial{AuthTier: Tier(TierRequired), RateLimitPreset: Preset(RateLimitAPI)})
}

// CreatorGated requires a creator or admin principal.
func CreatorGated() SecurityPolicy {
	return Merge(&Partial{
		AuthTier:     Tier(TierRequired),
		AllowedRoles: []auth.PlatformRole{auth.RoleCreator, auth.RoleAdmin},
	})
}

// AdminOnly requires an admin principal and uses the strict rate limit.
func AdminOnly() SecurityPolicy {
	return Merge(&Partial{
		AuthTier:        Tier(TierRequired),
		AllowedRoles:    []auth.PlatformRole{auth.RoleAdmin},
		RateLimitPreset: Preset(RateLimitAuth),
	})
}

// ServiceToService requires a trusted caller, independent of any principal.
func ServiceToService() SecurityPolicy {
	return Merge(&Partial{AuthTier: Tier(TierServiceToService), RateLimitPreset: Preset(RateLimitWebhook)})
}

// Sensitive requires a principal and uses the strict rate limit.
func Sensitive() SecurityPolicy {
	return Merge(&Partial{AuthTier: Tier(TierRequired), RateLimitPreset: Preset(RateLimitAuth)})
}

// OrgManagement requires a principal who owns or administers the organization
// named by the route.
func OrgManagement() SecurityPolicy {
	return Merge(&Partial{
		AuthTier:             Tier(TierRequired),
		RequireOrgManagement: Bool(true),
		RateLimitPreset:      Preset(RateLimitAPI),
	})
}

// NamedPreset pairs a preset name with its constructor.
type NamedPreset struct {
	Name   string
	Policy func() SecurityPolicy
}

var catalog = map[string]func() SecurityPolicy{
	"public":           Public,
	"authenticated":    Authenticated,
	"creatorGated":     CreatorGated,
	"adminOnly":        AdminOnly,
	"serviceToService": ServiceToService,
	"sensitive":        Sensitive,
	"orgManagement":    OrgManagement,
}

// Presets returns the catalog sorted by name.
func Presets() []NamedPreset {
	out := make([]NamedPreset, 0, len(catalog))
	for name, fn := range catalog {
		out = append(out, NamedPreset{Name: name, Policy: fn})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the named preset.
func Lookup(name string) (SecurityPolicy, bool) {
	fn, ok := catalog[name]
	if !ok {
		return SecurityPolicy{}, false
	}
	return fn(), true
}

// RateLimitPresets lists the rate limit keys referenced by the catalog.
func RateLimitPresets() []string {
	return []string{RateLimitWeb, RateLimitAPI, RateLimitAuth, RateLimitWebhook}
}
