package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
)

func TestPresets(t *testing.T) {
	tests := []struct {
		name   string
		policy SecurityPolicy
		tier   AuthTier
		roles  []auth.PlatformRole
		rate   string
		org    bool
	}{
		{"public", Public(), TierNone, []auth.PlatformRole{}, RateLimitWeb, false},
		{"authenticated", Authenticated(), TierRequired, []auth.PlatformRole{}, RateLimitAPI, false},
		{"creatorGated", CreatorGated(), TierRequired, []auth.PlatformRole{auth.RoleCreator, auth.RoleAdmin}, RateLimitAPI, false},
		{"adminOnly", AdminOnly(), TierRequired, []auth.PlatformRole{auth.RoleAdmin}, RateLimitAuth, false},
		{"serviceToService", ServiceToService(), TierServiceToService, []auth.PlatformRole{}, RateLimitWebhook, false},
		{"sensitive", Sensitive(), TierRequired, []auth.PlatformRole{}, RateLimitAuth, false},
		{"orgManagement", OrgManagement(), TierRequired, []auth.PlatformRole{}, RateLimitAPI, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.tier, tt.policy.AuthTier)
			assert.Equal(t, tt.roles, tt.policy.AllowedRoles)
			assert.Equal(t, tt.rate, tt.policy.RateLimitPreset)
			assert.Equal(t, tt.org, tt.policy.RequireOrgManagement)
			assert.Nil(t, tt.policy.AllowedIPs)

			named, ok := Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.policy, named)
		})
	}
}

func TestPresets_FreshValues(t *testing.T) {
	a := AdminOnly()
	a.AllowedRoles[0] = auth.RoleCustomer

	assert.Equal(t, []auth.PlatformRole{auth.RoleAdmin}, AdminOnly().AllowedRoles)
}

func TestPresets_Sorted(t *testing.T) {
	all := Presets()
	require.Len(t, all, 7)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name)
	}
}

func TestPresets_RateLimitKeysKnown(t *testing.T) {
	known := RateLimitPresets()
	for _, p := range Presets() {
		assert.Contains(t, known, p.Policy().RateLimitPreset, p.Name)
	}
}
