package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/policy"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/server"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the API routes and the policy guarding each",
	RunE: func(cmd *cobra.Command, args []string) error {
		routes := server.APIRoutes(server.HandlerDeps{Logger: logger})

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATTERN\tROLES\tORG\tRATE LIMIT\tTIER")
		for _, rt := range routes {
			p := rt.Policy
			roles := "-"
			if len(p.AllowedRoles) > 0 {
				names := make([]string, len(p.AllowedRoles))
				for i, r := range p.AllowedRoles {
					names[i] = r.String()
				}
				roles = strings.Join(names, ",")
			}
			org := "-"
			if p.RequireOrgManagement {
				org = "manage"
			}
			limit := p.RateLimitPreset
			if n, ok := cfg.RateLimit.Presets[p.RateLimitPreset]; ok {
				limit = fmt.Sprintf("%s (%d/%s)", p.RateLimitPreset, n, cfg.RateLimit.Window)
			}
			// Tier is the last column so color codes do not skew alignment.
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				rt.Method, rt.Pattern, roles, org, limit, tierColor(p.AuthTier).Sprint(p.AuthTier))
		}
		return w.Flush()
	},
}

func tierColor(t policy.AuthTier) *color.Color {
	switch t {
	case policy.TierNone:
		return color.New(color.FgGreen)
	case policy.TierOptional:
		return color.New(color.FgCyan)
	case policy.TierServiceToService:
		return color.New(color.FgMagenta)
	default:
		return color.New(color.FgYellow)
	}
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
