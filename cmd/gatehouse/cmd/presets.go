package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/policy"
)

var presetsCmd = &cobra.Command{
	Use:   "presets [name]",
	Short: "Print the security policy presets routes are built from",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		presets := policy.Presets()
		if len(args) == 1 {
			p, ok := policy.Lookup(args[0])
			if !ok {
				names := make([]string, len(presets))
				for i, np := range presets {
					names[i] = np.Name
				}
				return fmt.Errorf("unknown preset %q (known: %v)", args[0], names)
			}
			presets = []policy.NamedPreset{{Name: args[0], Policy: func() policy.SecurityPolicy { return p }}}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PRESET\tPOLICY")
		for _, np := range presets {
			fmt.Fprintf(w, "%s\t%s\n", np.Name, np.Policy())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
