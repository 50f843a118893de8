package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devstack/internal/service"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "devstack version %s\n", cmd.Root().Version)
		fmt.Fprintln(out, "\nImages:")
		for _, d := range service.All() {
			if d.External {
				continue
			}
			fmt.Fprintf(out, "  %-14s %s\n", d.DisplayName+":", d.Image)
		}
	},
}
