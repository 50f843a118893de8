package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devstack/internal/advisor"
	"github.com/blackwell-systems/devstack/internal/service"
	"github.com/blackwell-systems/devstack/internal/ui"
)

var guidanceCmd = &cobra.Command{
	Use:   "guidance [family|service]",
	Short: "Show how to install a service without containers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := service.Lookup(args[0])
		if err != nil {
			return err
		}
		goos, _ := cmd.Flags().GetString("os")
		ui.NewConsole(cmd.OutOrStdout()).Panel("Install "+d.DisplayName, advisor.Guidance(goos, d))
		return nil
	},
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the services devstack can provision",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-16s %-12s %-32s %s\n", "FAMILY", "SERVICE", "IMAGE", "PORTS")
		for _, d := range service.All() {
			image := d.Image
			if d.External {
				image = "(managed)"
			}
			fmt.Fprintf(out, "%-16s %-12s %-32s %s\n", d.Family, d.Name, image, portList(d))
		}
	},
}

func portList(d service.Descriptor) string {
	s := ""
	for i, p := range d.Ports {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%d", p.Default)
	}
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	guidanceCmd.Flags().String("os", runtime.GOOS, "Target OS (darwin|linux|windows)")
}
