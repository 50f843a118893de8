package cli

import (
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devstack/internal/advisor"
	"github.com/blackwell-systems/devstack/internal/docker"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the container engine setup",
	Long: `Check that the container engine is installed and running, that compose
is available, and that the Engine API answers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		engine := a.probe.Engine()

		color.Cyan("Checking %s...", engine)
		healthy := true

		check := func(ok bool, pass, fail string) {
			if ok {
				color.Green("✓ %s", pass)
				return
			}
			healthy = false
			color.Red("✗ %s", fail)
		}

		installed := a.probe.IsEngineInstalled(ctx)
		check(installed, engine+" is installed", engine+" is not installed; see "+advisor.DockerInstallURL)
		if installed {
			check(a.probe.IsEngineRunning(ctx), engine+" is running", engine+" is installed but not running")
			check(a.probe.IsComposeAvailable(ctx),
				"compose is available ("+strings.Join(a.probe.ComposeCommand(), " ")+")",
				"compose is not available")
		}

		info, err := docker.PingDaemon(ctx)
		if err != nil {
			color.Yellow("⚠ Engine API unreachable: %v", err)
		} else {
			color.Green("✓ Engine API %s (%s)", info.APIVersion, info.OSType)
		}

		if !healthy {
			color.Yellow("\nServices will fall back to local instances until this is fixed.")
		}
		return nil
	},
}
