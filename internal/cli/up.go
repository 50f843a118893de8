package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up [service...]",
	Short: "Start the app's services",
	Long:  `Start the services in the app's manifest (all of them when none are named).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, appPath, err := appFromFlags(cmd)
		if err != nil {
			return err
		}

		path := a.manifestPath(appPath)
		color.Cyan("Starting services from %s...", path)

		if pull, _ := cmd.Flags().GetBool("pull"); pull {
			color.Cyan("→ Pulling latest images...")
			if err := a.lifecycle.Pull(cmd.Context(), path, args...); err != nil {
				color.Yellow("⚠ Failed to pull images: %v", err)
			}
		}

		if err := a.lifecycle.Start(cmd.Context(), path, args...); err != nil {
			color.Red("✗ Failed to start services: %v", err)
			return err
		}

		color.Green("✓ Services started successfully")
		color.Cyan("\nRun 'devstack status' to check health")
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the app's services",
	Long:  `Stop and remove the app's containers. Named volumes are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, appPath, err := appFromFlags(cmd)
		if err != nil {
			return err
		}

		color.Cyan("Stopping services...")
		if err := a.lifecycle.Stop(cmd.Context(), a.manifestPath(appPath)); err != nil {
			color.Red("✗ Failed to stop services: %v", err)
			return err
		}

		color.Green("✓ Services stopped successfully")
		return nil
	},
}

func init() {
	addAppFlags(upCmd)
	addAppFlags(downCmd)
	upCmd.Flags().Bool("pull", false, "Pull latest images before starting")
}
