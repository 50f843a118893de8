package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devstack/internal/manifest"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Show the services defined in an app's manifest",
	Long: `Load the app's docker-compose.yml with the compose loader and list its
services. Fails when the file is not a valid compose project.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, appPath, err := appFromFlags(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("app")

		path := a.manifestPath(appPath)
		services, err := manifest.Inspect(ctx, path, appName(name, appPath))
		if err != nil {
			color.Red("✗ %v", err)
			return err
		}

		color.Cyan("%s", path)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-16s %-32s %-28s %s\n", "SERVICE", "IMAGE", "CONTAINER", "PORTS")
		for _, s := range services {
			ports := make([]string, 0, len(s.Ports))
			for _, p := range s.Ports {
				ports = append(ports, fmt.Sprintf("%d->%d", p.Host, p.Container))
			}
			fmt.Fprintf(out, "%-16s %-32s %-28s %s\n", s.Name, s.Image, s.ContainerName, strings.Join(ports, ","))
		}
		return nil
	},
}

// appFromFlags loads the app wiring and resolves --path.
func appFromFlags(cmd *cobra.Command) (*app, string, error) {
	path, _ := cmd.Flags().GetString("path")
	appPath, err := resolvePath(path)
	if err != nil {
		return nil, "", err
	}
	a, err := newApp(cmd.Context(), cmd)
	if err != nil {
		return nil, "", err
	}
	return a, appPath, nil
}

func addAppFlags(cmd *cobra.Command) {
	cmd.Flags().String("path", ".", "Application directory holding the manifest")
	cmd.Flags().String("app", "", "Application name (default: directory name)")
}

func init() {
	addAppFlags(manifestCmd)
}
