package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devstack/internal/docker"
	"github.com/blackwell-systems/devstack/internal/manifest"
	"github.com/blackwell-systems/devstack/internal/provision"
	"github.com/blackwell-systems/devstack/internal/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show status of the app's services",
	Long: `Display the state of every service in the app's manifest. Container
state comes from the Engine API; when it is unreachable, services with an
HTTP health check are probed directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, appPath, err := appFromFlags(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("app")

		services, err := manifest.Inspect(ctx, a.manifestPath(appPath), appName(name, appPath))
		if err != nil {
			color.Red("✗ Failed to read manifest: %v", err)
			return err
		}

		statuses := serviceStatuses(ctx, services)

		// Print status
		color.Cyan("Service          Status        Ports")
		color.Cyan("────────────────────────────────────────")
		for _, s := range services {
			printServiceStatus(s, statuses[s.Name])
		}
		return nil
	},
}

func serviceStatuses(ctx context.Context, services []manifest.ServiceInfo) map[string]docker.ServiceStatus {
	out := make(map[string]docker.ServiceStatus, len(services))
	probes := map[string]docker.ReadinessProbe{}

	for _, s := range services {
		if s.ContainerName != "" {
			st, err := docker.ContainerStatus(ctx, s.ContainerName)
			if err == nil {
				out[s.Name] = st
				continue
			}
		}
		probes[s.Name] = httpProbe(s)
	}

	for name, st := range docker.Status(ctx, probes) {
		out[name] = st
	}
	return out
}

// httpProbe builds a readiness probe for catalog services with an HTTP
// health check, using the host ports from the manifest. Others get nil.
func httpProbe(s manifest.ServiceInfo) docker.ReadinessProbe {
	d, err := service.Lookup(s.Name)
	if err != nil || d.Health.Kind != service.HealthHTTP {
		return nil
	}

	conn := service.Connection{Host: d.LocalHost, Ports: map[string]int{}}
	for _, p := range d.Ports {
		for _, published := range s.Ports {
			if published.Container == p.Container && published.Host != 0 {
				conn.Ports[p.Name] = published.Host
			}
		}
	}
	return provision.ProbeFor(d, "", conn, nil, nil)
}

func printServiceStatus(s manifest.ServiceInfo, status docker.ServiceStatus) {
	var statusText string
	switch status {
	case docker.ServiceUp:
		statusText = color.GreenString("✓ UP        ")
	case docker.ServiceDown:
		statusText = color.RedString("✗ DOWN      ")
	case docker.ServiceStarting:
		statusText = color.YellowString("⚠ STARTING  ")
	default:
		statusText = color.RedString("✗ UNKNOWN   ")
	}

	ports := ""
	for i, p := range s.Ports {
		if i > 0 {
			ports += ","
		}
		ports += fmt.Sprintf("%d", p.Host)
	}
	color.New().Printf("%-16s %s  %s\n", s.Name, statusText, ports)
}

func init() {
	addAppFlags(statusCmd)
}
