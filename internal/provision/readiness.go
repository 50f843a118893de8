package provision

import (
	"fmt"

	"github.com/blackwell-systems/devstack/internal/docker"
	"github.com/blackwell-systems/devstack/internal/service"
)

// ProbeFactory builds the readiness probe for a started service. It returns
// nil when the descriptor declares no health check.
type ProbeFactory func(d service.Descriptor, manifestPath string, conn service.Connection, vars map[string]string, exec docker.Executor) docker.ReadinessProbe

// ProbeFor is the default ProbeFactory. HTTP checks hit the published host
// port; exec checks run inside the container through compose.
func ProbeFor(d service.Descriptor, manifestPath string, conn service.Connection, vars map[string]string, exec docker.Executor) docker.ReadinessProbe {
	switch d.Health.Kind {
	case service.HealthHTTP:
		port := conn.Port(d.Health.Port)
		if port == 0 {
			if p, ok := d.PortByName(d.Health.Port); ok {
				port = p.Default
			}
		}
		return docker.HTTPProbe{
			URL:    fmt.Sprintf("http://%s:%d%s", conn.Host, port, d.Health.Path),
			Expect: d.Health.Expect,
		}
	case service.HealthExec:
		return docker.CommandProbe{
			Exec:     exec,
			Manifest: manifestPath,
			Service:  d.Name,
			Command:  service.ExpandAll(d.Health.Command, vars),
		}
	default:
		return nil
	}
}
