package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// DaemonInfo is what the Engine API reports on ping.
type DaemonInfo struct {
	APIVersion string
	OSType     string
}

// PingDaemon contacts the Docker Engine API using DOCKER_HOST and friends.
// It complements the CLI probe when diagnosing a broken setup: a CLI that
// works while the socket does not usually means a context mismatch.
func PingDaemon(ctx context.Context) (DaemonInfo, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return DaemonInfo{}, fmt.Errorf("docker client: %w", err)
	}
	defer cli.Close()

	ping, err := cli.Ping(ctx)
	if err != nil {
		return DaemonInfo{}, fmt.Errorf("ping docker daemon: %w", err)
	}

	return DaemonInfo{APIVersion: ping.APIVersion, OSType: ping.OSType}, nil
}

// ContainerStatus asks the Engine API for a container's state. A container
// that does not exist is reported down rather than as an error.
func ContainerStatus(ctx context.Context, name string) (ServiceStatus, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return ServiceUnknown, fmt.Errorf("docker client: %w", err)
	}
	defer cli.Close()

	info, err := cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return ServiceDown, nil
		}
		return ServiceUnknown, fmt.Errorf("inspect container %s: %w", name, err)
	}
	if info.ContainerJSONBase == nil || info.State == nil {
		return ServiceUnknown, nil
	}

	health := ""
	if info.State.Health != nil {
		health = string(info.State.Health.Status)
	}
	return stateStatus(info.State.Running, health), nil
}

// stateStatus maps container state to a ServiceStatus. A health check, when
// the image defines one, takes precedence over the running flag.
func stateStatus(running bool, health string) ServiceStatus {
	if !running {
		return ServiceDown
	}
	switch health {
	case "healthy", "":
		return ServiceUp
	case "starting":
		return ServiceStarting
	default:
		return ServiceDown
	}
}
