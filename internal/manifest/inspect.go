package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/compose-spec/compose-go/v2/cli"

	"github.com/blackwell-systems/devstack/internal/service"
)

// ServiceInfo summarizes one service as compose itself understands it.
type ServiceInfo struct {
	Name          string
	Image         string
	ContainerName string
	Ports         []PortInfo
	Environment   map[string]string
}

// PortInfo is one published port.
type PortInfo struct {
	Host      int
	Container int
}

// Inspect loads path with compose-go, which applies the full compose schema,
// and returns its services sorted by name. Interpolation is disabled so
// unresolved ${VAR} references do not fail the load.
func Inspect(ctx context.Context, path, project string) ([]ServiceInfo, error) {
	opts, err := cli.NewProjectOptions(
		[]string{path},
		cli.WithName(service.Slug(project)),
		cli.WithWorkingDirectory(filepath.Dir(path)),
		cli.WithInterpolation(false),
	)
	if err != nil {
		return nil, fmt.Errorf("project options: %w", err)
	}

	p, err := cli.ProjectFromOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	out := make([]ServiceInfo, 0, len(p.Services))
	for name, svc := range p.Services {
		info := ServiceInfo{
			Name:          name,
			Image:         svc.Image,
			ContainerName: svc.ContainerName,
			Environment:   map[string]string{},
		}
		for k, v := range svc.Environment {
			if v != nil {
				info.Environment[k] = *v
			}
		}
		for _, port := range svc.Ports {
			host, _ := strconv.Atoi(port.Published)
			info.Ports = append(info.Ports, PortInfo{Host: host, Container: int(port.Target)})
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Lookup returns the named service from a slice produced by Inspect.
func Lookup(services []ServiceInfo, name string) (ServiceInfo, bool) {
	for _, s := range services {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceInfo{}, false
}
