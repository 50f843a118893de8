package manifest

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/devstack/internal/service"
)

// serviceSpec is the compose service definition written for a descriptor.
// Field order is the order keys appear in the file.
type serviceSpec struct {
	Image         string       `yaml:"image"`
	ContainerName string       `yaml:"container_name"`
	Command       []string     `yaml:"command,omitempty"`
	Ports         []string     `yaml:"ports,omitempty"`
	Environment   []string     `yaml:"environment,omitempty"`
	Volumes       []string     `yaml:"volumes,omitempty"`
	Networks      []string     `yaml:"networks,omitempty"`
	Healthcheck   *healthcheck `yaml:"healthcheck,omitempty"`
	Restart       string       `yaml:"restart"`
}

type healthcheck struct {
	Test     []string `yaml:"test"`
	Interval string   `yaml:"interval"`
	Timeout  string   `yaml:"timeout"`
	Retries  int      `yaml:"retries"`
}

// buildSpec substitutes vars into the descriptor's templates.
func buildSpec(d service.Descriptor, vars map[string]string) serviceSpec {
	spec := serviceSpec{
		Image:         d.Image,
		ContainerName: vars["container_name"],
		Command:       service.ExpandAll(d.Command, vars),
		Restart:       "unless-stopped",
	}

	for _, p := range d.Ports {
		host := vars[service.PortVar(p.Name)]
		if host == "" {
			host = fmt.Sprint(p.Default)
		}
		spec.Ports = append(spec.Ports, fmt.Sprintf("%s:%d", host, p.Container))
	}
	for _, e := range d.Environment {
		spec.Environment = append(spec.Environment, e.Key+"="+service.Expand(e.Template, vars))
	}
	if d.VolumeTarget != "" {
		spec.Volumes = []string{vars["volume_name"] + ":" + d.VolumeTarget}
	}
	if n := vars["network_name"]; n != "" {
		spec.Networks = []string{n}
	}
	if d.Health.Kind == service.HealthExec {
		spec.Healthcheck = &healthcheck{
			Test:     append([]string{"CMD"}, service.ExpandAll(d.Health.Command, vars)...),
			Interval: "5s",
			Timeout:  "5s",
			Retries:  10,
		}
	}
	return spec
}

// renderService encodes one "name: {spec}" block at column zero using the
// given indentation width.
func renderService(name string, spec serviceSpec, indent int) ([]string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(map[string]serviceSpec{name: spec}); err != nil {
		return nil, fmt.Errorf("render service %s: %w", name, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render service %s: %w", name, err)
	}
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"), nil
}
