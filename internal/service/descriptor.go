// Package service holds the immutable descriptors for each provisionable
// service family and the naming convention shared by manifests, containers
// and volumes.
package service

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/blackwell-systems/devstack/internal/credentials"
)

// Family is a class of infrastructure an application may need.
type Family string

const (
	Cache         Family = "cache"
	Search        Family = "search"
	ObjectStorage Family = "object-storage"
	Queue         Family = "queue"
	Database      Family = "database"
)

// BootstrapKind names the default-resource procedure run after a service is ready.
type BootstrapKind string

const (
	BootstrapNone     BootstrapKind = "none"
	BootstrapBucket   BootstrapKind = "bucket"
	BootstrapDatabase BootstrapKind = "database"
	BootstrapVhost    BootstrapKind = "vhost"
)

// HealthKind selects the readiness probe variant.
type HealthKind int

const (
	HealthNone HealthKind = iota
	HealthHTTP
	HealthExec
)

// HealthCheck describes how to tell the service accepts requests.
// HTTP checks use Port/Path/Expect; exec checks use Command.
type HealthCheck struct {
	Kind    HealthKind
	Port    string
	Path    string
	Expect  string
	Command []string
}

// Port is a published port. Default is the host port used unless overridden.
type Port struct {
	Name      string
	Container int
	Default   int
}

// EnvVar is a container environment entry whose value is a ${var} template.
type EnvVar struct {
	Key      string
	Template string
}

// CredentialSpec declares a secret to generate into the variable Var.
type CredentialSpec struct {
	Var    string
	Kind   credentials.Kind
	Length int
	// ContainerOnly secrets (e.g. a root password) are meaningless for an
	// instance the developer installed and are not asked for locally.
	ContainerOnly bool
}

// Descriptor is the static definition of one service family member.
type Descriptor struct {
	Family       Family
	Name         string
	DisplayName  string
	Image        string
	Ports        []Port
	Environment  []EnvVar
	Command      []string
	VolumeTarget string
	Health       HealthCheck
	Bootstrap    BootstrapKind
	Credentials  []CredentialSpec

	// External backends are fully managed and never containerized.
	External bool

	// ConfigPrefix prefixes every normalized configuration key.
	ConfigPrefix string
	// LocalHost is the host assumed for an externally running instance.
	LocalHost string
	// ResourceVar is the variable holding the bootstrap resource name.
	ResourceVar string
	// Defaults are variable templates evaluated before credentials, e.g. usernames.
	Defaults map[string]string
	// LocalSecrets are extra secrets asked for on the local path only, with
	// an empty default (e.g. an optional cache password).
	LocalSecrets []string
	// Install lists per-OS install commands for the local fallback guidance.
	Install map[string][]string
}

// PrimaryPort returns the first declared port.
func (d Descriptor) PrimaryPort() Port {
	if len(d.Ports) == 0 {
		return Port{}
	}
	return d.Ports[0]
}

// PortByName looks up a declared port.
func (d Descriptor) PortByName(name string) (Port, bool) {
	for _, p := range d.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// PortVar is the variable name carrying the host port for a named port.
func PortVar(name string) string {
	return "port_" + name
}

// Naming is the deterministic set of names derived for one app/service pair.
type Naming struct {
	Prefix    string
	Container string
	Volume    string
	Network   string
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lower-cases s and collapses runs of other characters to '-'.
func Slug(s string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(slug, "-")
}

// Names applies the {app-prefix}-{service} convention.
func Names(app string, d Descriptor) Naming {
	prefix := Slug(app)
	if prefix == "" {
		prefix = "app"
	}
	return Naming{
		Prefix:    prefix,
		Container: prefix + "-" + d.Name,
		Volume:    prefix + "-" + d.Name + "-data",
		Network:   prefix + "-network",
	}
}

// Identifier turns an app name into a value safe as a SQL identifier or user name.
func Identifier(app string) string {
	id := strings.ReplaceAll(Slug(app), "-", "_")
	if id == "" {
		return "app"
	}
	return id
}

// BaseVariables returns the variables every template may reference: naming,
// host ports (after overrides) and descriptor defaults.
func BaseVariables(app string, d Descriptor, portOverride int) map[string]string {
	n := Names(app, d)
	vars := map[string]string{
		"app":            n.Prefix,
		"app_identifier": Identifier(app),
		"container_name": n.Container,
		"volume_name":    n.Volume,
		"network_name":   n.Network,
	}
	for i, p := range d.Ports {
		port := p.Default
		if i == 0 && portOverride > 0 {
			port = portOverride
		}
		vars[PortVar(p.Name)] = strconv.Itoa(port)
	}
	for k, tmpl := range d.Defaults {
		vars[k] = Expand(tmpl, vars)
	}
	return vars
}

// Expand substitutes ${name} references from vars. Unknown references are
// left in place so compose-level interpolation still sees them.
func Expand(s string, vars map[string]string) string {
	return os.Expand(s, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return "${" + name + "}"
	})
}

// ExpandAll applies Expand to each element.
func ExpandAll(in []string, vars map[string]string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Expand(s, vars)
	}
	return out
}

// Validate checks internal consistency of a descriptor.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor has no name")
	}
	if d.ConfigPrefix == "" {
		return fmt.Errorf("descriptor %s has no config prefix", d.Name)
	}
	if d.External {
		return nil
	}
	if d.Image == "" {
		return fmt.Errorf("descriptor %s has no image", d.Name)
	}
	if len(d.Ports) == 0 {
		return fmt.Errorf("descriptor %s declares no ports", d.Name)
	}
	switch d.Health.Kind {
	case HealthHTTP:
		if _, ok := d.PortByName(d.Health.Port); !ok {
			return fmt.Errorf("descriptor %s health check references unknown port %q", d.Name, d.Health.Port)
		}
	case HealthExec:
		if len(d.Health.Command) == 0 {
			return fmt.Errorf("descriptor %s exec health check has no command", d.Name)
		}
	}
	return nil
}
