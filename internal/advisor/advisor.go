// Package advisor handles the path where a service is not containerized:
// it explains how to install the service on the host and collects the
// connection parameters of an instance the developer runs themselves.
package advisor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blackwell-systems/devstack/internal/prompt"
	"github.com/blackwell-systems/devstack/internal/service"
)

// DockerInstallURL is shown whenever the engine is missing.
const DockerInstallURL = "https://docs.docker.com/get-docker/"

var osNames = map[string]string{
	"darwin":  "macOS",
	"linux":   "Linux",
	"windows": "Windows",
}

// OSName is the human name for a GOOS value.
func OSName(goos string) string {
	if n, ok := osNames[goos]; ok {
		return n
	}
	return goos
}

// Guidance returns install instructions for running d on goos without a
// container engine.
func Guidance(goos string, d service.Descriptor) string {
	var b strings.Builder

	if d.External {
		fmt.Fprintf(&b, "%s is a managed service and is never run locally.\n", d.DisplayName)
		fmt.Fprintf(&b, "Create the resource in your cloud account, then supply its settings and access keys:\n")
		for _, cmd := range d.Install["all"] {
			fmt.Fprintf(&b, "  %s\n", cmd)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "%s will use an instance running directly on this machine.\n\n", d.DisplayName)

	steps := d.Install[goos]
	if len(steps) == 0 {
		fmt.Fprintf(&b, "No install instructions for %s. See the %s documentation.\n", OSName(goos), d.DisplayName)
	} else {
		fmt.Fprintf(&b, "Install on %s:\n", OSName(goos))
		for _, cmd := range steps {
			fmt.Fprintf(&b, "  %s\n", cmd)
		}
	}

	p := d.PrimaryPort()
	fmt.Fprintf(&b, "\nIt is expected on %s:%d unless you enter different settings.\n", d.LocalHost, p.Default)
	fmt.Fprintf(&b, "To let devstack manage it in a container instead, install Docker: %s", DockerInstallURL)
	return b.String()
}

// Advisor collects local connection parameters.
type Advisor struct {
	Prompter prompt.Prompter
}

// New returns an Advisor asking questions through p.
func New(p prompt.Prompter) *Advisor {
	if p == nil {
		p = prompt.Defaults{}
	}
	return &Advisor{Prompter: p}
}

// Collect asks for the settings of a developer-run instance, starting from
// defaults. Without an interactive prompter the defaults are returned as-is.
func (a *Advisor) Collect(d service.Descriptor, defaults service.Connection) (service.Connection, error) {
	conn := clone(defaults)
	if !a.Prompter.Interactive() {
		return conn, nil
	}

	var err error
	if !d.External {
		if conn.Host, err = a.Prompter.Input(d.DisplayName+" host", conn.Host); err != nil {
			return defaults, err
		}
		for _, p := range d.Ports {
			title := fmt.Sprintf("%s %s port", d.DisplayName, p.Name)
			answer, err := a.Prompter.Input(title, strconv.Itoa(conn.Ports[p.Name]))
			if err != nil {
				return defaults, err
			}
			port, err := strconv.Atoi(strings.TrimSpace(answer))
			if err != nil || port < 1 || port > 65535 {
				return defaults, fmt.Errorf("%s: invalid port %q", title, answer)
			}
			conn.Ports[p.Name] = port
		}
	}

	if _, ok := d.Defaults["username"]; ok {
		if conn.Username, err = a.Prompter.Input(d.DisplayName+" username", conn.Username); err != nil {
			return defaults, err
		}
	}
	if d.ResourceVar != "" {
		if conn.Resource, err = a.Prompter.Input(fmt.Sprintf("%s %s", d.DisplayName, d.ResourceVar), conn.Resource); err != nil {
			return defaults, err
		}
	}
	for _, k := range sortedKeys(conn.Settings) {
		if conn.Settings[k], err = a.Prompter.Input(fmt.Sprintf("%s %s", d.DisplayName, k), conn.Settings[k]); err != nil {
			return defaults, err
		}
	}

	for _, c := range d.Credentials {
		if c.ContainerOnly {
			continue
		}
		if conn.Credentials[c.Var], err = a.secret(d, c.Var, conn.Credentials[c.Var]); err != nil {
			return defaults, err
		}
	}
	for _, v := range d.LocalSecrets {
		if conn.Credentials[v], err = a.secret(d, v, conn.Credentials[v]); err != nil {
			return defaults, err
		}
	}
	return conn, nil
}

func (a *Advisor) secret(d service.Descriptor, name, def string) (string, error) {
	return a.Prompter.Password(fmt.Sprintf("%s %s", d.DisplayName, strings.ReplaceAll(name, "_", " ")), def)
}

func clone(c service.Connection) service.Connection {
	out := c
	out.Ports = copyMap(c.Ports)
	out.Credentials = copyMap(c.Credentials)
	out.Settings = copyMap(c.Settings)
	return out
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
