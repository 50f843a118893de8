package service

import "strconv"

// Connection is how an application reaches a provisioned service, whether
// it runs in a container or was installed by the developer.
type Connection struct {
	Host string
	// Ports are host ports keyed by Port.Name.
	Ports    map[string]int
	Username string
	// Resource is the bootstrap resource: bucket, database, vhost or queue.
	Resource    string
	Credentials map[string]string
	// Settings carries descriptor-level values such as region.
	Settings map[string]string
}

// Port returns the host port for name, or zero.
func (c Connection) Port(name string) int {
	return c.Ports[name]
}

// DefaultConnection derives the connection a provisioning run starts from:
// host, host ports and defaults from vars (see BaseVariables), plus the
// secrets in creds.
func DefaultConnection(d Descriptor, host string, vars, creds map[string]string) Connection {
	conn := Connection{
		Host:        host,
		Ports:       map[string]int{},
		Username:    vars["username"],
		Credentials: map[string]string{},
		Settings:    map[string]string{},
	}
	for _, p := range d.Ports {
		port, err := strconv.Atoi(vars[PortVar(p.Name)])
		if err != nil || port <= 0 {
			port = p.Default
		}
		conn.Ports[p.Name] = port
	}
	if d.ResourceVar != "" {
		conn.Resource = vars[d.ResourceVar]
	}
	for k := range d.Defaults {
		if k == "username" || k == d.ResourceVar {
			continue
		}
		conn.Settings[k] = vars[k]
	}
	for k, v := range creds {
		conn.Credentials[k] = v
	}
	return conn
}
