package bootstrap

import (
	"context"

	"github.com/blackwell-systems/devstack/internal/docker"
)

// DefaultVhost exists on every broker and needs no bootstrap.
const DefaultVhost = "/"

// Vhost creates a RabbitMQ virtual host and grants the application user
// full permissions on it.
type Vhost struct {
	Exec docker.Executor
}

func (v *Vhost) Ensure(ctx context.Context, t Target, spec ResourceSpec, _ map[string]string) (Result, error) {
	vhost := spec.Name
	if vhost == "" || vhost == DefaultVhost {
		return Result{AlreadyExisted: true, Resource: DefaultVhost}, nil
	}

	created := true
	add := []string{"rabbitmqctl", "add_vhost", vhost}
	res, err := v.Exec.Exec(ctx, t.Manifest, t.Service, add...)
	if err != nil {
		if !containsAny(res.Output(), "already exists", "vhost_already_exists") {
			return Result{}, &BootstrapError{
				Resource:    vhost,
				Step:        "add vhost",
				Output:      res.Output(),
				Remediation: remediation(t, add...),
				Err:         err,
			}
		}
		created = false
	}

	perms := []string{"rabbitmqctl", "set_permissions", "-p", vhost, spec.Username, ".*", ".*", ".*"}
	if res, err := v.Exec.Exec(ctx, t.Manifest, t.Service, perms...); err != nil {
		return Result{}, &BootstrapError{
			Resource:    vhost,
			Step:        "set permissions",
			Output:      res.Output(),
			Remediation: remediation(t, perms...),
			Err:         err,
		}
	}
	return Result{Created: created, AlreadyExisted: !created, Resource: vhost}, nil
}
