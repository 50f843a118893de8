// Package bootstrap creates the default resource a freshly started service
// needs: a bucket, a database and user, or a message queue vhost.
//
// Every Bootstrapper is idempotent. A resource that already exists is a
// success, so provisioning can be re-run against a stack that is already up.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/blackwell-systems/devstack/internal/docker"
	"github.com/blackwell-systems/devstack/internal/service"
)

// Target locates the running container a bootstrap step executes in.
type Target struct {
	Manifest string
	Service  string
	// Compose is the compose argv prefix used to render remediation
	// commands. Defaults to "docker compose".
	Compose []string
}

// ResourceSpec names the resource to ensure and its owner.
type ResourceSpec struct {
	Name     string
	Username string
	Password string
}

// Result reports what Ensure did.
type Result struct {
	Created        bool
	AlreadyExisted bool
	Resource       string
}

// Bootstrapper ensures one default resource exists.
type Bootstrapper interface {
	Ensure(ctx context.Context, target Target, spec ResourceSpec, creds map[string]string) (Result, error)
}

// BootstrapError is a soft failure: the service runs but its default
// resource could not be created. Remediation is a command the developer can
// run by hand.
type BootstrapError struct {
	Resource    string
	Step        string
	Output      string
	Remediation string
	Err         error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap %s: %s: %v", e.Resource, e.Step, e.Err)
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}

// Registry maps each bootstrap kind to its implementation.
type Registry map[service.BootstrapKind]Bootstrapper

// NewRegistry wires every kind to exec, which runs commands inside service
// containers.
func NewRegistry(exec docker.Executor) Registry {
	return Registry{
		service.BootstrapNone:     None{},
		service.BootstrapBucket:   &ObjectStorage{Exec: exec},
		service.BootstrapDatabase: &Database{Exec: exec},
		service.BootstrapVhost:    &Vhost{Exec: exec},
	}
}

// For returns the bootstrapper for kind, falling back to None.
func (r Registry) For(kind service.BootstrapKind) Bootstrapper {
	if b, ok := r[kind]; ok && b != nil {
		return b
	}
	return None{}
}

// None is used by services without a default resource (cache, search,
// managed queues).
type None struct{}

func (None) Ensure(context.Context, Target, ResourceSpec, map[string]string) (Result, error) {
	return Result{}, nil
}

// remediation renders "<compose> -f <manifest> exec <service> <cmd...>"
// with shell quoting.
func remediation(t Target, cmd ...string) string {
	compose := t.Compose
	if len(compose) == 0 {
		compose = []string{"docker", "compose"}
	}
	argv := append([]string{}, compose...)
	argv = append(argv, "-f", t.Manifest, "exec", t.Service)
	argv = append(argv, cmd...)
	return shellquote.Join(argv...)
}

func containsAny(s string, needles ...string) bool {
	s = strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
