package bootstrap

import (
	"context"
	"fmt"

	"github.com/blackwell-systems/devstack/internal/docker"
)

// ObjectStorage creates a bucket with the MinIO client bundled in the
// server image.
type ObjectStorage struct {
	Exec docker.Executor
	// Endpoint is the API address as seen from inside the container.
	Endpoint string
}

const mcAlias = "local"

func (o *ObjectStorage) Ensure(ctx context.Context, t Target, spec ResourceSpec, creds map[string]string) (Result, error) {
	bucket := spec.Name
	if bucket == "" {
		return Result{}, &BootstrapError{Resource: "bucket", Step: "validate", Err: fmt.Errorf("bucket name is empty")}
	}
	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}

	alias := []string{"mc", "alias", "set", mcAlias, endpoint, creds["access_key"], creds["secret_key"]}
	if res, err := o.Exec.Exec(ctx, t.Manifest, t.Service, alias...); err != nil {
		return Result{}, &BootstrapError{
			Resource:    bucket,
			Step:        "configure client alias",
			Output:      res.Output(),
			Remediation: remediation(t, "mc", "alias", "set", mcAlias, endpoint, "<access-key>", "<secret-key>"),
			Err:         err,
		}
	}

	mb := []string{"mc", "mb", mcAlias + "/" + bucket}
	res, err := o.Exec.Exec(ctx, t.Manifest, t.Service, mb...)
	if err != nil {
		if containsAny(res.Output(), "already own it", "already exists") {
			return Result{AlreadyExisted: true, Resource: bucket}, nil
		}
		return Result{}, &BootstrapError{
			Resource:    bucket,
			Step:        "create bucket",
			Output:      res.Output(),
			Remediation: remediation(t, mb...),
			Err:         err,
		}
	}
	return Result{Created: true, Resource: bucket}, nil
}
