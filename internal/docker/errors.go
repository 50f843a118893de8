package docker

import (
	"errors"
	"fmt"
)

// ErrEngineUnavailable means the container engine is missing, stopped, or has
// no compose subsystem. Callers fall back to a local install.
var ErrEngineUnavailable = errors.New("container engine unavailable")

// ContainerStartError is returned when compose up exits non-zero.
type ContainerStartError struct {
	Services []string
	Output   string
	Err      error
}

func (e *ContainerStartError) Error() string {
	target := "stack"
	if len(e.Services) > 0 {
		target = fmt.Sprintf("%v", e.Services)
	}
	return fmt.Sprintf("compose up %s failed: %v", target, e.Err)
}

func (e *ContainerStartError) Unwrap() error {
	return e.Err
}
