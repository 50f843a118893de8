package docker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/blackwell-systems/devstack/internal/logging"
)

// Lifecycle drives compose operations against one manifest file.
type Lifecycle struct {
	runner  Runner
	compose []string
	logger  *slog.Logger
}

// NewLifecycle returns a Lifecycle that invokes compose as the argv prefix
// compose (e.g. ["docker", "compose"] or ["docker-compose"]).
func NewLifecycle(r Runner, compose []string, logger *slog.Logger) *Lifecycle {
	if len(compose) == 0 {
		compose = []string{"docker", "compose"}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Lifecycle{runner: r, compose: compose, logger: logger}
}

// Start brings services up detached. No timeout is applied beyond ctx:
// first runs pull images and may take minutes.
func (l *Lifecycle) Start(ctx context.Context, manifestPath string, services ...string) error {
	args := append([]string{"up", "-d"}, services...)
	res, err := l.run(ctx, manifestPath, args...)
	if err != nil {
		return &ContainerStartError{Services: services, Output: res.Output(), Err: err}
	}
	return nil
}

// Stop tears the stack down, keeping named volumes.
func (l *Lifecycle) Stop(ctx context.Context, manifestPath string) error {
	res, err := l.run(ctx, manifestPath, "down")
	if err != nil {
		return fmt.Errorf("compose down failed: %w\n%s", err, res.Output())
	}
	return nil
}

// Pull pulls the images of the given services (all when empty).
func (l *Lifecycle) Pull(ctx context.Context, manifestPath string, services ...string) error {
	args := append([]string{"pull"}, services...)
	res, err := l.run(ctx, manifestPath, args...)
	if err != nil {
		return fmt.Errorf("compose pull failed: %w\n%s", err, res.Output())
	}
	return nil
}

// Exec runs cmd inside a running service container without a TTY.
func (l *Lifecycle) Exec(ctx context.Context, manifestPath, service string, cmd ...string) (Result, error) {
	args := append([]string{"exec", "-T", service}, cmd...)
	return l.run(ctx, manifestPath, args...)
}

func (l *Lifecycle) run(ctx context.Context, manifestPath string, args ...string) (Result, error) {
	argv := append([]string{}, l.compose[1:]...)
	argv = append(argv, "-f", manifestPath)
	argv = append(argv, args...)

	// Only the compose verb is logged; exec arguments can contain passwords.
	l.logger.Debug("compose", "verb", args[0], "manifest", manifestPath)

	res, err := l.runner.Run(ctx, filepath.Dir(manifestPath), l.compose[0], argv...)
	if err != nil {
		l.logger.Debug("compose failed", "verb", args[0], "exit_code", res.ExitCode, "duration", res.Duration)
	}
	return res, err
}
