package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/devstack/internal/bootstrap"
	"github.com/blackwell-systems/devstack/internal/config"
	"github.com/blackwell-systems/devstack/internal/docker"
	"github.com/blackwell-systems/devstack/internal/logging"
	"github.com/blackwell-systems/devstack/internal/manifest"
	"github.com/blackwell-systems/devstack/internal/prompt"
	"github.com/blackwell-systems/devstack/internal/provision"
	"github.com/blackwell-systems/devstack/internal/ui"
)

// app is the wiring shared by commands that touch the engine.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	reporter  ui.Reporter
	prompter  prompt.Prompter
	probe     *docker.CLIProbe
	lifecycle *docker.Lifecycle
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	var p prompt.Prompter = prompt.Huh{}
	if cfg.NonInteractive {
		p = prompt.Defaults{}
	}

	runner := docker.ExecRunner{}
	probe := docker.NewCLIProbe(runner, cfg.Engine)
	// Resolves plugin vs standalone compose before the lifecycle is built.
	probe.IsComposeAvailable(ctx)

	return &app{
		cfg:       cfg,
		logger:    logger,
		reporter:  ui.NewConsole(cmd.OutOrStdout()),
		prompter:  p,
		probe:     probe,
		lifecycle: docker.NewLifecycle(runner, probe.ComposeCommand(), logger),
	}, nil
}

func (a *app) orchestrator() *provision.Orchestrator {
	interval := a.cfg.Readiness.Interval
	if interval == 0 {
		interval = provision.NoWait
	}
	return provision.New(provision.Deps{
		Probe:         a.probe,
		Composer:      manifest.NewComposer(manifest.NewLocker()),
		Lifecycle:     a.lifecycle,
		Bootstrappers: bootstrap.NewRegistry(a.lifecycle),
		Prompter:      a.prompter,
		Reporter:      a.reporter,
		Logger:        a.logger,
	}, provision.Settings{
		ComposeFile:       a.cfg.ComposeFile,
		ComposeCommand:    a.probe.ComposeCommand(),
		ReadinessAttempts: a.cfg.Readiness.Attempts,
		ReadinessInterval: interval,
		ValidateLocal:     a.cfg.ValidateLocal,
		DialTimeout:       a.cfg.Readiness.ProbeTimeout,
	})
}

// manifestPath is the compose file inside the app directory.
func (a *app) manifestPath(appPath string) string {
	return filepath.Join(appPath, a.cfg.ComposeFile)
}

// resolvePath expands ~ and makes path absolute.
func resolvePath(path string) (string, error) {
	if path == "" {
		path = "."
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand path %q: %w", path, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}

// appName defaults to the directory name of the app.
func appName(name, appPath string) string {
	if name != "" {
		return name
	}
	return filepath.Base(appPath)
}
