package docker

import (
	"context"
	"sync"
)

// Probe answers whether a container runtime can be used. Probes never fail;
// a false answer sends the caller down the local-install path.
type Probe interface {
	IsEngineInstalled(ctx context.Context) bool
	IsEngineRunning(ctx context.Context) bool
	IsComposeAvailable(ctx context.Context) bool
}

// CLIProbe checks the engine through its command line.
type CLIProbe struct {
	runner Runner
	engine string

	mu      sync.Mutex
	compose []string
}

// NewCLIProbe returns a probe for engine ("docker" or "podman").
func NewCLIProbe(r Runner, engine string) *CLIProbe {
	if engine == "" {
		engine = "docker"
	}
	return &CLIProbe{runner: r, engine: engine}
}

// Engine returns the engine binary name.
func (p *CLIProbe) Engine() string {
	return p.engine
}

func (p *CLIProbe) IsEngineInstalled(ctx context.Context) bool {
	if _, err := p.runner.LookPath(p.engine); err != nil {
		return false
	}
	_, err := p.runner.Run(ctx, "", p.engine, "--version")
	return err == nil
}

func (p *CLIProbe) IsEngineRunning(ctx context.Context) bool {
	_, err := p.runner.Run(ctx, "", p.engine, "info")
	return err == nil
}

// IsComposeAvailable tries the compose plugin first, then the legacy
// standalone binary. The working variant is remembered for ComposeCommand.
func (p *CLIProbe) IsComposeAvailable(ctx context.Context) bool {
	if _, err := p.runner.Run(ctx, "", p.engine, "compose", "version"); err == nil {
		p.setCompose([]string{p.engine, "compose"})
		return true
	}

	legacy := p.engine + "-compose"
	if _, err := p.runner.LookPath(legacy); err != nil {
		return false
	}
	if _, err := p.runner.Run(ctx, "", legacy, "version"); err != nil {
		return false
	}
	p.setCompose([]string{legacy})
	return true
}

// ComposeCommand returns the argv prefix for compose operations. Before a
// successful IsComposeAvailable it assumes the plugin form.
func (p *CLIProbe) ComposeCommand() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.compose) == 0 {
		return []string{p.engine, "compose"}
	}
	out := make([]string, len(p.compose))
	copy(out, p.compose)
	return out
}

func (p *CLIProbe) setCompose(cmd []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.compose = cmd
}
