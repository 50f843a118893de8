package provision

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/blackwell-systems/devstack/internal/bootstrap"
	"github.com/blackwell-systems/devstack/internal/docker"
	"github.com/blackwell-systems/devstack/internal/manifest"
	"github.com/blackwell-systems/devstack/internal/service"
)

// State is a step of a provisioning run.
type State string

const (
	StateProbeRuntime   State = "probe-runtime"
	StateOfferContainer State = "offer-container"
	StateContainerPath  State = "container-path"
	StateLocalPath      State = "local-path"
	StateBootstrapped   State = "bootstrapped"
	StateNormalized     State = "normalized"
)

// Overrides replace generated or default values for one run.
type Overrides struct {
	Port     int    `validate:"omitempty,min=1,max=65535"`
	Host     string `validate:"omitempty,hostname_rfc1123|ip"`
	Username string `validate:"omitempty,max=32"`
	Password string
	Resource string `validate:"omitempty,max=63"`
}

// Request asks for one service to be provisioned for one application.
type Request struct {
	AppName    string             `validate:"required"`
	AppPath    string             `validate:"required"`
	Descriptor service.Descriptor `validate:"-"`
	// UseContainer is a pre-answered container offer. Nil means ask.
	UseContainer *bool
	Overrides    Overrides
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request before any side effect.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid provisioning request: %w", err)
	}
	if !filepath.IsAbs(r.AppPath) {
		return fmt.Errorf("invalid provisioning request: app path %q is not absolute", r.AppPath)
	}
	if err := r.Descriptor.Validate(); err != nil {
		return fmt.Errorf("invalid provisioning request: %w", err)
	}
	return nil
}

// Outcome is the result of one provisioning run. Config is always set when
// Provision returns without error.
type Outcome struct {
	RunID       string
	Service     string
	UsingDocker bool
	Config      NormalizedConfig
	Trace       []State

	Manifest        string
	ManifestOutcome manifest.Outcome
	Readiness       *docker.ReadinessResult
	Bootstrap       *bootstrap.Result
	// Warnings lists every soft failure and fallback, in order.
	Warnings []string
}

// Reached reports whether the run passed through s.
func (o Outcome) Reached(s State) bool {
	for _, t := range o.Trace {
		if t == s {
			return true
		}
	}
	return false
}
