// Package provision decides how each backing service of an application is
// run, provisions it, and reduces the result to a flat configuration map.
//
// A run always ends with a NormalizedConfig. Engine problems, manifest
// failures and container start failures fall back to a developer-run
// instance; readiness timeouts and bootstrap failures are warnings. The only
// error Provision returns for a valid request is a credential generation
// failure.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/devstack/internal/advisor"
	"github.com/blackwell-systems/devstack/internal/bootstrap"
	"github.com/blackwell-systems/devstack/internal/credentials"
	"github.com/blackwell-systems/devstack/internal/docker"
	"github.com/blackwell-systems/devstack/internal/logging"
	"github.com/blackwell-systems/devstack/internal/manifest"
	"github.com/blackwell-systems/devstack/internal/prompt"
	"github.com/blackwell-systems/devstack/internal/service"
	"github.com/blackwell-systems/devstack/internal/ui"
)

// Composer merges a service into the application manifest.
type Composer interface {
	UpsertService(path string, d service.Descriptor, vars map[string]string) (manifest.Outcome, error)
}

// Lifecycle starts services and runs commands inside them.
type Lifecycle interface {
	Start(ctx context.Context, manifestPath string, services ...string) error
	Exec(ctx context.Context, manifestPath, service string, cmd ...string) (docker.Result, error)
}

// Collector gathers the settings of a developer-run instance.
type Collector interface {
	Collect(d service.Descriptor, defaults service.Connection) (service.Connection, error)
}

// Inspector reads back the services defined in a manifest.
type Inspector func(ctx context.Context, path, project string) ([]manifest.ServiceInfo, error)

// DialFunc opens a TCP connection; used for optional local reachability checks.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Deps are the capabilities an Orchestrator drives. Probe, Composer and
// Lifecycle are required; the rest have working defaults.
type Deps struct {
	Probe         docker.Probe
	Composer      Composer
	Lifecycle     Lifecycle
	Bootstrappers bootstrap.Registry
	Prompter      prompt.Prompter
	Advisor       Collector
	Credentials   *credentials.Generator
	Reporter      ui.Reporter
	Logger        *slog.Logger
	ProbeFor      ProbeFactory
	Inspect       Inspector
	Dial          DialFunc
}

// Settings tune a run.
type Settings struct {
	ComposeFile string
	// ComposeCommand is the compose argv prefix shown in remediation hints.
	ComposeCommand    []string
	ReadinessAttempts int
	// ReadinessInterval defaults to docker.DefaultInterval; NoWait polls
	// back to back.
	ReadinessInterval time.Duration
	ValidateLocal     bool
	DialTimeout       time.Duration
	GOOS              string
}

// NoWait as Settings.ReadinessInterval retries readiness immediately.
const NoWait time.Duration = -1

// Orchestrator runs the provisioning state machine for one service at a
// time. It is not safe for concurrent Provision calls against the same
// Reporter; manifest writes are serialized by the Composer.
type Orchestrator struct {
	deps     Deps
	settings Settings
}

// New fills in defaults and returns an Orchestrator.
func New(deps Deps, settings Settings) *Orchestrator {
	if deps.Prompter == nil {
		deps.Prompter = prompt.Defaults{}
	}
	if deps.Advisor == nil {
		deps.Advisor = advisor.New(deps.Prompter)
	}
	if deps.Credentials == nil {
		deps.Credentials = credentials.New(nil)
	}
	if deps.Reporter == nil {
		deps.Reporter = &ui.Recorder{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Bootstrappers == nil {
		deps.Bootstrappers = bootstrap.NewRegistry(deps.Lifecycle)
	}
	if deps.ProbeFor == nil {
		deps.ProbeFor = ProbeFor
	}
	if deps.Inspect == nil {
		deps.Inspect = manifest.Inspect
	}
	if deps.Dial == nil {
		deps.Dial = (&net.Dialer{}).DialContext
	}

	if settings.ComposeFile == "" {
		settings.ComposeFile = manifest.DefaultFileName
	}
	if settings.ReadinessAttempts <= 0 {
		settings.ReadinessAttempts = docker.DefaultMaxAttempts
	}
	if settings.ReadinessInterval == 0 {
		settings.ReadinessInterval = docker.DefaultInterval
	}
	if settings.DialTimeout <= 0 {
		settings.DialTimeout = docker.DefaultHTTPTimeout
	}
	if settings.GOOS == "" {
		settings.GOOS = runtime.GOOS
	}
	return &Orchestrator{deps: deps, settings: settings}
}

// ProvisionFamily provisions the catalog member for family (or service
// name) with default options.
func (o *Orchestrator) ProvisionFamily(ctx context.Context, family, appName, appPath string) (Outcome, error) {
	d, err := service.Lookup(family)
	if err != nil {
		return Outcome{}, err
	}
	return o.Provision(ctx, Request{AppName: appName, AppPath: appPath, Descriptor: d})
}

// run carries the per-call state.
type run struct {
	req  Request
	out  *Outcome
	log  *slog.Logger
	rep  ui.Reporter
	vars map[string]string
	cred map[string]string
}

func (r *run) enter(s State) {
	r.out.Trace = append(r.out.Trace, s)
	r.log.Debug("state", "state", string(s))
}

func (r *run) warn(step string, err error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.out.Warnings = append(r.out.Warnings, msg)
	r.rep.Warn("%s", msg)
	r.log.Warn("provisioning step degraded", "step", step, "error", err)
}

// Provision runs one request to completion.
func (o *Orchestrator) Provision(ctx context.Context, req Request) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}
	d := req.Descriptor

	out := Outcome{RunID: uuid.NewString(), Service: d.Name}
	r := &run{
		req: req,
		out: &out,
		log: o.deps.Logger.With("run_id", out.RunID, "service", d.Name, "app", req.AppName),
		rep: o.deps.Reporter,
	}
	r.log.Info("provisioning started")

	r.vars = service.BaseVariables(req.AppName, d, req.Overrides.Port)
	if req.Overrides.Username != "" {
		r.vars["username"] = req.Overrides.Username
	}
	if req.Overrides.Resource != "" && d.ResourceVar != "" {
		r.vars[d.ResourceVar] = req.Overrides.Resource
	}

	creds, err := o.generate(d)
	if err != nil {
		r.log.Error("credential generation failed", "error", err)
		return Outcome{}, err
	}
	if req.Overrides.Password != "" && usesSecret(d, "password") {
		creds["password"] = req.Overrides.Password
	}
	r.cred = creds

	conn, usingDocker := o.route(ctx, r)

	r.enter(StateNormalized)
	out.UsingDocker = usingDocker
	out.Config = Normalize(d, conn, usingDocker)
	o.summarize(d, out.Config)

	r.log.Info("provisioning finished", "using_docker", usingDocker, "warnings", len(out.Warnings))
	return out, nil
}

func (o *Orchestrator) route(ctx context.Context, r *run) (service.Connection, bool) {
	d := r.req.Descriptor
	if d.External {
		r.rep.Info("%s is a managed service; no container is needed", d.DisplayName)
		return o.localPath(ctx, r), false
	}

	r.enter(StateProbeRuntime)
	if !o.runtimeReady(ctx, r) {
		return o.localPath(ctx, r), false
	}

	r.enter(StateOfferContainer)
	if !o.offer(r) {
		return o.localPath(ctx, r), false
	}

	r.enter(StateContainerPath)
	conn, ok := o.containerPath(ctx, r)
	if !ok {
		return o.localPath(ctx, r), false
	}
	return conn, true
}

func (o *Orchestrator) runtimeReady(ctx context.Context, r *run) bool {
	d := r.req.Descriptor
	p := o.deps.Probe

	switch {
	case !p.IsEngineInstalled(ctx):
		r.warn("probe", fmt.Errorf("%w: not installed", docker.ErrEngineUnavailable),
			"Docker is not installed; %s will use a local instance", d.DisplayName)
		if o.deps.Prompter.Interactive() {
			r.rep.Panel("Install "+d.DisplayName, advisor.Guidance(o.settings.GOOS, d))
		}
		return false
	case !p.IsEngineRunning(ctx):
		r.warn("probe", fmt.Errorf("%w: not running", docker.ErrEngineUnavailable),
			"Docker is installed but not running; start it to use containers. %s will use a local instance", d.DisplayName)
		return false
	case !p.IsComposeAvailable(ctx):
		r.warn("probe", fmt.Errorf("%w: compose missing", docker.ErrEngineUnavailable),
			"Docker Compose is not available; %s will use a local instance", d.DisplayName)
		return false
	}
	return true
}

func (o *Orchestrator) offer(r *run) bool {
	d := r.req.Descriptor
	if r.req.UseContainer != nil {
		return *r.req.UseContainer
	}
	yes, err := o.deps.Prompter.Confirm(fmt.Sprintf("Run %s in a Docker container?", d.DisplayName), true)
	if err != nil {
		r.warn("offer", err, "Could not read an answer (%v); %s will use a local instance", err, d.DisplayName)
		return false
	}
	return yes
}

func (o *Orchestrator) containerPath(ctx context.Context, r *run) (service.Connection, bool) {
	d := r.req.Descriptor
	path := filepath.Join(r.req.AppPath, o.settings.ComposeFile)
	r.out.Manifest = path

	r.rep.Step("Adding %s to %s", d.Name, path)
	outcome, err := o.deps.Composer.UpsertService(path, d, merge(r.vars, r.cred))
	if err != nil {
		r.warn("manifest", err, "Could not update %s (%v); %s will use a local instance", path, err, d.DisplayName)
		return service.Connection{}, false
	}
	r.out.ManifestOutcome = outcome
	switch outcome {
	case manifest.AlreadyExists:
		r.rep.Info("%s is already defined in %s; keeping the existing definition", d.Name, filepath.Base(path))
		o.adoptExisting(ctx, r, path)
	case manifest.Created:
		r.rep.Success("Created %s", path)
	default:
		r.rep.Success("Added %s to %s", d.Name, filepath.Base(path))
	}

	vars := merge(r.vars, r.cred)
	conn := service.DefaultConnection(d, d.LocalHost, r.vars, r.cred)

	r.rep.Step("Starting %s", d.DisplayName)
	if err := o.deps.Lifecycle.Start(ctx, path, d.Name); err != nil {
		var serr *docker.ContainerStartError
		if errors.As(err, &serr) {
			r.log.Debug("compose output", "output", serr.Output)
		}
		r.warn("start", err, "Could not start %s (%v); falling back to a local instance", d.DisplayName, err)
		return service.Connection{}, false
	}
	r.rep.Success("%s container started", d.DisplayName)

	if probe := o.deps.ProbeFor(d, path, conn, vars, o.deps.Lifecycle); probe != nil {
		r.rep.Step("Waiting for %s to become ready", d.DisplayName)
		res := docker.WaitUntilReady(ctx, probe, o.settings.ReadinessAttempts, o.settings.ReadinessInterval)
		r.out.Readiness = &res
		if res.Ready {
			r.rep.Success("%s is ready", d.DisplayName)
			r.log.Info("service ready", "attempts", res.Attempts, "elapsed", res.Elapsed)
		} else {
			r.warn("readiness", res.LastErr, "%s did not report ready after %d attempts; continuing, it may need more time",
				d.DisplayName, res.Attempts)
		}
	}

	o.bootstrap(ctx, r, path)
	r.enter(StateBootstrapped)
	return conn, true
}

// adoptExisting replaces generated values with the ones an existing service
// definition was created with, so the configuration matches the container.
func (o *Orchestrator) adoptExisting(ctx context.Context, r *run, path string) {
	d := r.req.Descriptor
	services, err := o.deps.Inspect(ctx, path, r.req.AppName)
	if err != nil {
		r.warn("inspect", err, "Could not read the existing %s definition (%v); generated credentials may not match it", d.Name, err)
		return
	}
	info, ok := manifest.Lookup(services, d.Name)
	if !ok {
		return
	}

	for _, e := range d.Environment {
		name, ok := templateVar(e.Template)
		if !ok {
			continue
		}
		v := info.Environment[e.Key]
		if v == "" || strings.Contains(v, "${") {
			continue
		}
		if _, isCred := r.cred[name]; isCred {
			r.cred[name] = v
		} else {
			r.vars[name] = v
		}
	}
	for _, p := range d.Ports {
		for _, published := range info.Ports {
			if published.Container == p.Container && published.Host > 0 {
				r.vars[service.PortVar(p.Name)] = strconv.Itoa(published.Host)
			}
		}
	}
	r.log.Debug("adopted existing service definition")
}

func (o *Orchestrator) bootstrap(ctx context.Context, r *run, path string) {
	d := r.req.Descriptor
	if d.Bootstrap == "" || d.Bootstrap == service.BootstrapNone {
		return
	}

	spec := bootstrap.ResourceSpec{
		Name:     r.vars[d.ResourceVar],
		Username: r.vars["username"],
		Password: r.cred["password"],
	}
	target := bootstrap.Target{Manifest: path, Service: d.Name, Compose: o.settings.ComposeCommand}

	r.rep.Step("Ensuring %s %q", d.ResourceVar, spec.Name)
	res, err := o.deps.Bootstrappers.For(d.Bootstrap).Ensure(ctx, target, spec, r.cred)
	if err != nil {
		r.warn("bootstrap", err, "Could not create %s %q: %v", d.ResourceVar, spec.Name, err)
		var berr *bootstrap.BootstrapError
		if errors.As(err, &berr) && berr.Remediation != "" {
			r.rep.Info("Create it manually with: %s", berr.Remediation)
		}
		return
	}
	r.out.Bootstrap = &res
	if res.AlreadyExisted {
		r.rep.Info("%s %q already exists", d.ResourceVar, res.Resource)
		return
	}
	r.rep.Success("Created %s %q", d.ResourceVar, res.Resource)
}

func (o *Orchestrator) localPath(ctx context.Context, r *run) service.Connection {
	d := r.req.Descriptor
	r.enter(StateLocalPath)

	host := d.LocalHost
	if r.req.Overrides.Host != "" {
		host = r.req.Overrides.Host
	}
	defaults := service.DefaultConnection(d, host, r.vars, localSecrets(d, r.cred))

	conn, err := o.deps.Advisor.Collect(d, defaults)
	if err != nil {
		r.warn("collect", err, "Could not read %s settings (%v); using defaults", d.DisplayName, err)
		conn = defaults
	}
	if !d.External && !o.deps.Prompter.Interactive() {
		r.rep.Info("Using a local %s at %s:%d; edit the generated configuration if it runs elsewhere",
			d.DisplayName, conn.Host, conn.Port(d.PrimaryPort().Name))
	}
	if o.settings.ValidateLocal && !d.External {
		o.checkReachable(ctx, r, conn)
	}
	return conn
}

// checkReachable only warns: the developer may start the service later.
func (o *Orchestrator) checkReachable(ctx context.Context, r *run, conn service.Connection) {
	d := r.req.Descriptor
	addr := net.JoinHostPort(conn.Host, strconv.Itoa(conn.Port(d.PrimaryPort().Name)))

	ctx, cancel := context.WithTimeout(ctx, o.settings.DialTimeout)
	defer cancel()
	c, err := o.deps.Dial(ctx, "tcp", addr)
	if err != nil {
		r.warn("validate-local", err, "Could not reach %s at %s (%v); make sure it is running", d.DisplayName, addr, err)
		return
	}
	c.Close()
	r.rep.Success("%s is reachable at %s", d.DisplayName, addr)
}

func (o *Orchestrator) generate(d service.Descriptor) (map[string]string, error) {
	creds := make(map[string]string, len(d.Credentials))
	for _, c := range d.Credentials {
		v, err := o.deps.Credentials.Generate(c.Kind, c.Length)
		if err != nil {
			return nil, err
		}
		creds[c.Var] = v
	}
	return creds, nil
}

func (o *Orchestrator) summarize(d service.Descriptor, cfg NormalizedConfig) {
	masked := make(map[string]any, len(cfg))
	for k, v := range cfg {
		if s, ok := v.(string); ok && s != "" && logging.IsSensitive(k) {
			v = "********"
		}
		masked[k] = v
	}
	o.deps.Reporter.Panel(d.DisplayName+" setup complete", ui.Summary(masked))
}

// localSecrets drops secrets that only make sense for a container and adds
// the local-only ones with empty defaults.
func localSecrets(d service.Descriptor, creds map[string]string) map[string]string {
	out := make(map[string]string, len(creds))
	for k, v := range creds {
		out[k] = v
	}
	for _, c := range d.Credentials {
		if c.ContainerOnly {
			delete(out, c.Var)
		}
	}
	for _, v := range d.LocalSecrets {
		if _, ok := out[v]; !ok {
			out[v] = ""
		}
	}
	return out
}

func usesSecret(d service.Descriptor, name string) bool {
	for _, c := range d.Credentials {
		if c.Var == name {
			return true
		}
	}
	for _, v := range d.LocalSecrets {
		if v == name {
			return true
		}
	}
	return false
}

// templateVar returns x for a template that is exactly "${x}".
func templateVar(tmpl string) (string, bool) {
	if !strings.HasPrefix(tmpl, "${") || !strings.HasSuffix(tmpl, "}") {
		return "", false
	}
	name := tmpl[2 : len(tmpl)-1]
	if name == "" || strings.ContainsAny(name, "${}") {
		return "", false
	}
	return name, true
}

func merge(maps ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
