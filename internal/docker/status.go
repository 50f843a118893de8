package docker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Readiness defaults: 30 attempts two seconds apart, about a minute.
const (
	DefaultMaxAttempts = 30
	DefaultInterval    = 2 * time.Second
	DefaultHTTPTimeout = 2 * time.Second
)

// ServiceStatus represents the status of a service
type ServiceStatus int

const (
	ServiceUnknown ServiceStatus = iota
	ServiceUp
	ServiceDown
	ServiceStarting
)

func (s ServiceStatus) String() string {
	switch s {
	case ServiceUp:
		return "up"
	case ServiceDown:
		return "down"
	case ServiceStarting:
		return "starting"
	default:
		return "unknown"
	}
}

// ReadinessProbe performs one readiness check. A nil error means ready.
type ReadinessProbe interface {
	Check(ctx context.Context) error
}

// ProbeFunc adapts a function to ReadinessProbe.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// HTTPProbe expects a 2xx response whose body contains Expect.
type HTTPProbe struct {
	URL    string
	Expect string
	Client *http.Client
}

func (p HTTPProbe) Check(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: status %d", p.URL, resp.StatusCode)
	}
	if p.Expect == "" {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("GET %s: read body: %w", p.URL, err)
	}
	if !strings.Contains(string(body), p.Expect) {
		return fmt.Errorf("GET %s: body does not contain %q", p.URL, p.Expect)
	}
	return nil
}

// Executor runs a command inside a compose service.
type Executor interface {
	Exec(ctx context.Context, manifestPath, service string, cmd ...string) (Result, error)
}

// CommandProbe is ready when Command exits zero inside Service.
type CommandProbe struct {
	Exec     Executor
	Manifest string
	Service  string
	Command  []string
}

func (p CommandProbe) Check(ctx context.Context) error {
	_, err := p.Exec.Exec(ctx, p.Manifest, p.Service, p.Command...)
	return err
}

// ReadinessResult is the outcome of one WaitUntilReady call.
type ReadinessResult struct {
	Ready    bool
	Attempts int
	Elapsed  time.Duration
	LastErr  error
}

// WaitUntilReady polls probe up to maxAttempts times, interval apart, and
// returns on the first success. There is no sleep after the final attempt.
// Cancelling ctx stops polling at the next interval boundary. A false Ready
// is a soft failure: some services work before their probe passes.
func WaitUntilReady(ctx context.Context, probe ReadinessProbe, maxAttempts int, interval time.Duration) ReadinessResult {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	start := time.Now()
	res := ReadinessResult{}

	for res.Attempts < maxAttempts {
		if ctx.Err() != nil {
			res.LastErr = ctx.Err()
			break
		}

		res.Attempts++
		err := probe.Check(ctx)
		if err == nil {
			res.Ready = true
			res.LastErr = nil
			break
		}
		res.LastErr = err

		if res.Attempts == maxAttempts || interval <= 0 {
			continue
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	res.Elapsed = time.Since(start)
	return res
}

// Status runs every probe once and maps the result to a ServiceStatus.
func Status(ctx context.Context, probes map[string]ReadinessProbe) map[string]ServiceStatus {
	out := make(map[string]ServiceStatus, len(probes))
	for name, p := range probes {
		if p == nil {
			out[name] = ServiceUnknown
			continue
		}
		if err := p.Check(ctx); err != nil {
			out[name] = ServiceDown
			continue
		}
		out[name] = ServiceUp
	}
	return out
}
