package docker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner answers commands from a table keyed by "name arg1 arg2 ...".
type fakeRunner struct {
	paths   map[string]bool
	fail    map[string]bool
	results map[string]Result
	calls   []string
	dirs    []string
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.paths[name] {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("not found")
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) (Result, error) {
	key := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.calls = append(f.calls, key)
	f.dirs = append(f.dirs, dir)
	res := f.results[key]
	res.Command = key
	if f.fail[key] {
		res.ExitCode = 1
		return res, fmt.Errorf("%s exited with code 1", key)
	}
	return res, nil
}

func TestCLIProbe(t *testing.T) {
	tests := []struct {
		name            string
		runner          *fakeRunner
		wantInstalled   bool
		wantRunning     bool
		wantCompose     bool
		wantComposeArgv []string
	}{
		{
			name:            "docker with compose plugin",
			runner:          &fakeRunner{paths: map[string]bool{"docker": true}},
			wantInstalled:   true,
			wantRunning:     true,
			wantCompose:     true,
			wantComposeArgv: []string{"docker", "compose"},
		},
		{
			name:          "not installed",
			runner:        &fakeRunner{fail: map[string]bool{"docker info": true, "docker compose version": true}},
			wantInstalled: false,
			wantRunning:   false,
			wantCompose:   false,
		},
		{
			name: "installed but daemon stopped",
			runner: &fakeRunner{
				paths: map[string]bool{"docker": true},
				fail:  map[string]bool{"docker info": true},
			},
			wantInstalled:   true,
			wantRunning:     false,
			wantCompose:     true,
			wantComposeArgv: []string{"docker", "compose"},
		},
		{
			name: "legacy compose binary",
			runner: &fakeRunner{
				paths: map[string]bool{"docker": true, "docker-compose": true},
				fail:  map[string]bool{"docker compose version": true},
			},
			wantInstalled:   true,
			wantRunning:     true,
			wantCompose:     true,
			wantComposeArgv: []string{"docker-compose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p := NewCLIProbe(tt.runner, "")

			assert.Equal(t, tt.wantInstalled, p.IsEngineInstalled(ctx))
			assert.Equal(t, tt.wantRunning, p.IsEngineRunning(ctx))
			assert.Equal(t, tt.wantCompose, p.IsComposeAvailable(ctx))
			if tt.wantCompose {
				assert.Equal(t, tt.wantComposeArgv, p.ComposeCommand())
			}
		})
	}
}

func TestLifecycleStart(t *testing.T) {
	r := &fakeRunner{}
	l := NewLifecycle(r, []string{"docker", "compose"}, nil)

	err := l.Start(context.Background(), "/apps/shop/docker-compose.yml", "minio")
	require.NoError(t, err)
	assert.Equal(t, []string{"docker compose -f /apps/shop/docker-compose.yml up -d minio"}, r.calls)
	assert.Equal(t, []string{"/apps/shop"}, r.dirs)
}

func TestLifecycleStartFailure(t *testing.T) {
	key := "docker-compose -f /apps/shop/docker-compose.yml up -d minio"
	r := &fakeRunner{
		fail:    map[string]bool{key: true},
		results: map[string]Result{key: {Stderr: "port is already allocated"}},
	}
	l := NewLifecycle(r, []string{"docker-compose"}, nil)

	err := l.Start(context.Background(), "/apps/shop/docker-compose.yml", "minio")
	require.Error(t, err)

	var startErr *ContainerStartError
	require.True(t, errors.As(err, &startErr))
	assert.Equal(t, []string{"minio"}, startErr.Services)
	assert.Contains(t, startErr.Output, "port is already allocated")
}

func TestLifecycleExecAndStop(t *testing.T) {
	r := &fakeRunner{}
	l := NewLifecycle(r, nil, nil)
	ctx := context.Background()

	_, err := l.Exec(ctx, "/a/docker-compose.yml", "redis", "redis-cli", "ping")
	require.NoError(t, err)
	require.NoError(t, l.Stop(ctx, "/a/docker-compose.yml"))
	require.NoError(t, l.Pull(ctx, "/a/docker-compose.yml"))

	assert.Equal(t, []string{
		"docker compose -f /a/docker-compose.yml exec -T redis redis-cli ping",
		"docker compose -f /a/docker-compose.yml down",
		"docker compose -f /a/docker-compose.yml pull",
	}, r.calls)
}

func TestWaitUntilReadyExhaustsExactly(t *testing.T) {
	calls := 0
	probe := ProbeFunc(func(context.Context) error {
		calls++
		return errors.New("connection refused")
	})

	res := WaitUntilReady(context.Background(), probe, 3, 0)

	assert.False(t, res.Ready)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, res.Attempts)
	assert.EqualError(t, res.LastErr, "connection refused")
}

func TestWaitUntilReadyReturnsOnFirstSuccess(t *testing.T) {
	calls := 0
	probe := ProbeFunc(func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("starting")
		}
		return nil
	})

	res := WaitUntilReady(context.Background(), probe, 10, time.Millisecond)

	assert.True(t, res.Ready)
	assert.Equal(t, 2, calls)
	assert.NoError(t, res.LastErr)
}

func TestWaitUntilReadyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	probe := ProbeFunc(func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})

	res := WaitUntilReady(ctx, probe, 30, time.Hour)

	assert.False(t, res.Ready)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, res.LastErr, context.Canceled)
}

func TestHTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			fmt.Fprint(w, `{"status":"available"}`)
		case "/starting":
			fmt.Fprint(w, `{"status":"starting"}`)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	assert.NoError(t, HTTPProbe{URL: srv.URL + "/health", Expect: "available"}.Check(ctx))
	assert.Error(t, HTTPProbe{URL: srv.URL + "/starting", Expect: "available"}.Check(ctx))
	assert.Error(t, HTTPProbe{URL: srv.URL + "/down"}.Check(ctx))
	assert.NoError(t, HTTPProbe{URL: srv.URL + "/starting"}.Check(ctx))
}

func TestCommandProbeAndStatus(t *testing.T) {
	r := &fakeRunner{fail: map[string]bool{
		"docker compose -f /a/docker-compose.yml exec -T mysql mysqladmin ping": true,
	}}
	l := NewLifecycle(r, nil, nil)

	probes := map[string]ReadinessProbe{
		"redis": CommandProbe{Exec: l, Manifest: "/a/docker-compose.yml", Service: "redis", Command: []string{"redis-cli", "ping"}},
		"mysql": CommandProbe{Exec: l, Manifest: "/a/docker-compose.yml", Service: "mysql", Command: []string{"mysqladmin", "ping"}},
		"other": nil,
	}

	got := Status(context.Background(), probes)
	assert.Equal(t, ServiceUp, got["redis"])
	assert.Equal(t, ServiceDown, got["mysql"])
	assert.Equal(t, ServiceUnknown, got["other"])
	assert.Equal(t, "down", got["mysql"].String())
}

func TestStateStatus(t *testing.T) {
	tests := []struct {
		running bool
		health  string
		want    ServiceStatus
	}{
		{running: false, health: "", want: ServiceDown},
		{running: false, health: "healthy", want: ServiceDown},
		{running: true, health: "", want: ServiceUp},
		{running: true, health: "healthy", want: ServiceUp},
		{running: true, health: "starting", want: ServiceStarting},
		{running: true, health: "unhealthy", want: ServiceDown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stateStatus(tt.running, tt.health), "running=%v health=%q", tt.running, tt.health)
	}
}
