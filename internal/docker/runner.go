package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result captures one finished subprocess. Output is kept for diagnostics only.
type Result struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// OK reports a zero exit code.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Output returns stdout and stderr joined, trimmed.
func (r Result) Output() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// Runner executes engine CLI commands.
type Runner interface {
	LookPath(name string) (string, error)
	// Run executes name with args in dir. A non-zero exit is reported both in
	// Result.ExitCode and as an error.
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// ExecRunner runs real processes via os/exec.
type ExecRunner struct{}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Command:  name + " " + firstArg(args),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("%s exited with code %d: %s", res.Command, res.ExitCode, strings.TrimSpace(res.Stderr))
		}
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", res.Command, err)
	}
	return res, nil
}

// firstArg keeps logged command names free of arguments, which may carry secrets.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
