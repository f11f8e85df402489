// Package cmdutils provides utility functions for running commands.
package cmdutils

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// Result is the outcome of a command that ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes cmd with args in dir, or the current directory if dir is empty.
// env is added to the current environment. A non zero exit code is reported in the result, not as an error.
func Run(ctx context.Context, dir string, env []string, cmd string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer

	c := exec.CommandContext(ctx, cmd, args...)
	c.Dir = dir
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.Env = append(c.Env, "LANG=C")
	c.Env = append(c.Env, os.Environ()...)
	c.Env = append(c.Env, env...)
	err := c.Run()

	r := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		r.ExitCode = exitErr.ExitCode()
		return r, nil
	}
	return r, err
}

// RunWithTimeout calls Run but a timeout is added to the provided context.
func RunWithTimeout(ctx context.Context, timeout time.Duration, dir string, env []string, cmd string, args ...string) (Result, error) {
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return Run(c, dir, env, cmd, args...)
}
