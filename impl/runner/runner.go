// Package runner runs an external program as a child process with an explicit
// argument vector and reports how it ended. There is no shell involved and
// nothing is retried.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Runner runs the program at 'path' with 'args' and blocks until it exits.
// A nil return means the program ran and exited zero. Otherwise the error
// is a *SpawnError or an *ExitError.
type Runner interface {
	Run(ctx context.Context, path string, args ...string) error
}

// SpawnError means the child process could not be created
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("unable to start %s: %s", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ExitError means the child ran but exited with a non-zero code, or was killed.
// Code is -1 if the process was terminated by a signal.
type ExitError struct {
	Path   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Path, e.Code, e.Stderr)
	}
	return fmt.Sprintf("%s exited with code %d", e.Path, e.Code)
}

// ExecRunner runs programs with os/exec. If Timeout is non-zero the child is
// killed once it has run that long. Nothing else stops the child: cancellation
// of the context passed to Run is ignored.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner returns an ExecRunner with the passed timeout. Zero means wait
// forever.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run implements the Runner interface
func (r *ExecRunner) Run(ctx context.Context, path string, args ...string) error {
	// a started child always runs to completion or to the timeout. Cancelling the
	// caller's context must not kill an extraction part way through.
	ctx = context.WithoutCancel(ctx)
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log.Debugf("running %s %s", path, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return &SpawnError{Path: path, Err: err}
	}
	err := cmd.Wait()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Path: path, Code: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
	}
	// I/O errors copying stderr - the process state is unknown so report it
	// as an abnormal exit
	return &ExitError{Path: path, Code: -1, Stderr: err.Error()}
}
