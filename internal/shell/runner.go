// Package shell executes external commands on the host.
// It is the single path through which envup touches the OS installer,
// the interpreter, and the package manager, so every invocation is
// captured, bounded, and auditable.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds a single command when the caller does not set one.
// Package installation can legitimately run for minutes.
const DefaultTimeout = 15 * time.Minute

// MaxOutputBytes caps captured stdout/stderr per stream.
const MaxOutputBytes = 1 << 20

// Command describes a single external invocation.
type Command struct {
	Binary    string
	Arguments []string
	Dir       string
	Env       []string // nil means inherit the process environment
	Timeout   time.Duration
}

// String renders the command the way a user would type it.
func (c Command) String() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// Result holds the outcome of one invocation.
type Result struct {
	ExitCode   int
	Stdout     string
	Stderr     string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	TimedOut   bool
}

// Success reports whether the command exited zero.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0 && !r.TimedOut
}

// AuditEvent records one invocation for logging callbacks.
type AuditEvent struct {
	Command  string
	ExitCode int
	Duration time.Duration
	Err      string
}

// Runner executes commands. The interface exists so the bootstrap
// sequence can be driven by a scripted fake in tests.
type Runner interface {
	// Run executes cmd and returns its result. A non-zero exit code is
	// reported in the Result, not as an error; err is reserved for
	// failures to start or a context/timeout abort.
	Run(ctx context.Context, cmd Command) (*Result, error)

	// LookPath reports the absolute path of a binary, or an error if it
	// is not on PATH.
	LookPath(binary string) (string, error)
}

// DirectRunner runs commands directly on the host via os/exec.
type DirectRunner struct {
	mu    sync.RWMutex
	audit func(AuditEvent)
}

// NewDirectRunner creates a host runner.
func NewDirectRunner() *DirectRunner {
	return &DirectRunner{}
}

// SetAuditCallback registers a callback invoked after every Run.
func (r *DirectRunner) SetAuditCallback(fn func(AuditEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = fn
}

func (r *DirectRunner) emit(ev AuditEvent) {
	r.mu.RLock()
	fn := r.audit
	r.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// LookPath resolves a binary on PATH.
func (r *DirectRunner) LookPath(binary string) (string, error) {
	return exec.LookPath(binary)
}

// Run executes the command, capturing bounded stdout and stderr.
func (r *DirectRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("binary is required")
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Arguments...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env

	var stdout, stderr bytes.Buffer
	c.Stdout = &cappedWriter{w: &stdout, remaining: MaxOutputBytes}
	c.Stderr = &cappedWriter{w: &stderr, remaining: MaxOutputBytes}

	res := &Result{StartedAt: time.Now()}
	err := c.Run()
	res.FinishedAt = time.Now()
	res.Duration = res.FinishedAt.Sub(res.StartedAt)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	switch {
	case err == nil:
		res.ExitCode = 0
	case ctx.Err() != nil:
		res.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		res.ExitCode = -1
		r.emit(AuditEvent{Command: cmd.String(), ExitCode: -1, Duration: res.Duration, Err: ctx.Err().Error()})
		return res, fmt.Errorf("command %q aborted: %w", cmd.String(), ctx.Err())
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Binary missing, permission denied, etc.
			r.emit(AuditEvent{Command: cmd.String(), ExitCode: -1, Duration: res.Duration, Err: err.Error()})
			return nil, fmt.Errorf("command %q failed to start: %w", cmd.String(), err)
		}
	}

	r.emit(AuditEvent{Command: cmd.String(), ExitCode: res.ExitCode, Duration: res.Duration})
	return res, nil
}

// cappedWriter discards bytes past the cap instead of failing the command.
type cappedWriter struct {
	w         io.Writer
	remaining int
}

func (cw *cappedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if cw.remaining <= 0 {
		return n, nil
	}
	if n > cw.remaining {
		p = p[:cw.remaining]
	}
	if _, err := cw.w.Write(p); err != nil {
		return 0, err
	}
	cw.remaining -= len(p)
	return n, nil
}
