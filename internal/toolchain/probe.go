// Package toolchain probes the host for the tools the bootstrap needs:
// the Apple command-line developer tools and a Python 3 interpreter.
package toolchain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adammarcum/envup/internal/shell"
)

// Status is the outcome of a single probe.
type Status struct {
	Present bool
	// Detail is a human-readable note: the install path, the version
	// string, or the reason the probe failed.
	Detail string
}

// Probe checks for the presence of one external requirement.
type Probe interface {
	Name() string
	Check(ctx context.Context) (Status, error)
}

// probeTimeout bounds a single presence check. The checks are cheap;
// anything slower than this is effectively absent.
const probeTimeout = 30 * time.Second

// DeveloperToolsProbe checks for the Apple command-line developer tools
// via `xcode-select -p`, which exits non-zero until they are installed.
type DeveloperToolsProbe struct {
	Runner shell.Runner
}

// Name implements Probe.
func (p *DeveloperToolsProbe) Name() string { return "developer tools" }

// Check implements Probe.
func (p *DeveloperToolsProbe) Check(ctx context.Context) (Status, error) {
	res, err := p.Runner.Run(ctx, shell.Command{
		Binary:    "xcode-select",
		Arguments: []string{"-p"},
		Timeout:   probeTimeout,
	})
	if err != nil {
		// xcode-select itself missing means no developer tools and no
		// way to trigger the install; surface it rather than loop.
		return Status{}, fmt.Errorf("developer tools probe: %w", err)
	}
	if !res.Success() {
		return Status{Present: false, Detail: "command line tools not installed"}, nil
	}
	return Status{Present: true, Detail: strings.TrimSpace(res.Stdout)}, nil
}

// Install triggers the interactive developer tools installer. Called at
// most once per bootstrap run; completion is observed via Check, not via
// this command's exit status.
func (p *DeveloperToolsProbe) Install(ctx context.Context) error {
	res, err := p.Runner.Run(ctx, shell.Command{
		Binary:    "xcode-select",
		Arguments: []string{"--install"},
		Timeout:   probeTimeout,
	})
	if err != nil {
		return fmt.Errorf("trigger developer tools install: %w", err)
	}
	// A non-zero exit also happens when an install is already in
	// flight. Either way the wait loop decides when we are done.
	_ = res
	return nil
}

// PythonProbe checks that the configured interpreter is on PATH and is a
// Python 3.
type PythonProbe struct {
	Runner shell.Runner
	// Binary is the interpreter name, normally "python3".
	Binary string
}

// Name implements Probe.
func (p *PythonProbe) Name() string { return "python 3" }

// Check implements Probe.
func (p *PythonProbe) Check(ctx context.Context) (Status, error) {
	path, err := p.Runner.LookPath(p.Binary)
	if err != nil {
		return Status{Present: false, Detail: fmt.Sprintf("%s not found on PATH", p.Binary)}, nil
	}

	res, err := p.Runner.Run(ctx, shell.Command{
		Binary:    p.Binary,
		Arguments: []string{"--version"},
		Timeout:   probeTimeout,
	})
	if err != nil {
		return Status{}, fmt.Errorf("python probe: %w", err)
	}
	if !res.Success() {
		return Status{Present: false, Detail: fmt.Sprintf("%s --version exited %d", p.Binary, res.ExitCode)}, nil
	}

	// Older interpreters print the version to stderr.
	version := strings.TrimSpace(res.Stdout)
	if version == "" {
		version = strings.TrimSpace(res.Stderr)
	}
	if !strings.HasPrefix(version, "Python 3") {
		return Status{Present: false, Detail: fmt.Sprintf("%s at %s is not Python 3 (%s)", p.Binary, path, version)}, nil
	}
	return Status{Present: true, Detail: version + " at " + path}, nil
}

// ProbeResult pairs a probe name with its outcome for reporting.
type ProbeResult struct {
	Name   string
	Status Status
	Err    error
}

// ProbeAll runs every probe concurrently and returns results in the
// input order. Used by the doctor command, where no probe depends on
// another.
func ProbeAll(ctx context.Context, probes []Probe) []ProbeResult {
	results := make([]ProbeResult, len(probes))

	g, ctx := errgroup.WithContext(ctx)
	for i, probe := range probes {
		g.Go(func() error {
			status, err := probe.Check(ctx)
			results[i] = ProbeResult{Name: probe.Name(), Status: status, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
