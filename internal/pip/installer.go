// Package pip installs Python libraries through the interpreter's own
// pip module. The original bootstrap ignored pip's exit status and
// always reported success; here the status is checked and surfaced.
package pip

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/adammarcum/envup/internal/shell"
)

// Installer runs a single `python -m pip install` for a package set.
type Installer struct {
	Runner shell.Runner
	// Python is the interpreter binary, normally "python3".
	Python string
	// ExtraArgs are inserted between "install" and the package names.
	ExtraArgs []string
	Logger    *zap.Logger
}

// InstallResult reports the outcome of one pip invocation.
type InstallResult struct {
	Packages []string
	ExitCode int
	// Output is pip's combined tail, kept for the failure report.
	Output string
}

// Failed reports whether pip exited non-zero.
func (r *InstallResult) Failed() bool { return r.ExitCode != 0 }

// Install invokes pip exactly once with every package name. A non-zero
// pip exit is returned as a failed InstallResult, not an error; err is
// reserved for not being able to run pip at all.
func (i *Installer) Install(ctx context.Context, packages []string) (*InstallResult, error) {
	if len(packages) == 0 {
		return nil, fmt.Errorf("no packages to install")
	}

	logger := i.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	args := append([]string{"-m", "pip", "install"}, i.ExtraArgs...)
	args = append(args, packages...)

	logger.Info("installing libraries",
		zap.String("python", i.Python),
		zap.Strings("packages", packages))

	res, err := i.Runner.Run(ctx, shell.Command{
		Binary:    i.Python,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("run pip: %w", err)
	}

	result := &InstallResult{
		Packages: packages,
		ExitCode: res.ExitCode,
		Output:   tail(res.Stderr, 20),
	}
	if result.Failed() {
		logger.Error("pip install failed",
			zap.Int("exit_code", res.ExitCode),
			zap.String("stderr", result.Output))
	} else {
		logger.Info("libraries installed", zap.Duration("took", res.Duration))
	}
	return result, nil
}

// tail returns the last n lines of s, for compact failure reports.
func tail(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
