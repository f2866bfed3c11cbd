// Package bootstrap runs the provisioning sequence: developer tools,
// interpreter, libraries, report. Steps run strictly in order; the only
// loop is the wait for the interactive developer-tools install.
package bootstrap

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adammarcum/envup/internal/config"
	"github.com/adammarcum/envup/internal/ledger"
	"github.com/adammarcum/envup/internal/pip"
	"github.com/adammarcum/envup/internal/shell"
	"github.com/adammarcum/envup/internal/toolchain"
	"github.com/adammarcum/envup/internal/ui"
)

// Exit codes. The interpreter being absent is the historical exit 1;
// a failed library install is exit 2 (the original reported success
// unconditionally, which hid real failures).
const (
	ExitOK            = 0
	ExitNoInterpreter = 1
	ExitInstallFailed = 2
	ExitInterrupted   = 130

	// ExitFatal covers unexpected probe or runner failures.
	ExitFatal = 1
)

// StepStatus classifies how a step ended.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepWaited  StepStatus = "waited" // satisfied after the install wait
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped" // dry-run or unreachable
)

// StepResult is the recorded outcome of one step.
type StepResult struct {
	Seq    int
	Name   string
	Status StepStatus
	Detail string
	Took   time.Duration
}

// Report is the outcome of a whole bootstrap run.
type Report struct {
	RunID    string
	Steps    []StepResult
	Outcome  ledger.Outcome
	ExitCode int
}

// Options wires the bootstrap's collaborators.
type Options struct {
	Config  *config.Config
	Runner  shell.Runner
	Ledger  *ledger.Store // nil disables history recording
	Logger  *zap.Logger
	Printer *ui.Printer
	Stdin   io.Reader

	// AssumeYes skips the final keypress.
	AssumeYes bool
	// DryRun probes but never installs anything.
	DryRun bool
	// WaitTimeout bounds the developer-tools wait; zero means wait
	// forever, matching the original behavior.
	WaitTimeout time.Duration
	// WatchDir overrides the fsnotify fast-path directory for the
	// developer-tools wait. Empty means toolchain.DeveloperToolsDir.
	WatchDir string
	// WaitUI, if set, is shown while the developer-tools wait runs.
	// It must return when done is closed.
	WaitUI func(ctx context.Context, done <-chan struct{})
}

// Bootstrap executes the provisioning sequence.
type Bootstrap struct {
	cfg     *config.Config
	runner  shell.Runner
	store   *ledger.Store
	logger  *zap.Logger
	printer *ui.Printer
	opts    Options
}

// New creates a Bootstrap from options, filling in defaults.
func New(opts Options) *Bootstrap {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Printer == nil {
		opts.Printer = ui.NewPrinter(io.Discard)
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	return &Bootstrap{
		cfg:     opts.Config,
		runner:  opts.Runner,
		store:   opts.Ledger,
		logger:  opts.Logger,
		printer: opts.Printer,
		opts:    opts,
	}
}

// Run executes the sequence and returns its report. Run never returns
// an error: every failure mode is a Report outcome with an exit code.
func (b *Bootstrap) Run(ctx context.Context) *Report {
	report := &Report{Outcome: ledger.OutcomeSuccess, ExitCode: ExitOK}

	if b.store != nil {
		id, err := b.store.BeginRun(time.Now())
		if err != nil {
			// History is best-effort; the bootstrap itself proceeds.
			b.logger.Warn("ledger unavailable", zap.Error(err))
		} else {
			report.RunID = id
		}
	}

	if b.stepDeveloperTools(ctx, report) && b.stepInterpreter(ctx, report) {
		b.stepInstall(ctx, report)
	}

	b.finish(report)
	return report
}

func (b *Bootstrap) stepDeveloperTools(ctx context.Context, report *Report) bool {
	b.printer.Stepf("[1/3] Checking for command line developer tools...")
	probe := &toolchain.DeveloperToolsProbe{Runner: b.runner}
	start := time.Now()

	status, err := probe.Check(ctx)
	if err != nil {
		return b.fatal(report, 1, probe.Name(), err, ledger.OutcomeError, ExitFatal, start)
	}

	if status.Present {
		b.printer.Okf("developer tools already installed")
		b.printer.Detailf("%s", status.Detail)
		b.record(report, StepResult{Seq: 1, Name: probe.Name(), Status: StepOK, Detail: status.Detail, Took: time.Since(start)})
		return true
	}

	if b.opts.DryRun {
		b.printer.Warnf("developer tools missing; would run `xcode-select --install` and wait")
		b.record(report, StepResult{Seq: 1, Name: probe.Name(), Status: StepSkipped, Detail: "dry-run", Took: time.Since(start)})
		return true
	}

	b.printer.Warnf("developer tools missing; requesting install (follow the system dialog)")
	if err := probe.Install(ctx); err != nil {
		return b.fatal(report, 1, probe.Name(), err, ledger.OutcomeError, ExitFatal, start)
	}

	waitCtx := ctx
	var cancel context.CancelFunc
	if b.opts.WaitTimeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, b.opts.WaitTimeout)
		defer cancel()
	}

	watchDir := b.opts.WatchDir
	if watchDir == "" {
		watchDir = toolchain.DeveloperToolsDir
	}
	waiter := &toolchain.Waiter{
		Probe:    probe,
		Interval: b.cfg.PollInterval,
		WatchDir: watchDir,
		Logger:   b.logger,
	}

	var uiDone chan struct{}
	if b.opts.WaitUI != nil {
		uiDone = make(chan struct{})
		uiStopped := make(chan struct{})
		go func() {
			defer close(uiStopped)
			b.opts.WaitUI(ctx, uiDone)
		}()
		defer func() {
			close(uiDone)
			<-uiStopped
		}()
	}

	status, err = waiter.Wait(waitCtx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return b.fatal(report, 1, probe.Name(), err, ledger.OutcomeCancelled, ExitInterrupted, start)
		}
		return b.fatal(report, 1, probe.Name(), err, ledger.OutcomeError, ExitFatal, start)
	}

	b.printer.Okf("developer tools installed")
	b.printer.Detailf("%s", status.Detail)
	b.record(report, StepResult{Seq: 1, Name: probe.Name(), Status: StepWaited, Detail: status.Detail, Took: time.Since(start)})
	return true
}

func (b *Bootstrap) stepInterpreter(ctx context.Context, report *Report) bool {
	b.printer.Stepf("[2/3] Checking for %s...", b.cfg.Python)
	probe := &toolchain.PythonProbe{Runner: b.runner, Binary: b.cfg.Python}
	start := time.Now()

	status, err := probe.Check(ctx)
	if err != nil {
		return b.fatal(report, 2, probe.Name(), err, ledger.OutcomeError, ExitFatal, start)
	}

	if !status.Present {
		b.printer.Failf("%s is not available: %s", b.cfg.Python, status.Detail)
		b.printer.Detailf("install Python 3 from https://www.python.org/downloads/ and re-run envup")
		b.record(report, StepResult{Seq: 2, Name: probe.Name(), Status: StepFailed, Detail: status.Detail, Took: time.Since(start)})
		report.Outcome = ledger.OutcomeNoInterpreter
		report.ExitCode = ExitNoInterpreter
		return false
	}

	b.printer.Okf("%s", status.Detail)
	b.record(report, StepResult{Seq: 2, Name: probe.Name(), Status: StepOK, Detail: status.Detail, Took: time.Since(start)})
	return true
}

func (b *Bootstrap) stepInstall(ctx context.Context, report *Report) bool {
	b.printer.Stepf("[3/3] Installing libraries: %s", strings.Join(b.cfg.Packages, ", "))
	start := time.Now()

	if b.opts.DryRun {
		b.printer.Warnf("dry-run: would run `%s -m pip install %s`", b.cfg.Python, strings.Join(b.cfg.Packages, " "))
		b.record(report, StepResult{Seq: 3, Name: "install libraries", Status: StepSkipped, Detail: "dry-run", Took: time.Since(start)})
		return true
	}

	installer := &pip.Installer{
		Runner:    b.runner,
		Python:    b.cfg.Python,
		ExtraArgs: b.cfg.PipArgs,
		Logger:    b.logger,
	}
	res, err := installer.Install(ctx, b.cfg.Packages)
	if err != nil {
		return b.fatal(report, 3, "install libraries", err, ledger.OutcomeError, ExitInstallFailed, start)
	}

	if res.Failed() {
		b.printer.Failf("pip exited with status %d", res.ExitCode)
		if res.Output != "" {
			b.printer.Detailf("%s", res.Output)
		}
		b.record(report, StepResult{Seq: 3, Name: "install libraries", Status: StepFailed,
			Detail: "pip exit " + strconv.Itoa(res.ExitCode), Took: time.Since(start)})
		report.Outcome = ledger.OutcomeInstallFailed
		report.ExitCode = ExitInstallFailed
		return false
	}

	b.printer.Okf("libraries installed")
	b.record(report, StepResult{Seq: 3, Name: "install libraries", Status: StepOK, Took: time.Since(start)})
	return true
}

func (b *Bootstrap) finish(report *Report) {
	switch report.Outcome {
	case ledger.OutcomeSuccess:
		if b.opts.DryRun {
			b.printer.SuccessBanner("Dry-run complete. Nothing was installed.")
		} else {
			b.printer.SuccessBanner("Setup complete! You can now run the sizing calculator.")
		}
	case ledger.OutcomeNoInterpreter:
		b.printer.FailureBanner("Setup failed: Python 3 is required but was not found.")
	case ledger.OutcomeInstallFailed:
		b.printer.FailureBanner("Setup failed: library installation did not succeed.")
	case ledger.OutcomeCancelled:
		b.printer.FailureBanner("Setup interrupted.")
	default:
		b.printer.FailureBanner("Setup failed.")
	}

	if b.store != nil && report.RunID != "" {
		if err := b.store.FinishRun(report.RunID, report.Outcome, report.ExitCode, time.Now()); err != nil {
			b.logger.Warn("could not finalize run history", zap.Error(err))
		}
	}

	if !b.opts.AssumeYes && b.opts.Stdin != nil {
		ui.WaitForEnter(b.opts.Stdin, b.printer.Out)
	}
}

func (b *Bootstrap) record(report *Report, step StepResult) {
	report.Steps = append(report.Steps, step)
	b.logger.Info("step finished",
		zap.Int("seq", step.Seq),
		zap.String("name", step.Name),
		zap.String("status", string(step.Status)),
		zap.Duration("took", step.Took))
	if b.store != nil && report.RunID != "" {
		if err := b.store.RecordStep(report.RunID, step.Seq, step.Name, string(step.Status), step.Detail, step.Took); err != nil {
			b.logger.Warn("could not record step", zap.Error(err))
		}
	}
}

// fatal records a step error and stamps the report. Always returns
// false so callers can `return b.fatal(...)`.
func (b *Bootstrap) fatal(report *Report, seq int, name string, err error, outcome ledger.Outcome, exitCode int, start time.Time) bool {
	b.printer.Failf("%v", err)
	b.record(report, StepResult{Seq: seq, Name: name, Status: StepFailed, Detail: err.Error(), Took: time.Since(start)})
	report.Outcome = outcome
	report.ExitCode = exitCode
	return false
}
