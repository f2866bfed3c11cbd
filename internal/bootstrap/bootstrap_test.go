package bootstrap

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adammarcum/envup/internal/config"
	"github.com/adammarcum/envup/internal/ledger"
	"github.com/adammarcum/envup/internal/shell"
	"github.com/adammarcum/envup/internal/ui"
)

const cltPath = "/Library/Developer/CommandLineTools\n"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.PollInterval = 5 * time.Millisecond
	return cfg
}

// runnerWithEverythingPresent scripts a host that needs nothing.
func runnerWithEverythingPresent() *shell.FakeRunner {
	f := shell.NewFakeRunner()
	f.Script("xcode-select", &shell.Result{ExitCode: 0, Stdout: cltPath})
	f.Script("python3", &shell.Result{ExitCode: 0, Stdout: "Python 3.12.4\n"}) // --version
	f.Script("python3", &shell.Result{ExitCode: 0})                            // pip install
	return f
}

func newTestBootstrap(t *testing.T, f *shell.FakeRunner, out *bytes.Buffer) *Bootstrap {
	t.Helper()
	return New(Options{
		Config:    testConfig(),
		Runner:    f,
		Printer:   ui.NewPrinter(out),
		AssumeYes: true,
		WatchDir:  t.TempDir(),
	})
}

func TestRun_ToolsPresent_SkipsInstaller(t *testing.T) {
	f := runnerWithEverythingPresent()
	var out bytes.Buffer

	report := newTestBootstrap(t, f, &out).Run(context.Background())

	assert.Equal(t, ExitOK, report.ExitCode)
	assert.Equal(t, ledger.OutcomeSuccess, report.Outcome)
	for _, call := range f.CallsTo("xcode-select") {
		assert.NotContains(t, call.Arguments, "--install",
			"installer must not run when tools are already present")
	}
	assert.Contains(t, out.String(), "Setup complete")

	want := []StepResult{
		{Seq: 1, Name: "developer tools", Status: StepOK},
		{Seq: 2, Name: "python 3", Status: StepOK},
		{Seq: 3, Name: "install libraries", Status: StepOK},
	}
	if diff := cmp.Diff(want, report.Steps, cmpopts.IgnoreFields(StepResult{}, "Took", "Detail")); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ToolsAbsent_InstallsOnceAndPollsUntilPresent(t *testing.T) {
	f := shell.NewFakeRunner()
	// Call order on the xcode-select binary: the initial check (absent),
	// the single --install trigger, then polls: absent, absent, present.
	f.Script("xcode-select", &shell.Result{ExitCode: 2})
	f.Script("xcode-select", &shell.Result{ExitCode: 0}) // --install
	f.Script("xcode-select", &shell.Result{ExitCode: 2})
	f.Script("xcode-select", &shell.Result{ExitCode: 2})
	f.Script("xcode-select", &shell.Result{ExitCode: 0, Stdout: cltPath})
	f.Script("python3", &shell.Result{ExitCode: 0, Stdout: "Python 3.12.4\n"})
	f.Script("python3", &shell.Result{ExitCode: 0})

	var out bytes.Buffer
	report := newTestBootstrap(t, f, &out).Run(context.Background())

	assert.Equal(t, ExitOK, report.ExitCode)

	var installs, checks int
	for _, call := range f.CallsTo("xcode-select") {
		switch call.Arguments[0] {
		case "--install":
			installs++
		case "-p":
			checks++
		}
	}
	assert.Equal(t, 1, installs, "interactive installer must be triggered exactly once")
	assert.GreaterOrEqual(t, checks, 3, "expected the initial check plus polls")

	require.NotEmpty(t, report.Steps)
	assert.Equal(t, StepWaited, report.Steps[0].Status)
}

func TestRun_NoInterpreter_FatalExit1BeforePip(t *testing.T) {
	f := shell.NewFakeRunner()
	f.Script("xcode-select", &shell.Result{ExitCode: 0, Stdout: cltPath})
	f.Missing["python3"] = true

	var out bytes.Buffer
	report := newTestBootstrap(t, f, &out).Run(context.Background())

	assert.Equal(t, ExitNoInterpreter, report.ExitCode)
	assert.Equal(t, ledger.OutcomeNoInterpreter, report.Outcome)
	assert.Empty(t, f.CallsTo("python3"), "pip must never run without an interpreter")
	assert.Contains(t, out.String(), "Setup failed")
	assert.NotContains(t, out.String(), "Setup complete")
}

func TestRun_PipInvokedOnceWithExactPackages(t *testing.T) {
	f := runnerWithEverythingPresent()
	var out bytes.Buffer

	newTestBootstrap(t, f, &out).Run(context.Background())

	var pipCalls []shell.Command
	for _, call := range f.CallsTo("python3") {
		if len(call.Arguments) > 1 && call.Arguments[1] == "pip" {
			pipCalls = append(pipCalls, call)
		}
	}
	require.Len(t, pipCalls, 1, "pip must be invoked exactly once")
	assert.Equal(t, []string{"-m", "pip", "install", "streamlit", "pandas", "openpyxl"}, pipCalls[0].Arguments)
}

func TestRun_PipFailure_FailureBannerAndExit2(t *testing.T) {
	// The original script printed the success banner and exited 0 no
	// matter what pip did. That behavior is gone: a failed install is
	// reported and the exit code says so.
	f := shell.NewFakeRunner()
	f.Script("xcode-select", &shell.Result{ExitCode: 0, Stdout: cltPath})
	f.Script("python3", &shell.Result{ExitCode: 0, Stdout: "Python 3.12.4\n"})
	f.Script("python3", &shell.Result{ExitCode: 1, Stderr: "ERROR: No matching distribution found for streamlit\n"})

	var out bytes.Buffer
	report := newTestBootstrap(t, f, &out).Run(context.Background())

	assert.Equal(t, ExitInstallFailed, report.ExitCode)
	assert.Equal(t, ledger.OutcomeInstallFailed, report.Outcome)
	assert.Contains(t, out.String(), "library installation did not succeed")
	assert.NotContains(t, out.String(), "Setup complete")
}

func TestRun_DryRun_TouchesNothing(t *testing.T) {
	f := shell.NewFakeRunner()
	f.Script("xcode-select", &shell.Result{ExitCode: 2}) // tools absent
	f.Script("python3", &shell.Result{ExitCode: 0, Stdout: "Python 3.12.4\n"})

	var out bytes.Buffer
	b := New(Options{
		Config:    testConfig(),
		Runner:    f,
		Printer:   ui.NewPrinter(&out),
		AssumeYes: true,
		DryRun:    true,
		WatchDir:  t.TempDir(),
	})
	report := b.Run(context.Background())

	assert.Equal(t, ExitOK, report.ExitCode)
	for _, call := range f.CallsTo("xcode-select") {
		assert.NotContains(t, call.Arguments, "--install")
	}
	for _, call := range f.CallsTo("python3") {
		assert.NotContains(t, call.Arguments, "pip")
	}
	assert.Contains(t, out.String(), "Dry-run complete")
}

func TestRun_CancelledDuringWait(t *testing.T) {
	f := shell.NewFakeRunner()
	f.Script("xcode-select", &shell.Result{ExitCode: 2}) // never flips

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	var out bytes.Buffer
	report := newTestBootstrap(t, f, &out).Run(ctx)

	assert.Equal(t, ExitInterrupted, report.ExitCode)
	assert.Equal(t, ledger.OutcomeCancelled, report.Outcome)
	assert.Contains(t, out.String(), "Setup interrupted")
}

func TestRun_WaitUIShownWhileWaiting(t *testing.T) {
	f := shell.NewFakeRunner()
	f.Script("xcode-select", &shell.Result{ExitCode: 2})
	f.Script("xcode-select", &shell.Result{ExitCode: 0}) // --install
	f.Script("xcode-select", &shell.Result{ExitCode: 0, Stdout: cltPath})
	f.Script("python3", &shell.Result{ExitCode: 0, Stdout: "Python 3.12.4\n"})
	f.Script("python3", &shell.Result{ExitCode: 0})

	uiRan := make(chan struct{})
	var out bytes.Buffer
	b := New(Options{
		Config:    testConfig(),
		Runner:    f,
		Printer:   ui.NewPrinter(&out),
		AssumeYes: true,
		WatchDir:  t.TempDir(),
		WaitUI: func(ctx context.Context, done <-chan struct{}) {
			close(uiRan)
			<-done
		},
	})
	report := b.Run(context.Background())

	assert.Equal(t, ExitOK, report.ExitCode)
	select {
	case <-uiRan:
	default:
		t.Fatal("wait UI was never shown")
	}
}

func TestRun_RecordsHistory(t *testing.T) {
	store, err := ledger.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	f := runnerWithEverythingPresent()
	var out bytes.Buffer
	b := New(Options{
		Config:    testConfig(),
		Runner:    f,
		Ledger:    store,
		Printer:   ui.NewPrinter(&out),
		AssumeYes: true,
		WatchDir:  t.TempDir(),
	})
	report := b.Run(context.Background())

	require.NotEmpty(t, report.RunID)
	runs, err := store.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].ID)
	assert.Equal(t, ledger.OutcomeSuccess, runs[0].Outcome)

	steps, err := store.StepsFor(report.RunID)
	require.NoError(t, err)
	assert.Len(t, steps, 3)
}

func TestRun_PromptsForEnterWhenInteractive(t *testing.T) {
	f := runnerWithEverythingPresent()
	var out bytes.Buffer
	b := New(Options{
		Config:   testConfig(),
		Runner:   f,
		Printer:  ui.NewPrinter(&out),
		Stdin:    bytes.NewBufferString("\n"),
		WatchDir: t.TempDir(),
	})
	report := b.Run(context.Background())

	assert.Equal(t, ExitOK, report.ExitCode)
	assert.Contains(t, out.String(), "Press Enter to exit")
}
