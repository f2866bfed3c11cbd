package toolchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/adammarcum/envup/internal/shell"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDeveloperToolsProbe(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		f := shell.NewFakeRunner()
		f.Script("xcode-select", &shell.Result{ExitCode: 0, Stdout: "/Library/Developer/CommandLineTools\n"})

		status, err := (&DeveloperToolsProbe{Runner: f}).Check(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Present)
		assert.Equal(t, "/Library/Developer/CommandLineTools", status.Detail)
	})

	t.Run("absent", func(t *testing.T) {
		f := shell.NewFakeRunner()
		f.Script("xcode-select", &shell.Result{ExitCode: 2, Stderr: "error: unable to get active developer directory"})

		status, err := (&DeveloperToolsProbe{Runner: f}).Check(context.Background())
		require.NoError(t, err)
		assert.False(t, status.Present)
	})

	t.Run("xcode-select itself missing is an error", func(t *testing.T) {
		f := shell.NewFakeRunner()
		f.Errs["xcode-select"] = assert.AnError

		_, err := (&DeveloperToolsProbe{Runner: f}).Check(context.Background())
		assert.Error(t, err)
	})
}

func TestDeveloperToolsProbe_Install(t *testing.T) {
	f := shell.NewFakeRunner()
	probe := &DeveloperToolsProbe{Runner: f}

	require.NoError(t, probe.Install(context.Background()))

	calls := f.CallsTo("xcode-select")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"--install"}, calls[0].Arguments)
}

func TestDeveloperToolsProbe_InstallToleratesNonZeroExit(t *testing.T) {
	// xcode-select --install exits non-zero when an install is already
	// in progress; that must not abort the bootstrap.
	f := shell.NewFakeRunner()
	f.Script("xcode-select", &shell.Result{ExitCode: 1})

	err := (&DeveloperToolsProbe{Runner: f}).Install(context.Background())
	assert.NoError(t, err)
}

func TestPythonProbe(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		f := shell.NewFakeRunner()
		f.Script("python3", &shell.Result{ExitCode: 0, Stdout: "Python 3.12.4\n"})

		status, err := (&PythonProbe{Runner: f, Binary: "python3"}).Check(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Present)
		assert.Contains(t, status.Detail, "Python 3.12.4")
	})

	t.Run("version on stderr", func(t *testing.T) {
		f := shell.NewFakeRunner()
		f.Script("python3", &shell.Result{ExitCode: 0, Stderr: "Python 3.8.2\n"})

		status, err := (&PythonProbe{Runner: f, Binary: "python3"}).Check(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Present)
	})

	t.Run("not on PATH", func(t *testing.T) {
		f := shell.NewFakeRunner()
		f.Missing["python3"] = true

		status, err := (&PythonProbe{Runner: f, Binary: "python3"}).Check(context.Background())
		require.NoError(t, err)
		assert.False(t, status.Present)
		assert.Contains(t, status.Detail, "not found on PATH")
		assert.Empty(t, f.CallsTo("python3"), "must not run a binary that is not there")
	})

	t.Run("python 2 rejected", func(t *testing.T) {
		f := shell.NewFakeRunner()
		f.Script("python", &shell.Result{ExitCode: 0, Stderr: "Python 2.7.18\n"})

		status, err := (&PythonProbe{Runner: f, Binary: "python"}).Check(context.Background())
		require.NoError(t, err)
		assert.False(t, status.Present)
		assert.Contains(t, status.Detail, "not Python 3")
	})
}

func TestProbeAll_PreservesOrder(t *testing.T) {
	f := shell.NewFakeRunner()
	f.Script("xcode-select", &shell.Result{ExitCode: 0, Stdout: "/Library/Developer/CommandLineTools\n"})
	f.Missing["python3"] = true

	probes := []Probe{
		&DeveloperToolsProbe{Runner: f},
		&PythonProbe{Runner: f, Binary: "python3"},
	}
	results := ProbeAll(context.Background(), probes)

	require.Len(t, results, 2)
	assert.Equal(t, "developer tools", results[0].Name)
	assert.True(t, results[0].Status.Present)
	assert.Equal(t, "python 3", results[1].Name)
	assert.False(t, results[1].Status.Present)
}
