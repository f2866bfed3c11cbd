package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adammarcum/envup/internal/bootstrap"
	"github.com/adammarcum/envup/internal/config"
	"github.com/adammarcum/envup/internal/ledger"
	"github.com/adammarcum/envup/internal/shell"
	"github.com/adammarcum/envup/internal/ui"
)

var (
	assumeYes    bool
	dryRun       bool
	waitTimeout  time.Duration
	pollInterval time.Duration
)

// upCmd runs the full bootstrap sequence.
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Check the machine and install what is missing",
	Long: `Runs the bootstrap sequence in order:

  1. Command line developer tools (interactive install + wait if absent)
  2. Python 3 interpreter (fatal if absent)
  3. pip install of the configured libraries

Exit codes: 0 on success, 1 when no Python 3 is available, 2 when the
library install fails.`,
	Args: cobra.NoArgs,
	RunE: runUp,
}

func init() {
	upCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not pause for keypresses")
	upCmd.Flags().BoolVar(&dryRun, "dry-run", false, "probe only; install nothing")
	upCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "bound the developer tools wait (0 = wait forever)")
	upCmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "developer tools poll period (default 5s)")

	// The bare `envup` invocation shares these flags.
	rootCmd.Flags().AddFlagSet(upCmd.Flags())
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if pollInterval > 0 {
		cfg.PollInterval = pollInterval
	}

	runner := shell.NewDirectRunner()
	runner.SetAuditCallback(func(ev shell.AuditEvent) {
		logger.Debug("command finished",
			zap.String("command", ev.Command),
			zap.Int("exit_code", ev.ExitCode),
			zap.Duration("took", ev.Duration))
	})

	var store *ledger.Store
	if dataDir, derr := cfg.ResolveDataDir(); derr != nil {
		logger.Warn("run history disabled", zap.Error(derr))
	} else if store, err = ledger.Open(dataDir); err != nil {
		logger.Warn("run history disabled", zap.Error(err))
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	opts := bootstrap.Options{
		Config:      cfg,
		Runner:      runner,
		Ledger:      store,
		Logger:      logger,
		Printer:     ui.NewPrinter(cmd.OutOrStdout()),
		Stdin:       cmd.InOrStdin(),
		AssumeYes:   assumeYes,
		DryRun:      dryRun,
		WaitTimeout: waitTimeout,
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		opts.WaitUI = func(ctx context.Context, done <-chan struct{}) {
			_ = ui.ShowWait(ctx, os.Stdout, "Waiting for the developer tools install to finish...", done)
		}
	}

	report := bootstrap.New(opts).Run(cmd.Context())
	logger.Info("bootstrap finished",
		zap.String("run_id", report.RunID),
		zap.String("outcome", string(report.Outcome)),
		zap.Int("exit_code", report.ExitCode))

	if report.ExitCode != bootstrap.ExitOK {
		return exitError{code: report.ExitCode}
	}
	return nil
}

// unwrapExit reports the exit code a command error maps to.
func unwrapExit(err error) int {
	if err == nil {
		return 0
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
