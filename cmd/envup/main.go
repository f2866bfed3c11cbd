// envup bootstraps a macOS workstation for the virtualization sizing
// calculator: Apple command line developer tools, Python 3, and the
// Python libraries the calculator needs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adammarcum/envup/internal/logging"
)

var version = "0.2.0"

var (
	// Global flags
	verbose bool
	cfgPath string

	// Logger
	logger = logging.Nop()
)

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// rootCmd represents the base command. Running envup with no subcommand
// performs the full bootstrap, like the original installer script.
var rootCmd = &cobra.Command{
	Use:   "envup",
	Short: "Bootstrap the sizing calculator workstation",
	Long: `envup prepares a macOS machine to run the virtualization sizing
calculator. It checks for the Apple command line developer tools
(triggering the interactive installer and waiting if needed), verifies a
Python 3 interpreter, and installs the required libraries via pip.

Run without arguments to perform the full bootstrap.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.Options{
			Verbose: verbose,
			JSON:    os.Getenv("ENVUP_LOG_JSON") == "1",
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runUp,
}

// versionCmd prints the envup version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the envup version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("envup %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.envup.yaml)")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var ee exitError
	if !errors.As(err, &ee) {
		// Exit codes from the bootstrap were already reported; anything
		// else is an unexpected failure worth printing.
		logger.Error("command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "envup: %v\n", err)
	}
	os.Exit(unwrapExit(err))
}
