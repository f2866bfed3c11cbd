package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adammarcum/envup/internal/config"
	"github.com/adammarcum/envup/internal/ledger"
)

var historyLimit int

// historyCmd lists past bootstrap runs from the local ledger.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show previous bootstrap runs on this machine",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	store, err := ledger.Open(dataDir)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No bootstrap runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tOUTCOME\tEXIT\tRUN")
	for _, run := range runs {
		outcome := string(run.Outcome)
		if outcome == "" {
			outcome = "in progress"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"), outcome, run.ExitCode, run.ID)
	}
	return w.Flush()
}
