package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adammarcum/envup/internal/config"
	"github.com/adammarcum/envup/internal/shell"
	"github.com/adammarcum/envup/internal/toolchain"
	"github.com/adammarcum/envup/internal/ui"
)

var doctorMarkdown bool

// doctorCmd reports machine state without changing it.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the machine without installing anything",
	Long: `Probes for everything the bootstrap needs and reports what it
found. Never installs. Exits 0 when all checks pass, 1 otherwise.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorMarkdown, "markdown", false, "render the report as styled markdown")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	runner := shell.NewDirectRunner()
	probes := []toolchain.Probe{
		&toolchain.DeveloperToolsProbe{Runner: runner},
		&toolchain.PythonProbe{Runner: runner, Binary: cfg.Python},
	}
	results := toolchain.ProbeAll(cmd.Context(), probes)

	rows := make([]ui.CheckRow, 0, len(results))
	healthy := true
	for _, r := range results {
		row := ui.CheckRow{Name: r.Name, Present: r.Status.Present, Detail: r.Status.Detail}
		if r.Err != nil {
			row.Present = false
			row.Detail = r.Err.Error()
		}
		if !row.Present {
			healthy = false
		}
		rows = append(rows, row)
	}

	if doctorMarkdown {
		rendered, rerr := ui.RenderMarkdown(ui.DoctorMarkdown(rows))
		if rerr != nil {
			return rerr
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
	} else {
		p := ui.NewPrinter(cmd.OutOrStdout())
		for _, row := range rows {
			if row.Present {
				p.Okf("%s", row.Name)
			} else {
				p.Failf("%s", row.Name)
			}
			if row.Detail != "" {
				p.Detailf("%s", row.Detail)
			}
		}
	}

	if !healthy {
		return exitError{code: 1}
	}
	return nil
}
