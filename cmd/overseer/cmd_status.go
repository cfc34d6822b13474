package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd shows both engines' status in one view. Status reads are safe
// even when nothing has been initialized.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show diagnostic and oversight status",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		m, err := newOversightMap()
		if err != nil {
			return err
		}

		ds := engine.Status()
		if ds.Active {
			fmt.Fprintf(cmd.OutOrStdout(), "diagnostics: active, cycle %d, alert %s, %d open violations\n",
				ds.Cycle, ds.AlertMode, ds.OpenViolations)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "diagnostics: inactive")
		}

		ms := m.Status()
		if ms.Active {
			fmt.Fprintf(cmd.OutOrStdout(), "oversight:   day %d of %d, health %.1f (%s), verdict %s\n",
				ms.Day, ms.HorizonDays, ms.HealthIndex, ms.Readiness, ms.Verdict)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "oversight:   inactive")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
