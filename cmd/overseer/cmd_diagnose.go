package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"overseer/internal/diagnostic"
)

func newEngine() (*diagnostic.Engine, error) {
	if err := openStores(); err != nil {
		return nil, err
	}
	return diagnostic.NewEngine(app.cfg.Diagnostic, app.guard, provider(), app.repo, app.archive)
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Manage the diagnostic cycle engine",
}

var diagnoseInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Start a fresh diagnostics session",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		if err := engine.Initialize(caller()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "diagnostics session initialized")
		return nil
	},
}

var diagnoseRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one diagnostic cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		summary, err := engine.RunCycle(cmd.Context(), caller())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"cycle %d: %d pass / %d warning / %d fail | %d new violations, %d corrections (%d failed) | alert: %s\n",
			summary.Cycle, summary.PassCount, summary.WarningCount, summary.FailCount,
			summary.NewViolations, summary.CorrectionsApplied, summary.CorrectionFailures, summary.AlertMode)
		for _, target := range summary.VerificationTargets {
			fmt.Fprintf(cmd.OutOrStdout(), "  verify next cycle: %s\n", target)
		}
		return nil
	},
}

var diagnoseStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the diagnostic session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		st := engine.Status()
		if !st.Active {
			fmt.Fprintln(cmd.OutOrStdout(), "diagnostics: inactive")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "diagnostics: cycle %d, alert %s, %d open violations\n",
			st.Cycle, st.AlertMode, st.OpenViolations)
		for _, name := range st.FailingChecks {
			fmt.Fprintf(cmd.OutOrStdout(), "  failing: %s\n", name)
		}
		for _, w := range st.Workers {
			fmt.Fprintf(cmd.OutOrStdout(), "  worker %-16s %s\n", w.Name, w.State)
		}
		return nil
	},
}

var diagnoseStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the diagnostics session",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		if err := engine.Stop(caller()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "diagnostics session stopped")
		return nil
	},
}

func init() {
	diagnoseCmd.AddCommand(diagnoseInitCmd, diagnoseRunCmd, diagnoseStatusCmd, diagnoseStopCmd)
	rootCmd.AddCommand(diagnoseCmd)
}
