package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"overseer/internal/oversight"
)

var (
	decisionKind   string
	decisionReason string
	decisionTarget string
)

func newOversightMap() (*oversight.Map, error) {
	if err := openStores(); err != nil {
		return nil, err
	}
	return oversight.NewMap(app.cfg.Oversight, app.guard, provider(), app.repo, app.archive)
}

var oversightCmd = &cobra.Command{
	Use:   "oversight",
	Short: "Manage the multi-day oversight map",
}

var oversightInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Start a fresh oversight horizon",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newOversightMap()
		if err != nil {
			return err
		}
		if err := m.Initialize(cmd.Context(), caller()); err != nil {
			return err
		}
		st := m.Status()
		fmt.Fprintf(cmd.OutOrStdout(), "oversight horizon started: day %d of %d, health %.1f\n",
			st.Day, st.HorizonDays, st.HealthIndex)
		return nil
	},
}

var oversightAdvanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "Complete the current day and move to the next",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newOversightMap()
		if err != nil {
			return err
		}
		if err := m.AdvanceDay(cmd.Context(), caller()); err != nil {
			return err
		}
		st := m.Status()
		if st.Verdict != oversight.VerdictPending {
			fmt.Fprintf(cmd.OutOrStdout(), "horizon complete: terminal verdict %s\n", st.Verdict)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "advanced to day %d of %d, health %.1f (%s)\n",
			st.Day, st.HorizonDays, st.HealthIndex, st.Readiness)
		return nil
	},
}

var oversightDecisionCmd = &cobra.Command{
	Use:   "decision",
	Short: "Record an operator decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newOversightMap()
		if err != nil {
			return err
		}
		d, err := m.RecordDecision(caller(), oversight.DecisionKind(decisionKind), decisionReason, decisionTarget)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recorded %s decision %s on day %d\n", d.Kind, d.ID, d.Day)
		return nil
	},
}

var oversightDigestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Render the plain-text operator digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newOversightMap()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), m.RenderDigest())
		return nil
	},
}

var oversightStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the oversight map status",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newOversightMap()
		if err != nil {
			return err
		}
		st := m.Status()
		if !st.Active {
			fmt.Fprintln(cmd.OutOrStdout(), "oversight: inactive")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "oversight: day %d of %d, health %.1f (%s), verdict %s\n",
			st.Day, st.HorizonDays, st.HealthIndex, st.Readiness, st.Verdict)
		return nil
	},
}

func init() {
	oversightDecisionCmd.Flags().StringVar(&decisionKind, "kind", "", "decision kind (go, hold, escalate, course_correct, rollback)")
	oversightDecisionCmd.Flags().StringVar(&decisionReason, "reason", "", "reasoning behind the decision")
	oversightDecisionCmd.Flags().StringVar(&decisionTarget, "target", "", "what the decision applies to")
	_ = oversightDecisionCmd.MarkFlagRequired("kind")
	_ = oversightDecisionCmd.MarkFlagRequired("reason")

	oversightCmd.AddCommand(oversightInitCmd, oversightAdvanceCmd, oversightDecisionCmd, oversightDigestCmd, oversightStatusCmd)
	rootCmd.AddCommand(oversightCmd)
}
