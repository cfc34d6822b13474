package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"overseer/internal/decision"
)

var decideJSON bool

// decideCmd runs a diagnostic brief through the decision framework and
// prints the rendered verdict.
var decideCmd = &cobra.Command{
	Use:   "decide <brief.json>",
	Short: "Render a verdict on a diagnostic brief",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read brief: %w", err)
		}
		var brief decision.DiagnosticBrief
		if err := json.Unmarshal(data, &brief); err != nil {
			return fmt.Errorf("failed to parse brief: %w", err)
		}

		if err := openStores(); err != nil {
			return err
		}
		framework, err := decision.NewFramework(app.cfg.Decision, app.repo, app.archive)
		if err != nil {
			return err
		}
		verdict, err := framework.ApplyFramework(brief)
		if err != nil {
			return err
		}

		if decideJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(verdict)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "verdict: %s (%s, urgency %s)\n",
			verdict.Verdict, verdict.Classification.Class, verdict.Classification.Urgency)
		fmt.Fprintf(cmd.OutOrStdout(), "rationale: %s\n", verdict.Rationale)
		if len(verdict.RequiredFixes) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "required fixes: %s\n", strings.Join(verdict.RequiredFixes, ", "))
		}
		if verdict.Execution != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "execution: %s (deadline %s)\n",
				verdict.Execution.Command, verdict.Execution.Deadline.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	decideCmd.Flags().BoolVar(&decideJSON, "json", false, "emit JSON output")
	rootCmd.AddCommand(decideCmd)
}
