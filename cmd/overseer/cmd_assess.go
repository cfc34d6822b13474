package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"overseer/internal/directive"
)

var assessJSON bool

// assessCmd evaluates a batch of directives from a JSON file against the
// loaded policy.
var assessCmd = &cobra.Command{
	Use:   "assess <directives.json>",
	Short: "Assess a batch of directives against policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read directives: %w", err)
		}
		var directives []directive.Directive
		if err := json.Unmarshal(data, &directives); err != nil {
			return fmt.Errorf("failed to parse directives: %w", err)
		}

		gate := newGate()
		assessments, err := gate.AssessAll(directives)
		if err != nil {
			return err
		}
		summary := directive.Summarize(assessments)

		if assessJSON {
			out := struct {
				Assessments []directive.Assessment `json:"assessments"`
				Summary     directive.Summary      `json:"summary"`
			}{assessments, summary}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		for _, a := range assessments {
			line := fmt.Sprintf("%-24s %-14s", a.Directive.Agent, a.Status)
			if len(a.GatesTriggered) > 0 {
				gates := make([]string, len(a.GatesTriggered))
				for i, g := range a.GatesTriggered {
					gates[i] = string(g)
				}
				line += " gates: " + strings.Join(gates, ", ")
			}
			if a.BlockReason != "" {
				line += " | " + a.BlockReason
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d total: %d approved, %d blocked, %d need approval\n",
			summary.Total, summary.Approved, summary.Blocked, summary.NeedsApproval)
		return nil
	},
}

func init() {
	assessCmd.Flags().BoolVar(&assessJSON, "json", false, "emit JSON output")
	rootCmd.AddCommand(assessCmd)
}
