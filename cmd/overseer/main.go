package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"overseer/internal/authority"
	"overseer/internal/config"
	"overseer/internal/directive"
	"overseer/internal/logging"
	"overseer/internal/metrics"
	"overseer/internal/store"
)

var (
	// Global flags
	configPath string
	callerRole string
	debug      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "overseer",
	Short: "overseer - directive governance and diagnostic oversight engine",
	Long: `overseer gates proposed autonomous directives against business and
safety policy, classifies failures and renders verdicts on corrective
actions, runs recurring diagnostic cycles with tiered alerting, and tracks
a multi-day oversight horizon toward a terminal verdict.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if debug {
			cfg.Logging.Debug = true
		}
		if err := logging.Initialize(cfg.StateDir, cfg.Logging.Debug, cfg.Logging.Level); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		app.cfg = cfg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
		if app.archive != nil {
			_ = app.archive.Close()
		}
	},
}

// app holds the wired services shared by the subcommands. Services are
// constructed lazily so read-only commands do not touch the archive.
var app struct {
	cfg     *config.Config
	guard   *authority.Guard
	repo    *store.FileRepository
	archive *store.Archive
}

func caller() authority.Role {
	return authority.Role(callerRole)
}

// openStores wires the file repository and sqlite archive under the state
// directory. Idempotent across subcommand helpers.
func openStores() error {
	if app.repo != nil {
		return nil
	}
	repo, err := store.NewFileRepository(app.cfg.StatePath("state"))
	if err != nil {
		return err
	}
	archive, err := store.NewArchive(app.cfg.StateDir)
	if err != nil {
		return err
	}
	app.repo = repo
	app.archive = archive
	app.guard = authority.NewGuard()
	return nil
}

// provider returns the metric source. Real deployments swap this for a
// live collector; the CLI runs on the simulation.
func provider() metrics.Provider {
	return metrics.NewSimulatedProvider(0)
}

func newGate() *directive.Gate {
	return directive.NewGate(app.cfg.Policy)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "overseer.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&callerRole, "as", "ceo", "role asserting authority for privileged operations")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug log files")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
