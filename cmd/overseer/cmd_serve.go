package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"overseer/internal/config"
	"overseer/internal/diagnostic"
	"overseer/internal/logging"
)

// serveCmd runs the diagnostic scheduler until interrupted, with the
// engine's tunables hot-reloaded on config file change.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the diagnostic cycle scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		if !engine.Status().Active {
			if err := engine.Initialize(caller()); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		scheduler := diagnostic.NewScheduler(app.cfg.Diagnostic.CycleInterval, func(cycleCtx context.Context) {
			if _, err := engine.RunScheduled(cycleCtx); err != nil {
				logging.Get(logging.CategoryDiagnostic).Error("scheduled cycle failed: %v", err)
			}
		})

		stopWatch, err := config.Watch(configPath, func() {
			cfg, err := config.Load(configPath)
			if err != nil {
				logging.Get(logging.CategoryBoot).Error("config reload failed: %v", err)
				return
			}
			if cfg.Diagnostic.CycleInterval != app.cfg.Diagnostic.CycleInterval {
				logging.Get(logging.CategoryBoot).Warn("cycle_interval change to %s applies on next start",
					cfg.Diagnostic.CycleInterval)
			}
			engine.Reconfigure(cfg.Diagnostic)
			app.cfg = cfg
		})
		if err != nil {
			logging.Get(logging.CategoryBoot).Warn("config watcher unavailable: %v", err)
		} else {
			defer stopWatch()
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := scheduler.Start(); err != nil {
				return err
			}
			<-gctx.Done()
			scheduler.Stop()
			return nil
		})

		fmt.Fprintf(cmd.OutOrStdout(), "overseer serving: cycle every %s (ctrl-c to stop)\n",
			app.cfg.Diagnostic.CycleInterval)
		if err := g.Wait(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "overseer stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
