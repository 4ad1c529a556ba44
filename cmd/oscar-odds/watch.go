package main

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/oscar-odds/internal/health"
	"github.com/yourusername/oscar-odds/internal/metrics"
	"github.com/yourusername/oscar-odds/internal/scheduler"
)

var (
	watchSchedule string
	watchNow      bool
)

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "Cron schedule (defaults to watch.schedule)")
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "Run once immediately before waiting for the schedule")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the pipeline on a schedule, one output directory per run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		spec := firstNonEmpty(watchSchedule, cfg.Watch.Schedule)
		scorer, err := newScorer(cfg, appLog)
		if err != nil {
			return err
		}

		sched := scheduler.NewScheduler(appLog, time.Hour)
		server := health.NewServer(health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Addr:        cfg.Metrics.ListenAddr,
			Logger:      appLog,
			Metrics:     metrics.Handler(),
			Checks: map[string]health.Checker{
				"scheduler": health.CheckerFunc(func(context.Context) error {
					if !sched.IsRunning() {
						return errors.New("scheduler stopped")
					}
					return nil
				}),
			},
		})

		job := func(jobCtx context.Context) error {
			// each run gets its own directory so earlier base snapshots stay intact
			outDir := filepath.Join(cfg.Pipeline.OutputDir, time.Now().UTC().Format("20060102T150405Z"))
			rep, err := runOnce(jobCtx, cfg, appLog, scorer, outDir)

			status := health.RunStatus{Finished: time.Now().UTC(), OutputDir: outDir}
			if rep != nil {
				status.RunID = rep.RunID.String()
			}
			if err != nil {
				status.Error = err.Error()
			}
			server.RecordRun(status)
			return err
		}
		if err := sched.Schedule("blend", spec, job); err != nil {
			return err
		}

		if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr != "" {
			if err := server.Start(ctx); err != nil {
				return err
			}
		}
		if err := sched.Start(); err != nil {
			return err
		}
		appLog.WithField("next_run", sched.NextRun()).Info("Watching")

		if watchNow {
			if err := job(ctx); err != nil {
				appLog.WithError(err).Error("Initial run failed")
			}
		}

		<-ctx.Done()
		appLog.Info("Shutting down")
		return sched.Stop()
	},
}
