package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/runner"
	"github.com/spigell/job-alert/internal/scheduler"
	"github.com/spigell/job-alert/internal/storage"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run every active user on a cron schedule until interrupted",
	Run: func(cmd *cobra.Command, _ []string) {
		schedule(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().Bool("dry-run", false, "log the emails instead of sending them")
	scheduleCmd.Flags().Bool("skip-first", false, "wait for the first tick instead of running immediately")
}

func schedule(cmd *cobra.Command) {
	ctx, logger, config, store := commandContext(cmd)
	defer store.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	skipFirst, _ := cmd.Flags().GetBool("skip-first")

	r, closeRunner, err := newRunner(ctx, config, store, runner.RunTypeScheduled, dryRun, 0, logger)
	if err != nil {
		logger.Fatal("creating the runner", zap.Error(err))
	}
	defer closeRunner()

	s, err := scheduler.New(scheduler.Config{
		Spec:          config.Schedule.Cron,
		IntervalHours: config.Schedule.EveryHours,
		RunOnStart:    !skipFirst,
	}, func(ctx context.Context) error {
		report, err := r.RunAll(ctx)
		if err != nil {
			return err
		}
		if report.Failed() {
			return fmt.Errorf("%d of %d users failed", report.Count(storage.StatusError), len(report.Results))
		}
		return nil
	}, logger)
	if err != nil {
		logger.Fatal("creating the scheduler", zap.Error(err))
	}

	if err := s.Start(ctx); err != nil {
		logger.Fatal("starting the scheduler", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("exiting", zap.String("reason", "interrupted"))
	s.Stop()
}
