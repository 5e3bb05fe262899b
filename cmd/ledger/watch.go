package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-ledger/internal/domain/export"
	"github.com/FACorreiaa/statement-ledger/internal/domain/ingest"
	"github.com/FACorreiaa/statement-ledger/pkg/cron"
)

var (
	watchDir      string
	watchOut      string
	watchFormat   string
	watchUser     string
	watchSchedule string
	watchRules    string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a drop folder and process statement PDFs on a schedule",
	Long: `Watch sweeps a drop folder on a cron schedule. Every PDF found is
parsed with bank auto-detection, exported next to the folder and
archived. Processed files move to processed/, unparseable ones to
failed/; files rejected by the monthly quota stay in place and are
retried on a later sweep.

The process runs until interrupted; Ctrl-C drains running jobs before
exiting.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchDir, "dir", "",
		"drop folder to watch (default WATCH_DIR)")
	watchCmd.Flags().StringVar(&watchOut, "out", "",
		"directory receiving exported ledgers (default <dir>/ledgers)")
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "csv",
		"export format: csv, xlsx or json")
	watchCmd.Flags().StringVar(&watchUser, "user", "",
		"caller id (UUID) for quota accounting")
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "",
		"sweep cron schedule (default WATCH_SCHEDULE)")
	watchCmd.Flags().StringVar(&watchRules, "rules", "",
		"categorization rules file (overrides RULES_PATH)")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	deps, err := InitDependencies(watchRules)
	if err != nil {
		return err
	}

	format, ok := export.ParseFormat(watchFormat)
	if !ok {
		return fmt.Errorf("unsupported format %q (csv, xlsx or json)", watchFormat)
	}
	userID, err := parseUserID(watchUser)
	if err != nil {
		return err
	}

	dir := deps.Config.Watch.Dir
	if watchDir != "" {
		dir = watchDir
	}
	schedule := deps.Config.Watch.Schedule
	if watchSchedule != "" {
		schedule = watchSchedule
	}

	archive, err := deps.OpenArchive()
	if err != nil {
		return err
	}

	sweeper := ingest.NewSweeper(deps.Parser, ingest.Config{
		Dir:    dir,
		OutDir: watchOut,
		Format: format,
		UserID: userID,
	}, deps.Logger).WithArchive(archive)

	scheduler := cron.NewScheduler(sweeper, deps.Tracker, cron.Config{
		SweepSchedule: schedule,
		PruneSchedule: deps.Config.Watch.PruneSchedule,
		RetentionDays: deps.Config.Watch.RetentionDays,
	}, deps.Logger)

	if err := scheduler.Start(); err != nil {
		return err
	}
	// Files already waiting should not sit until the first tick.
	scheduler.RunNow()

	deps.Logger.Info("watching drop folder", "dir", dir, "schedule", schedule, "format", format)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	<-scheduler.Stop().Done()
	deps.Logger.Info("watch stopped")
	return nil
}
