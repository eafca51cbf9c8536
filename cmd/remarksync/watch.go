package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/remarksync/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the local directory and sync on changes",
	Long: `Watch runs an initial sync, then observes the local notes
directory and re-syncs whenever a file change settles.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := connectDevice(ctx); err != nil {
		return err
	}

	if cfg.Sync.SyncOnStartup {
		if err := syncOnce(ctx); err != nil {
			return err
		}
	}

	watcher, err := watch.New(cfg.Sync.LocalDir, watch.Config{
		DebounceDelay: cfg.Watch.DebounceDelay,
	}, logger)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	go func() {
		if err := watcher.Run(ctx); err != nil &&
			!errors.Is(err, context.Canceled) && !errors.Is(err, watch.ErrWatcherClosed) {
			printWarning("watcher stopped: %v", err)
		}
	}()

	printInfo("Watching %s, press Ctrl-C to stop", cfg.Sync.LocalDir)

	for {
		select {
		case change := <-watcher.Changes():
			printInfo("Change detected: %s", change.Path)
			if err := syncOnce(ctx); err != nil {
				printWarning("sync failed: %v", err)
			}
			drainChanges(watcher)

		case err := <-watcher.Errors():
			printWarning("watch error: %v", err)

		case <-ctx.Done():
			printInfo("Stopping")
			return nil
		}
	}
}

func syncOnce(ctx context.Context) error {
	summary, err := apiClient.Sync.Sync(ctx)
	if err != nil {
		return err
	}
	printSuccess("Synced %d files (%d up, %d down)",
		summary.TotalFiles, summary.Uploads, summary.Downloads)
	return nil
}

// drainChanges discards changes queued while a sync was running, so a
// burst of edits triggers one follow-up sync instead of several.
func drainChanges(watcher *watch.Watcher) {
	for {
		select {
		case <-watcher.Changes():
		default:
			return
		}
	}
}
