package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
	"github.com/TheMichaelB/remarksync/internal/services/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the local notes directory with the device",
	Long: `Sync compares the local directory against the device's sync
directory and transfers whichever side changed. Markdown files are
converted to PDF and registered in the document store on upload.`,
	Example: `  remarksync sync
  remarksync sync --dry-run`,
	RunE: runSync,
}

var (
	syncDryRun   bool
	syncPassword string
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false,
		"Show the plan without transferring anything")
	syncCmd.Flags().StringVarP(&syncPassword, "password", "p", "",
		"Device SSH password (will prompt if not provided)")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := connectDevice(ctx); err != nil {
		return err
	}

	if syncDryRun {
		return showPlan(ctx)
	}

	go reportEvents(apiClient.Sync.Events())

	summary, err := apiClient.Sync.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if flagJSON {
		return printJSON(summary)
	}

	printSuccess("Sync complete: %d files, %d uploaded, %d downloaded",
		summary.TotalFiles, summary.Uploads, summary.Downloads)
	if summary.Conflicts > 0 {
		printWarning("%d conflicts skipped, resolve them locally", summary.Conflicts)
	}
	if summary.Errors > 0 {
		printWarning("%d files failed, see the log for details", summary.Errors)
	}
	return nil
}

func showPlan(ctx context.Context) error {
	items, err := apiClient.Sync.Scan(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(items)
	}

	pending := 0
	for _, item := range items {
		if item.Operation == models.OpSkip {
			continue
		}
		pending++
		printInfo("%-8s  %s", item.Operation, item.Path)
	}
	if pending == 0 {
		printSuccess("Everything up to date")
	} else {
		printInfo("%d of %d files need transfer", pending, len(items))
	}
	return nil
}

func reportEvents(events <-chan sync.Event) {
	for event := range events {
		switch event.Type {
		case sync.EventItemComplete:
			if !flagJSON {
				printInfo("%-8s  %s", event.Item.Operation, event.Item.Path)
			}
		case sync.EventItemError:
			printWarning("failed: %s (%v)", event.Item.Path, event.Error)
		}
	}
}

// connectDevice establishes the SSH session, prompting for a password
// when the config and flags carry none.
func connectDevice(ctx context.Context) error {
	ctx = events.WithDevice(ctx, cfg.Device.Host)
	if syncPassword != "" {
		cfg.Device.Password = syncPassword
	}
	if cfg.Device.Password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Printf("Password for %s@%s: ", cfg.Device.User, cfg.Device.Host)
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		cfg.Device.Password = string(raw)
	}

	if err := apiClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect to device: %w", err)
	}
	return nil
}
