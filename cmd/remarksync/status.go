package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/remarksync/internal/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last sync snapshot",
	RunE:  runStatus,
}

var statusReset bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusReset, "reset", false,
		"Discard the stored snapshot so the next sync starts fresh")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusReset {
		if err := apiClient.State.Reset(client.DefaultProfile); err != nil {
			return fmt.Errorf("reset snapshot: %w", err)
		}
		printSuccess("Snapshot cleared")
		return nil
	}

	snapshot, err := apiClient.Sync.LastSnapshot()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snapshot == nil {
		printInfo("No sync has run yet")
		return nil
	}

	if flagJSON {
		return printJSON(snapshot)
	}

	printInfo("Last sync:  %s", snapshot.LastSyncTime.Format("2006-01-02 15:04:05"))
	printInfo("Version:    %d", snapshot.Version)
	printInfo("Files:      %d", len(snapshot.Files))
	if snapshot.LastError != "" {
		printWarning("Last error: %s", snapshot.LastError)
	}

	var total int64
	for _, record := range snapshot.Files {
		total += record.Size
	}
	printInfo("Total size: %s", formatBytes(total))
	return nil
}
