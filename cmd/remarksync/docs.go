package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage documents in the device's document store",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all documents on the device",
	RunE:  withDevice(runDocsList),
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <title>",
	Short: "Delete a document by title",
	Args:  cobra.ExactArgs(1),
	RunE:  withDevice(runDocsDelete),
}

var docsRenameCmd = &cobra.Command{
	Use:   "rename <title> <new-title>",
	Short: "Rename a document",
	Args:  cobra.ExactArgs(2),
	RunE:  withDevice(runDocsRename),
}

var docsDownloadCmd = &cobra.Command{
	Use:   "download <title> <destination>",
	Short: "Download a document's file to a local path",
	Args:  cobra.ExactArgs(2),
	RunE:  withDevice(runDocsDownload),
}

var docsLastReadCmd = &cobra.Command{
	Use:   "last-read",
	Short: "Show the most recently opened document",
	RunE:  withDevice(runDocsLastRead),
}

var docsLastPageCmd = &cobra.Command{
	Use:   "last-page <title>",
	Short: "Show the last page reached in a document",
	Args:  cobra.ExactArgs(1),
	RunE:  withDevice(runDocsLastPage),
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsListCmd, docsDeleteCmd, docsRenameCmd,
		docsDownloadCmd, docsLastReadCmd, docsLastPageCmd)
}

// withDevice wraps a command handler with signal handling and the
// device connection.
func withDevice(run func(ctx context.Context, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := connectDevice(ctx); err != nil {
			return err
		}
		return run(ctx, args)
	}
}

func runDocsList(ctx context.Context, args []string) error {
	listed, err := apiClient.Docs.List(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if flagJSON {
		return printJSON(listed)
	}

	if len(listed) == 0 {
		printInfo("No documents on device")
		return nil
	}
	for _, doc := range listed {
		printInfo("%-38s  %-6s  %s", doc.ID, doc.FileType, doc.Title)
	}
	return nil
}

func runDocsDelete(ctx context.Context, args []string) error {
	id, err := apiClient.Docs.FindByTitle(ctx, args[0])
	if err != nil {
		return err
	}
	if err := apiClient.Docs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	printSuccess("Deleted %q (%s)", args[0], id)
	return nil
}

func runDocsRename(ctx context.Context, args []string) error {
	id, err := apiClient.Docs.FindByTitle(ctx, args[0])
	if err != nil {
		return err
	}
	if err := apiClient.Docs.Rename(ctx, id, args[1]); err != nil {
		return fmt.Errorf("rename document: %w", err)
	}
	printSuccess("Renamed %q to %q", args[0], args[1])
	return nil
}

func runDocsDownload(ctx context.Context, args []string) error {
	id, err := apiClient.Docs.FindByTitle(ctx, args[0])
	if err != nil {
		return err
	}
	if err := apiClient.Docs.Download(ctx, id, args[1]); err != nil {
		return fmt.Errorf("download document: %w", err)
	}
	printSuccess("Downloaded %q to %s", args[0], args[1])
	return nil
}

func runDocsLastRead(ctx context.Context, args []string) error {
	doc, err := apiClient.Docs.LastRead(ctx)
	if err != nil {
		return fmt.Errorf("find last read document: %w", err)
	}
	if flagJSON {
		return printJSON(doc)
	}
	printInfo("%s (%s)", doc.Title, doc.ID)
	return nil
}

func runDocsLastPage(ctx context.Context, args []string) error {
	page, err := apiClient.Docs.LastPage(ctx, args[0])
	if err != nil {
		return fmt.Errorf("read last page: %w", err)
	}
	if flagJSON {
		return printJSON(map[string]interface{}{"title": args[0], "page": page})
	}
	printInfo("%s: page %d", args[0], page)
	return nil
}
