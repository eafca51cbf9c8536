package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/remarksync/internal/client"
	"github.com/TheMichaelB/remarksync/internal/config"
	"github.com/TheMichaelB/remarksync/internal/events"
)

var rootCmd = &cobra.Command{
	Use:   "remarksync",
	Short: "Sync markdown notes with a reMarkable tablet",
	Long: `Remarksync mirrors a local directory of markdown notes to a
reMarkable tablet over SSH, optionally converting markdown to PDF and
registering the PDFs in the device's document store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initClient(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if apiClient != nil {
			return apiClient.Close()
		}
		return nil
	},
}

var (
	cfg       *config.Config
	logger    *events.Logger
	apiClient *client.Client

	flagConfig  string
	flagJSON    bool
	flagVerbose bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "",
		"Path to config file")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false,
		"Output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"Enable debug logging")
}

// initClient loads config and builds the service graph. Commands that
// manage configuration only (like config init) skip this by setting
// the skipClient annotation.
func initClient(cmd *cobra.Command) error {
	if cmd.Annotations["skipClient"] == "true" {
		return nil
	}

	loaded, err := config.NewLoader(flagConfig).Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagVerbose {
		loaded.Log.Level = "debug"
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := loaded.EnsureDirectories(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	cfg = loaded

	logger, err = events.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	events.SetDefault(logger)

	apiClient, err = client.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	return nil
}
