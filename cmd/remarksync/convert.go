package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/remarksync/internal/models"
)

var convertCmd = &cobra.Command{
	Use:   "convert <path>",
	Short: "Convert markdown to PDF without syncing",
	Long: `Convert renders a markdown file, or every markdown file in a
directory, to PDF. The device is not contacted.`,
	Example: `  remarksync convert notes/diary.md
  remarksync convert notes/ --out pdf/`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var (
	convertOut   string
	convertTitle string
)

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "",
		"Output directory (defaults to the configured PDF directory)")
	convertCmd.Flags().StringVarP(&convertTitle, "title", "t", "",
		"Document title (single file only, defaults to the first heading)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	source := args[0]
	outDir := convertOut
	if outDir == "" {
		outDir = cfg.Sync.PDFOutputDir
	}

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("stat %s: %w", source, err)
	}

	if info.IsDir() {
		outputs, err := apiClient.Convert.ConvertDir(source, outDir)
		if err != nil {
			return fmt.Errorf("convert directory: %w", err)
		}
		for _, out := range outputs {
			printSuccess("%s", out)
		}
		printInfo("Converted %d files", len(outputs))
		return nil
	}

	if !models.IsMarkdownPath(source) {
		return fmt.Errorf("not a markdown file: %s", source)
	}

	out, err := apiClient.Convert.Convert(source, outDir, convertTitle)
	if err != nil {
		return fmt.Errorf("convert %s: %w", source, err)
	}
	printSuccess("%s", out)
	return nil
}
