package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
)

func printSuccess(format string, args ...interface{}) {
	green.Printf("✓ "+format+"\n", args...)
}

func printInfo(format string, args ...interface{}) {
	cyan.Printf(format+"\n", args...)
}

func printWarning(format string, args ...interface{}) {
	yellow.Printf("⚠ "+format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	red.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatBytes renders a byte count in human units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
