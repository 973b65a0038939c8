package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const banner = `
╔══════════════════════════════════════╗
║        Asset Tracker v0.3            ║
║                                      ║
╚══════════════════════════════════════╝
`

var rootCmd = &cobra.Command{
	Use:          "tracker",
	Short:        "Tracks asset prices, flags anomalies and raises strategy alerts",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tracker: %v\n", err)
		os.Exit(1)
	}
}
