// Command kirinctl is an operator CLI for kirind: replay a captured feed
// file against a local store, trigger one manual poll of a feed URL, or
// print the contributor this invocation is configured for. Shaped after
// tidbyt-gtfs's cmd/main.go cobra command tree (persistent flags on a
// root command, one subcommand file per verb).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "kirinctl",
	Short:        "Operator tool for the kirin trip update merge service",
	SilenceUsage: true,
}

var (
	dbPath        string
	scheduleCSV   string
	contributorID string
	connectorKind string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", ":memory:", "sqlite database path (use :memory: for a throwaway store)")
	rootCmd.PersistentFlags().StringVar(&scheduleCSV, "schedule-csv", "", "stop_times.txt shaped CSV file backing the theoretical schedule lookup")
	rootCmd.PersistentFlags().StringVar(&contributorID, "contributor-id", "cli", "contributor id to attribute ingested feeds to")
	rootCmd.PersistentFlags().StringVar(&connectorKind, "connector", "gtfs-rt", "connector kind decoding the feed (gtfs-rt or ire)")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(contributorsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
