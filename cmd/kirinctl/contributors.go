package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTransitTools/kirin/business/data/contributor"
)

var contributorsCmd = &cobra.Command{
	Use:   "contributors",
	Short: "Print the contributor this invocation is configured for",
	RunE:  listContributors,
}

func listContributors(cmd *cobra.Command, args []string) error {
	reg, err := contributor.NewRegistry([]contributor.Config{
		{ID: contributorID, ConnectorKind: connectorKind, FeedURL: "(set per invocation with --db/--schedule-csv/replay|poll)"},
	})
	if err != nil {
		return err
	}
	for _, cfg := range reg.All() {
		fmt.Printf("%s\t%s\t%s\n", cfg.ID, cfg.ConnectorKind, cfg.FeedURL)
	}
	return nil
}
