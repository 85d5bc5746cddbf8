package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTransitTools/kirin/business/data/connector"
	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

var replayIsComplete bool

var replayCmd = &cobra.Command{
	Use:   "replay <feed-file>",
	Short: "Decode and merge a previously captured feed file",
	Args:  cobra.ExactArgs(1),
	RunE:  replay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayIsComplete, "complete", false, "treat the feed as carrying a complete trip (Mode B), not a partial update (Mode A)")
}

func replay(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	incoming, err := connector.Decode(connectorKind, raw)
	if err != nil {
		return fmt.Errorf("decoding feed: %w", err)
	}

	coord, err := buildCoordinator()
	if err != nil {
		return err
	}

	rtu := &rtmodel.RealTimeUpdate{
		RawData:     raw,
		Connector:   connectorKind,
		Contributor: contributorID,
		Timestamp:   time.Now(),
	}

	if err := coord.Handle(context.Background(), rtu, incoming, replayIsComplete); err != nil {
		return fmt.Errorf("handling feed: %w", err)
	}

	fmt.Printf("merged %d trip update(s) for contributor %s\n", len(rtu.TripUpdates), contributorID)
	return nil
}
