package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTransitTools/kirin/business/data/connector"
	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

var pollTimeout time.Duration

var pollCmd = &cobra.Command{
	Use:   "poll <feed-url>",
	Short: "Fetch a feed URL once and merge it, the way gtfs_poller does on a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  poll,
}

func init() {
	pollCmd.Flags().DurationVar(&pollTimeout, "timeout", 5*time.Second, "HTTP request timeout")
}

func poll(cmd *cobra.Command, args []string) error {
	feedURL := args[0]

	client := &http.Client{Timeout: pollTimeout}
	start := time.Now()
	resp, err := client.Get(feedURL)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", feedURL, err)
	}
	defer resp.Body.Close()
	fmt.Printf("fetched %s in %s (status %d)\n", feedURL, time.Since(start), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %d", feedURL, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
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

	if err := coord.Handle(context.Background(), rtu, incoming, false); err != nil {
		return fmt.Errorf("handling feed: %w", err)
	}

	fmt.Printf("merged %d trip update(s) for contributor %s\n", len(rtu.TripUpdates), contributorID)
	return nil
}
