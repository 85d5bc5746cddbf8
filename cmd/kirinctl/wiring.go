package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/OpenTransitTools/kirin/business/core/ingest"
	"github.com/OpenTransitTools/kirin/business/data/persist"
	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
	"github.com/OpenTransitTools/kirin/business/data/scheduleclient"
)

// consoleDestination prints the merged feed as JSON instead of publishing
// it to a broker, for single-binary operator use.
type consoleDestination struct{}

func (consoleDestination) Publish(updates []*rtmodel.TripUpdate) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(updates)
}

// buildCoordinator wires a Coordinator over the configured sqlite store
// and CSV schedule, the same way cmd/kirind wires one over Postgres and
// NATS, but scoped to what an operator's one-shot invocation needs.
func buildCoordinator() (*ingest.Coordinator, error) {
	if scheduleCSV == "" {
		return nil, fmt.Errorf("--schedule-csv is required")
	}

	store, err := persist.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", dbPath, err)
	}

	f, err := os.Open(scheduleCSV)
	if err != nil {
		return nil, fmt.Errorf("opening schedule csv %s: %w", scheduleCSV, err)
	}
	defer f.Close()

	csvClient, err := scheduleclient.LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule csv %s: %w", scheduleCSV, err)
	}

	return &ingest.Coordinator{
		Schedule:    csvClient,
		Store:       store,
		Destination: consoleDestination{},
	}, nil
}
