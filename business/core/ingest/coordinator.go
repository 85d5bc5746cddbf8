// Package ingest implements C7, the ingestion coordinator: given one
// RealTimeUpdate carrying one or more incoming TripUpdates, it bulk-loads
// the previously stored TripUpdate for each, merges and checks
// consistency, persists the result in one transaction, and finally
// publishes - a publish failure is surfaced to the caller but never
// rolls back the persisted data. Grounded on kirin/core/handler.py's
// handle()/persist()/publish().
package ingest

import (
	"context"
	"time"

	"github.com/OpenTransitTools/kirin/business/core/merge"
	"github.com/OpenTransitTools/kirin/business/data/persist"
	"github.com/OpenTransitTools/kirin/business/data/publish"
	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
	"github.com/OpenTransitTools/kirin/business/data/scheduleclient"
)

// Logger is the minimal logging capability the coordinator needs. A
// *log.Logger, and merge.Logger, satisfy this directly.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Coordinator wires together schedule lookup, the merge engine,
// persistence and outbound publish for one contributor's incoming feeds.
type Coordinator struct {
	Schedule    scheduleclient.Client
	Store       persist.Store
	Destination publish.Destination
	Log         Logger
	Now         func() time.Time
}

// Handle merges, persists and publishes one RealTimeUpdate's incoming
// TripUpdates. isNewComplete selects C4's iteration mode: gtfs-rt feeds
// are typically complete per trip, while the ire connector sends partial
// updates against the theoretical schedule. Handle takes it as a
// parameter since that choice is a property of the incoming feed, not of
// the coordinator.
func (c *Coordinator) Handle(ctx context.Context, rtu *rtmodel.RealTimeUpdate, incoming []*rtmodel.TripUpdate, isNewComplete bool) error {
	keys := make([]rtmodel.DatedVJKey, 0, len(incoming))
	for _, tu := range incoming {
		if tu.StartTimestamp == 0 && tu.VJ != nil {
			tu.StartTimestamp = tu.VJ.UTCCirculationDate.Unix()
		}
		keys = append(keys, rtmodel.DatedVJKey{NavitiaTripID: tu.VJ.NavitiaTripID, StartTimestamp: tu.StartTimestamp})
	}

	existing, err := c.Store.FindByDatedVJs(ctx, keys)
	if err != nil {
		return err
	}

	var merged []*rtmodel.TripUpdate
	for _, tu := range incoming {
		key := rtmodel.DatedVJKey{NavitiaTripID: tu.VJ.NavitiaTripID, StartTimestamp: tu.StartTimestamp}
		db := existing[key]

		vj, err := c.Schedule.GetVehicleJourney(ctx, tu.VJ.NavitiaTripID, tu.VJ.UTCCirculationDate)
		if err != nil {
			c.logf("trip update %s dated %s: can't resolve theoretical vehicle journey: %v",
				tu.VJ.NavitiaTripID, tu.VJ.UTCCirculationDate.Format("2006-01-02"), err)
			continue
		}

		result := merge.Merge(vj, db, tu, isNewComplete, c.Log)
		if result == nil {
			continue // no observable change: nothing to persist or publish for this trip
		}
		if !merge.Consistency(result, c.Log) {
			continue // rejected trip update: never linked to this RealTimeUpdate
		}

		rtu.Link(result)
		merged = append(merged, result)
	}

	if err := c.Store.SaveRealTimeUpdate(ctx, rtu); err != nil {
		return err
	}

	if c.Destination == nil || len(merged) == 0 {
		return nil
	}
	if err := c.Destination.Publish(merged); err != nil {
		return &merge.PublishFailureError{Contributor: rtu.Contributor, Cause: err}
	}
	return nil
}

func (c *Coordinator) logf(format string, v ...interface{}) {
	if c.Log != nil {
		c.Log.Printf(format, v...)
	}
}
