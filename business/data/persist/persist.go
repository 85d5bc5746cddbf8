// Package persist stores and retrieves TripUpdates and RealTimeUpdates.
// It exposes a Store interface backed by either Postgres (pgx/sqlx,
// production) or SQLite (mattn/go-sqlite3, tests and single-binary
// replay), grounded on the teacher's own sqlx usage in
// business/data/gtfs and on tidbyt-gtfs's dual-backend storage split.
package persist

import (
	"context"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// Store is the persistence boundary the ingestion coordinator (C7) needs:
// bulk lookup of prior TripUpdates keyed by dated VJ, and a single
// transactional save of one RealTimeUpdate plus all the TripUpdates it
// touched.
type Store interface {
	// FindByDatedVJs bulk-loads the currently stored TripUpdate for each
	// key that has one. Keys with no stored TripUpdate are simply absent
	// from the result map.
	FindByDatedVJs(ctx context.Context, keys []rtmodel.DatedVJKey) (map[rtmodel.DatedVJKey]*rtmodel.TripUpdate, error)

	// SaveRealTimeUpdate persists rtu and every TripUpdate it links, in a
	// single transaction: rtu.RawData plus the recorded merge outcome for
	// each linked trip. A TripUpdate with ID == 0 is inserted and its new
	// ID is recorded back onto the struct; a non-zero ID is updated in
	// place, preserving the identity Merge relies on.
	SaveRealTimeUpdate(ctx context.Context, rtu *rtmodel.RealTimeUpdate) error
}
