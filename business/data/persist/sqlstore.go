package persist

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// schema is applied with CREATE TABLE IF NOT EXISTS on every Open, the way
// tidbyt-gtfs's SQLiteStorage bootstraps its own tables. It is written
// against SQLite syntax; OpenPostgres translates the handful of type
// differences (BLOB -> BYTEA, AUTOINCREMENT -> handled by a SEQUENCE) by
// running a Postgres-flavored variant instead.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS real_time_update (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    connector TEXT NOT NULL,
    contributor TEXT NOT NULL,
    raw_data BLOB,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS trip_update (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    navitia_trip_id TEXT NOT NULL,
    start_timestamp INTEGER NOT NULL,
    status TEXT NOT NULL,
    effect TEXT NOT NULL,
    message TEXT,
    contributor TEXT NOT NULL,
    UNIQUE (navitia_trip_id, start_timestamp)
);

CREATE TABLE IF NOT EXISTS trip_update_rtu (
    trip_update_id INTEGER NOT NULL,
    real_time_update_id INTEGER NOT NULL,
    PRIMARY KEY (trip_update_id, real_time_update_id)
);

CREATE TABLE IF NOT EXISTS stop_time_update (
    trip_update_id INTEGER NOT NULL,
    stop_order INTEGER NOT NULL,
    stop_id TEXT NOT NULL,
    arrival TIMESTAMP,
    arrival_delay_seconds INTEGER,
    arrival_status TEXT NOT NULL,
    departure TIMESTAMP,
    departure_delay_seconds INTEGER,
    departure_status TEXT NOT NULL,
    message TEXT,
    PRIMARY KEY (trip_update_id, stop_order)
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS real_time_update (
    id BIGSERIAL PRIMARY KEY,
    connector TEXT NOT NULL,
    contributor TEXT NOT NULL,
    raw_data BYTEA,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS trip_update (
    id BIGSERIAL PRIMARY KEY,
    navitia_trip_id TEXT NOT NULL,
    start_timestamp BIGINT NOT NULL,
    status TEXT NOT NULL,
    effect TEXT NOT NULL,
    message TEXT,
    contributor TEXT NOT NULL,
    UNIQUE (navitia_trip_id, start_timestamp)
);

CREATE TABLE IF NOT EXISTS trip_update_rtu (
    trip_update_id BIGINT NOT NULL,
    real_time_update_id BIGINT NOT NULL,
    PRIMARY KEY (trip_update_id, real_time_update_id)
);

CREATE TABLE IF NOT EXISTS stop_time_update (
    trip_update_id BIGINT NOT NULL,
    stop_order INT NOT NULL,
    stop_id TEXT NOT NULL,
    arrival TIMESTAMPTZ,
    arrival_delay_seconds BIGINT,
    arrival_status TEXT NOT NULL,
    departure TIMESTAMPTZ,
    departure_delay_seconds BIGINT,
    departure_status TEXT NOT NULL,
    message TEXT,
    PRIMARY KEY (trip_update_id, stop_order)
);
`

// sqlStore implements Store over a *sqlx.DB, using only sqlx/database-sql
// portable constructs so the same code runs against either driver.
type sqlStore struct {
	db *sqlx.DB
}

// tripUpdateRow and stopTimeUpdateRow mirror the teacher's style of a
// `db:"..."`-tagged row struct per table (business/data/gtfs/trip.go,
// gtfs.go's DataSet).
type tripUpdateRow struct {
	ID             int64   `db:"id"`
	NavitiaTripID  string  `db:"navitia_trip_id"`
	StartTimestamp int64   `db:"start_timestamp"`
	Status         string  `db:"status"`
	Effect         string  `db:"effect"`
	Message        *string `db:"message"`
	Contributor    string  `db:"contributor"`
}

type stopTimeUpdateRow struct {
	TripUpdateID           int64      `db:"trip_update_id"`
	StopOrder              int       `db:"stop_order"`
	StopID                 string     `db:"stop_id"`
	Arrival                *time.Time `db:"arrival"`
	ArrivalDelaySeconds    *int64     `db:"arrival_delay_seconds"`
	ArrivalStatus          string     `db:"arrival_status"`
	Departure              *time.Time `db:"departure"`
	DepartureDelaySeconds  *int64     `db:"departure_delay_seconds"`
	DepartureStatus        string     `db:"departure_status"`
	Message                *string    `db:"message"`
}

func (s *sqlStore) FindByDatedVJs(ctx context.Context, keys []rtmodel.DatedVJKey) (map[rtmodel.DatedVJKey]*rtmodel.TripUpdate, error) {
	result := make(map[rtmodel.DatedVJKey]*rtmodel.TripUpdate)
	if len(keys) == 0 {
		return result, nil
	}

	tripIDs := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k.NavitiaTripID] {
			seen[k.NavitiaTripID] = true
			tripIDs = append(tripIDs, k.NavitiaTripID)
		}
	}

	query, args, err := sqlx.In("SELECT * FROM trip_update WHERE navitia_trip_id IN (?)", tripIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building dated-VJ bulk lookup query")
	}
	query = s.db.Rebind(query)

	var rows []tripUpdateRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "loading trip updates by dated VJ")
	}

	wanted := make(map[rtmodel.DatedVJKey]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	for _, row := range rows {
		key := rtmodel.DatedVJKey{NavitiaTripID: row.NavitiaTripID, StartTimestamp: row.StartTimestamp}
		if !wanted[key] {
			continue
		}
		tu, err := s.hydrateTripUpdate(ctx, row)
		if err != nil {
			return nil, err
		}
		result[key] = tu
	}
	return result, nil
}

func (s *sqlStore) hydrateTripUpdate(ctx context.Context, row tripUpdateRow) (*rtmodel.TripUpdate, error) {
	var stuRows []stopTimeUpdateRow
	err := s.db.SelectContext(ctx, &stuRows,
		s.db.Rebind("SELECT * FROM stop_time_update WHERE trip_update_id = ? ORDER BY stop_order"),
		row.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "loading stop time updates for trip update %d", row.ID)
	}

	var rtuIDs []int64
	err = s.db.SelectContext(ctx, &rtuIDs,
		s.db.Rebind("SELECT real_time_update_id FROM trip_update_rtu WHERE trip_update_id = ?"),
		row.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "loading real-time update links for trip update %d", row.ID)
	}

	stus := make([]*rtmodel.StopTimeUpdate, 0, len(stuRows))
	for _, r := range stuRows {
		stus = append(stus, &rtmodel.StopTimeUpdate{
			NavitiaStop:     rtmodel.StopPoint{ID: r.StopID},
			Order:           r.StopOrder,
			Arrival:         r.Arrival,
			ArrivalDelay:    secondsToDuration(r.ArrivalDelaySeconds),
			ArrivalStatus:   rtmodel.ModificationType(r.ArrivalStatus),
			Departure:       r.Departure,
			DepartureDelay:  secondsToDuration(r.DepartureDelaySeconds),
			DepartureStatus: rtmodel.ModificationType(r.DepartureStatus),
			Message:         r.Message,
		})
	}

	return &rtmodel.TripUpdate{
		ID:                row.ID,
		StartTimestamp:    row.StartTimestamp,
		Status:            rtmodel.ModificationType(row.Status),
		Effect:            row.Effect,
		Message:           row.Message,
		Contributor:       row.Contributor,
		StopTimeUpdates:   stus,
		RealTimeUpdateIDs: rtuIDs,
		VJ:                &rtmodel.VehicleJourney{NavitiaTripID: row.NavitiaTripID},
	}, nil
}

func secondsToDuration(s *int64) *time.Duration {
	if s == nil {
		return nil
	}
	d := time.Duration(*s) * time.Second
	return &d
}

func durationToSeconds(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	s := int64(*d / time.Second)
	return &s
}

// SaveRealTimeUpdate implements Store. Grounded on handler.py's persist():
// one transaction commits the RealTimeUpdate row and every TripUpdate it
// links, regardless of how many trips the feed touched.
func (s *sqlStore) SaveRealTimeUpdate(ctx context.Context, rtu *rtmodel.RealTimeUpdate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning persistence transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if rtu.ID == 0 {
		insert := tx.Rebind(`INSERT INTO real_time_update (connector, contributor, raw_data, created_at)
			VALUES (?, ?, ?, ?) RETURNING id`)
		if err := tx.QueryRowxContext(ctx, insert, rtu.Connector, rtu.Contributor, rtu.RawData, rtu.Timestamp).Scan(&rtu.ID); err != nil {
			return errors.Wrap(err, "inserting real time update")
		}
	}

	for _, tu := range rtu.TripUpdates {
		if err := saveTripUpdate(ctx, tx, tu); err != nil {
			return err
		}
		link := tx.Rebind(`INSERT INTO trip_update_rtu (trip_update_id, real_time_update_id)
			VALUES (?, ?)`)
		if _, err := tx.ExecContext(ctx, link, tu.ID, rtu.ID); err != nil {
			return errors.Wrapf(err, "linking trip update %d to real time update %d", tu.ID, rtu.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing persistence transaction")
	}
	return nil
}

func saveTripUpdate(ctx context.Context, tx *sqlx.Tx, tu *rtmodel.TripUpdate) error {
	var message *string
	if tu.Message != nil {
		m := *tu.Message
		message = &m
	}

	if tu.ID == 0 {
		insert := tx.Rebind(`INSERT INTO trip_update
			(navitia_trip_id, start_timestamp, status, effect, message, contributor)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
		if err := tx.QueryRowxContext(ctx, insert,
			tu.VJ.NavitiaTripID, tu.StartTimestamp, string(tu.Status), tu.Effect, message, tu.Contributor,
		).Scan(&tu.ID); err != nil {
			return errors.Wrapf(err, "inserting trip update for %s", tu.VJ.NavitiaTripID)
		}
	} else {
		update := tx.Rebind(`UPDATE trip_update SET status = ?, effect = ?, message = ?, contributor = ?
			WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, update, string(tu.Status), tu.Effect, message, tu.Contributor, tu.ID); err != nil {
			return errors.Wrapf(err, "updating trip update %d", tu.ID)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM stop_time_update WHERE trip_update_id = ?"), tu.ID); err != nil {
			return errors.Wrapf(err, "clearing stop time updates for trip update %d", tu.ID)
		}
	}

	insertSTU := tx.Rebind(`INSERT INTO stop_time_update
		(trip_update_id, stop_order, stop_id, arrival, arrival_delay_seconds, arrival_status,
		 departure, departure_delay_seconds, departure_status, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, stu := range tu.StopTimeUpdates {
		_, err := tx.ExecContext(ctx, insertSTU,
			tu.ID, stu.Order, stu.NavitiaStop.ID,
			stu.Arrival, durationToSeconds(stu.ArrivalDelay), string(stu.ArrivalStatus),
			stu.Departure, durationToSeconds(stu.DepartureDelay), string(stu.DepartureStatus),
			stu.Message)
		if err != nil {
			return errors.Wrapf(err, "inserting stop time update %s/%d", stu.NavitiaStop.ID, stu.Order)
		}
	}
	return nil
}
