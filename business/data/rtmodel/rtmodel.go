// Package rtmodel holds the real-time data model shared by the merge
// engine: VehicleJourney (the theoretical schedule), StopTimeUpdate,
// TripUpdate and RealTimeUpdate, along with the ModificationType and
// Event enumerations used throughout business/core/merge.
package rtmodel

import "time"

// ModificationType is the status carried by a StopTimeUpdate event (and,
// restricted to {None,Update,Delete,Add}, by a TripUpdate itself).
type ModificationType string

const (
	None             ModificationType = "none"
	Update           ModificationType = "update"
	Delete           ModificationType = "delete"
	DeletedForDetour ModificationType = "deleted_for_detour"
	Add              ModificationType = "add"
	AddedForDetour   ModificationType = "added_for_detour"
)

// IsDeleted reports whether status represents a deletion, for either a
// whole stop event or (restricted) a whole trip.
func (m ModificationType) IsDeleted() bool {
	return m == Delete || m == DeletedForDetour
}

// IsAdded reports whether status represents an addition.
func (m ModificationType) IsAdded() bool {
	return m == Add || m == AddedForDetour
}

// Event identifies one of the two stop-event sides of a StopTimeUpdate.
// Using a typed enum with direct accessors (Time/Status/Delay below)
// avoids building attribute names like "{event}_status" at runtime.
type Event int

const (
	Arrival Event = iota
	Departure
)

func (e Event) String() string {
	if e == Arrival {
		return "arrival"
	}
	return "departure"
}

// StopPoint identifies a physical stop by its stable reference.
type StopPoint struct {
	ID string
}

// StopTime is one theoretical stop-event pair within a VehicleJourney.
// Either time may be absent (nil) for an origin or terminus stop.
type StopTime struct {
	StopPoint        StopPoint
	UTCArrivalTime   *time.Duration // time-of-day, offset from midnight
	UTCDepartureTime *time.Duration
}

// TimeOfDay returns the stop's time-of-day for the given event, or nil if
// that event has no theoretical time.
func (st *StopTime) TimeOfDay(e Event) *time.Duration {
	if e == Arrival {
		return st.UTCArrivalTime
	}
	return st.UTCDepartureTime
}

// VehicleJourney is the theoretical trip: a stable identifier, an ordered
// list of theoretical stop-times, and the UTC circulation date the trip
// begins on. Immutable within the scope of one merge.
type VehicleJourney struct {
	NavitiaTripID      string
	StopTimes          []StopTime
	UTCCirculationDate time.Time // truncated to midnight UTC
}

// StopTimeUpdate is the real-time state of one stop-event pair within a
// TripUpdate.
type StopTimeUpdate struct {
	NavitiaStop StopPoint
	Order       int

	Arrival       *time.Time
	ArrivalDelay  *time.Duration // nil until computed or filled in by Consistency
	ArrivalStatus ModificationType

	Departure       *time.Time
	DepartureDelay  *time.Duration
	DepartureStatus ModificationType

	Message *string
}

// Time returns the absolute datetime for the given event side.
func (s *StopTimeUpdate) Time(e Event) *time.Time {
	if e == Arrival {
		return s.Arrival
	}
	return s.Departure
}

// SetTime sets the absolute datetime for the given event side.
func (s *StopTimeUpdate) SetTime(e Event, t *time.Time) {
	if e == Arrival {
		s.Arrival = t
	} else {
		s.Departure = t
	}
}

// Delay returns the signed delay for the given event side, which may be
// nil until Consistency fills it in.
func (s *StopTimeUpdate) Delay(e Event) *time.Duration {
	if e == Arrival {
		return s.ArrivalDelay
	}
	return s.DepartureDelay
}

// SetDelay sets the signed delay for the given event side.
func (s *StopTimeUpdate) SetDelay(e Event, d *time.Duration) {
	if e == Arrival {
		s.ArrivalDelay = d
	} else {
		s.DepartureDelay = d
	}
}

// DelayOrZero returns the signed delay for the given event side,
// treating a nil delay as zero.
func (s *StopTimeUpdate) DelayOrZero(e Event) time.Duration {
	d := s.Delay(e)
	if d == nil {
		return 0
	}
	return *d
}

// Status returns the status for the given event side.
func (s *StopTimeUpdate) Status(e Event) ModificationType {
	if e == Arrival {
		return s.ArrivalStatus
	}
	return s.DepartureStatus
}

// SetStatus sets the status for the given event side.
func (s *StopTimeUpdate) SetStatus(e Event, m ModificationType) {
	if e == Arrival {
		s.ArrivalStatus = m
	} else {
		s.DepartureStatus = m
	}
}

// Equal reports whether two StopTimeUpdates carry the same observable
// state (used by the merge orchestrator to detect a no-op update).
func (s *StopTimeUpdate) Equal(other *StopTimeUpdate) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.NavitiaStop.ID != other.NavitiaStop.ID || s.Order != other.Order {
		return false
	}
	if !timeEqual(s.Arrival, other.Arrival) || !timeEqual(s.Departure, other.Departure) {
		return false
	}
	if !delayEqual(s.ArrivalDelay, other.ArrivalDelay) || !delayEqual(s.DepartureDelay, other.DepartureDelay) {
		return false
	}
	if s.ArrivalStatus != other.ArrivalStatus || s.DepartureStatus != other.DepartureStatus {
		return false
	}
	return messageEqual(s.Message, other.Message)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func delayEqual(a, b *time.Duration) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func messageEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DatedVJKey is the identity of a TripUpdate: a navitia trip id dated by
// its circulation's start timestamp.
type DatedVJKey struct {
	NavitiaTripID  string
	StartTimestamp int64
}

// TripUpdate is one real-time view of one dated VehicleJourney.
type TripUpdate struct {
	// ID is the persistence-layer primary key, zero until first saved.
	// Preserving an existing non-zero ID across a merge is how object
	// identity (and update-vs-insert) is maintained.
	ID int64

	VJ             *VehicleJourney
	StartTimestamp int64

	Status      ModificationType // restricted to {None, Update, Delete, Add}
	Effect      string
	Message     *string
	Contributor string

	StopTimeUpdates []*StopTimeUpdate

	// RealTimeUpdateIDs weakly tracks which RTUs have linked this TU.
	RealTimeUpdateIDs []int64
}

// Key returns this TripUpdate's dated-VJ identity.
func (t *TripUpdate) Key() DatedVJKey {
	return DatedVJKey{NavitiaTripID: t.VJ.NavitiaTripID, StartTimestamp: t.StartTimestamp}
}

// Find returns the StopTimeUpdate at the given stop/order, or nil.
func (t *TripUpdate) Find(stopID string, order int) *StopTimeUpdate {
	if t == nil {
		return nil
	}
	for _, stu := range t.StopTimeUpdates {
		if stu.NavitiaStop.ID == stopID && stu.Order == order {
			return stu
		}
	}
	return nil
}

// Deleteable reports whether stopID was previously introduced by an Add
// or AddedForDetour status somewhere in this TripUpdate, and can
// therefore be legally deleted by a later update.
func (t *TripUpdate) Deleteable(stopID string) bool {
	if t == nil {
		return false
	}
	for _, stu := range t.StopTimeUpdates {
		if stu.NavitiaStop.ID != stopID {
			continue
		}
		if stu.ArrivalStatus.IsAdded() || stu.DepartureStatus.IsAdded() {
			return true
		}
	}
	return false
}

// LinkRealTimeUpdate records that rtuID has touched this TripUpdate.
func (t *TripUpdate) LinkRealTimeUpdate(rtuID int64) {
	for _, id := range t.RealTimeUpdateIDs {
		if id == rtuID {
			return
		}
	}
	t.RealTimeUpdateIDs = append(t.RealTimeUpdateIDs, rtuID)
}

// RealTimeUpdate is one ingestion event bundling one or more TripUpdates
// from one contributor.
type RealTimeUpdate struct {
	ID          int64
	RawData     []byte
	Connector   string
	Contributor string
	Timestamp   time.Time

	TripUpdates []*TripUpdate
}

// Link appends tu to this RTU's trip updates and records the back
// reference, unless it is already present.
func (r *RealTimeUpdate) Link(tu *TripUpdate) {
	for _, existing := range r.TripUpdates {
		if existing == tu {
			tu.LinkRealTimeUpdate(r.ID)
			return
		}
	}
	r.TripUpdates = append(r.TripUpdates, tu)
	tu.LinkRealTimeUpdate(r.ID)
}
