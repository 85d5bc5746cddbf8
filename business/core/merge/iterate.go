package merge

import (
	"time"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// stopIterEntry is one (order, theoretical stop) pair produced by one of
// the two iteration strategies below.
type stopIterEntry struct {
	Order int
	Stop  *rtmodel.StopTime
}

// warnFunc receives the warnings C4 is required to surface: UndeletableStop
// and MissingStopPoint. The merge orchestrator supplies a function that
// logs them; neither aborts iteration.
type warnFunc func(kind, message string)

// iterateStops produces the finite, restartable sequence of
// (order, theoretical stop) pairs the merge orchestrator walks.
//
// Mode A (isNewComplete == false): walk the theoretical VJ's stop-times in
// order - the incoming update is expected to touch a subset of these.
//
// Mode B (isNewComplete == true): walk the incoming update's STUs,
// resolving each to a theoretical stop by id, synthesizing a "fake"
// theoretical stop for legitimate additions and permitted deletions, and
// skipping (with a warning) anything else.
func iterateStops(vj *rtmodel.VehicleJourney, newTU *rtmodel.TripUpdate, dbTU *rtmodel.TripUpdate, isNewComplete bool, warn warnFunc) []stopIterEntry {
	if !isNewComplete {
		entries := make([]stopIterEntry, 0, len(vj.StopTimes))
		for i := range vj.StopTimes {
			entries = append(entries, stopIterEntry{Order: i, Stop: &vj.StopTimes[i]})
		}
		return entries
	}

	var entries []stopIterEntry
	for order, stu := range newTU.StopTimeUpdates {
		if vjStop := findStopInVJ(vj, stu.NavitiaStop.ID); vjStop != nil {
			entries = append(entries, stopIterEntry{Order: order, Stop: vjStop})
			continue
		}

		if stu.ArrivalStatus.IsAdded() || stu.DepartureStatus.IsAdded() {
			entries = append(entries, stopIterEntry{Order: order, Stop: synthesizeStop(stu)})
			continue
		}

		if stu.ArrivalStatus.IsDeleted() || stu.DepartureStatus.IsDeleted() {
			if dbTU != nil && dbTU.Deleteable(stu.NavitiaStop.ID) {
				entries = append(entries, stopIterEntry{Order: order, Stop: synthesizeStop(stu)})
			} else {
				warn("UndeletableStop", (&UndeletableStopError{NavitiaTripID: vj.NavitiaTripID, StopID: stu.NavitiaStop.ID}).Error())
			}
			continue
		}
		// neither found in the VJ, nor an add, nor a (permitted) delete:
		// no theoretical stop can be derived for this entry.
		warn("MissingStopPoint", (&MissingStopPointError{NavitiaTripID: vj.NavitiaTripID, Order: order}).Error())
	}
	return entries
}

// findStopInVJ returns the theoretical stop-time for stopID within vj, or
// nil.
func findStopInVJ(vj *rtmodel.VehicleJourney, stopID string) *rtmodel.StopTime {
	for i := range vj.StopTimes {
		if vj.StopTimes[i].StopPoint.ID == stopID {
			return &vj.StopTimes[i]
		}
	}
	return nil
}

// synthesizeStop builds a "fake" theoretical stop for an added or
// permitted-deleted STU, using the STU's own stop-point reference and
// times-of-day extracted from its arrival/departure.
func synthesizeStop(stu *rtmodel.StopTimeUpdate) *rtmodel.StopTime {
	return &rtmodel.StopTime{
		StopPoint:        stu.NavitiaStop,
		UTCArrivalTime:   extractUTCTimeOfDay(stu.Arrival),
		UTCDepartureTime: extractUTCTimeOfDay(stu.Departure),
	}
}

// extractUTCTimeOfDay returns the UTC time-of-day component of t as a
// duration since midnight, converting from whatever timezone t carries.
func extractUTCTimeOfDay(t *time.Time) *time.Duration {
	if t == nil {
		return nil
	}
	u := t.UTC()
	d := time.Duration(u.Hour())*time.Hour +
		time.Duration(u.Minute())*time.Minute +
		time.Duration(u.Second())*time.Second
	return &d
}
