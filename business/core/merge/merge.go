// Package merge implements the Trip-Update Merge and Consistency Engine:
// given a theoretical vehicle journey, an optional previously stored
// trip-update, and an incoming trip-update, it produces the canonical
// merged trip-update (Merge) and then enforces physical-time consistency
// across its stop-time updates (Consistency).
package merge

import (
	"time"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// Logger is the minimal logging capability the merge engine needs to
// surface non-fatal warnings (UndeletableStop, MissingStopPoint). A
// *log.Logger satisfies this directly.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Merge combines the theoretical vj, the previously stored db trip-update
// (may be nil) and the incoming new trip-update into one canonical result.
//
// The result is always either db or new, mutated in place - never a fresh
// third object - so persistence-layer identity is preserved. If nothing
// about the result changed relative to what is already stored, Merge
// returns nil as a sentinel meaning the caller should skip persistence
// linkage for this trip.
//
// isNewComplete selects C4's iteration mode: false walks the theoretical
// VJ (new is expected to be a partial update); true walks new's own STUs,
// treating a nil new.Message as authoritative ("back to normal") rather
// than "no new information".
func Merge(vj *rtmodel.VehicleJourney, db *rtmodel.TripUpdate, new *rtmodel.TripUpdate, isNewComplete bool, log Logger) *rtmodel.TripUpdate {
	res := db
	if res == nil {
		res = new
	}

	res.Status = new.Status
	res.Contributor = new.Contributor
	if new.Message != nil || isNewComplete {
		res.Message = new.Message
	}

	if res.Status == rtmodel.Delete {
		res.StopTimeUpdates = nil
		return res
	}

	warn := func(kind, message string) {
		if log != nil {
			log.Printf("trip update %s dated %s: %s: %s",
				new.VJ.NavitiaTripID, new.VJ.UTCCirculationDate.Format("2006-01-02"), kind, message)
		}
	}

	entries := iterateStops(vj, new, db, isNewComplete, warn)

	var lastEventTime *time.Duration
	var lastDeparture *time.Time
	workingDate := vj.UTCCirculationDate
	hasChanges := false
	result := make([]*rtmodel.StopTimeUpdate, 0, len(entries))

	for _, entry := range entries {
		stop := entry.Stop
		order := entry.Order
		stopID := stop.StopPoint.ID
		newSt := new.Find(stopID, order)

		var baseArrival, baseDeparture *time.Time

		if servedEvent(stop, order, rtmodel.Arrival, newSt, db) {
			if tod := stop.UTCArrivalTime; tod != nil {
				if lastEventTime != nil && *lastEventTime > *tod {
					workingDate = workingDate.AddDate(0, 0, 1)
				}
				t := combine(workingDate, *tod)
				baseArrival = &t
			}
			lastEventTime = stop.UTCArrivalTime
		}

		if servedEvent(stop, order, rtmodel.Departure, newSt, db) {
			if tod := stop.UTCDepartureTime; tod != nil {
				if lastEventTime != nil && *lastEventTime > *tod {
					workingDate = workingDate.AddDate(0, 0, 1)
				}
				t := combine(workingDate, *tod)
				baseDeparture = &t
			}
			lastEventTime = stop.UTCDepartureTime
		}

		var resSt *rtmodel.StopTimeUpdate
		switch {
		case db != nil && newSt != nil:
			dbSt := db.Find(stopID, order)
			candidate := buildSTU(baseArrival, baseDeparture, lastDeparture, newSt, stop.StopPoint, order)
			hasChanges = hasChanges || dbSt == nil || !dbSt.Equal(candidate)
			if hasChanges {
				resSt = candidate
			} else {
				resSt = dbSt
			}

		case db == nil && newSt != nil:
			hasChanges = true
			resSt = buildSTU(baseArrival, baseDeparture, lastDeparture, newSt, stop.StopPoint, order)

		case db != nil && newSt == nil:
			dbSt := db.Find(stopID, order)
			if dbSt != nil {
				resSt = dbSt
			} else {
				resSt = minimalSTU(stop.StopPoint, order, baseArrival, baseDeparture)
			}
			hasChanges = hasChanges || dbSt == nil

		default:
			hasChanges = true
			resSt = minimalSTU(stop.StopPoint, order, baseArrival, baseDeparture)
		}

		lastDeparture = resSt.Departure
		result = append(result, resSt)
	}

	res.Effect = new.Effect

	if hasChanges {
		res.StopTimeUpdates = result
		return res
	}
	return nil
}

// minimalSTU builds a StopTimeUpdate carrying only theoretical times, no
// real-time information at all: both statuses None and both delays zero.
func minimalSTU(stop rtmodel.StopPoint, order int, arrival, departure *time.Time) *rtmodel.StopTimeUpdate {
	zero := time.Duration(0)
	return &rtmodel.StopTimeUpdate{
		NavitiaStop:     stop,
		Order:           order,
		Arrival:         arrival,
		ArrivalDelay:    &zero,
		ArrivalStatus:   rtmodel.None,
		Departure:       departure,
		DepartureDelay:  &zero,
		DepartureStatus: rtmodel.None,
	}
}
