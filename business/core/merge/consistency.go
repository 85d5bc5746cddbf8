package merge

import (
	"time"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// Consistency walks tu's StopTimeUpdates in order, fills in any missing
// arrival/departure time or delay, and pushes delays forward so that
// stop-event times are monotonically non-decreasing. It returns false
// (rejecting the whole trip-update) if any STU's Order doesn't match its
// position in the list, or if an STU has no derivable arrival time at
// all - the caller must not link a rejected TripUpdate into its
// RealTimeUpdate.
func Consistency(tu *rtmodel.TripUpdate, log Logger) bool {
	var previousTime *time.Time
	var previousDelay *time.Duration

	for i, stu := range tu.StopTimeUpdates {
		if stu.Order != i {
			if log != nil {
				log.Printf("trip update %s dated %s rejected: order mismatch (stu index %d != position %d)",
					tu.VJ.NavitiaTripID, tu.VJ.UTCCirculationDate.Format("2006-01-02"), stu.Order, i)
			}
			return false
		}

		// fill-in: arrival
		if stu.Arrival == nil {
			stu.Arrival = stu.Departure
			if stu.Arrival == nil && previousTime != nil {
				t := *previousTime
				stu.Arrival = &t
			}
			if stu.Arrival == nil {
				if log != nil {
					log.Printf("trip update %s dated %s rejected: stop-time update missing arrival time",
						tu.VJ.NavitiaTripID, tu.VJ.UTCCirculationDate.Format("2006-01-02"))
				}
				return false
			}
			if stu.DelayOrZero(rtmodel.Arrival) == 0 && stu.DelayOrZero(rtmodel.Departure) != 0 {
				stu.ArrivalDelay = stu.DepartureDelay
			}
		}

		// fill-in: departure
		if stu.Departure == nil {
			t := *stu.Arrival
			stu.Departure = &t
			if stu.DelayOrZero(rtmodel.Departure) == 0 && stu.DelayOrZero(rtmodel.Arrival) != 0 {
				stu.DepartureDelay = stu.ArrivalDelay
			}
		}

		if stu.ArrivalDelay == nil {
			zero := time.Duration(0)
			stu.ArrivalDelay = &zero
		}
		if stu.DepartureDelay == nil {
			zero := time.Duration(0)
			stu.DepartureDelay = &zero
		}

		// monotonicity push: arrival
		if !stu.ArrivalStatus.IsDeleted() {
			if previousTime != nil && previousTime.After(*stu.Arrival) {
				delayDiff := *previousDelay - *stu.ArrivalDelay
				newDelay := *stu.ArrivalDelay + delayDiff
				stu.ArrivalDelay = &newDelay
				newArrival := stu.Arrival.Add(delayDiff)
				stu.Arrival = &newArrival
			}
			previousTime = stu.Arrival
			previousDelay = stu.ArrivalDelay
		}

		// monotonicity push: departure
		if !stu.DepartureStatus.IsDeleted() {
			if previousTime != nil && previousTime.After(*stu.Departure) {
				delayDiff := *previousDelay - *stu.DepartureDelay
				newDelay := *stu.DepartureDelay + delayDiff
				stu.DepartureDelay = &newDelay
				newDeparture := stu.Departure.Add(delayDiff)
				stu.Departure = &newDeparture
			}
			previousTime = stu.Departure
			previousDelay = stu.DepartureDelay
		}
	}

	return true
}
