package merge

import (
	"time"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// eventUpdate computes the (time, status, delay) triple for one event
// side of a StopTimeUpdate candidate, given the theoretical base time and
// the incoming status/delay for that side. The incoming delay is always
// a concrete value (buildSTU passes DelayOrZero, so a missing delay
// arrives as zero), so the result delay is always non-nil.
func eventUpdate(base *time.Time, status rtmodel.ModificationType, delay time.Duration) (*time.Time, rtmodel.ModificationType, time.Duration) {
	switch {
	case status == rtmodel.Update:
		if base == nil {
			return nil, rtmodel.Update, delay
		}
		t := base.Add(delay)
		return &t, rtmodel.Update, delay
	case status.IsDeleted():
		return nil, status, 0
	case status.IsAdded():
		return base, status, 0
	default:
		return base, rtmodel.None, 0
	}
}

// buildSTU computes the canonical arrival/departure times, delays and
// statuses for one theoretical stop, given the base schedule times
// (nil where the event isn't served), the previous stop's resulting
// departure (for monotonicity), the incoming STU, the stop point and its
// position.
func buildSTU(baseArrival, baseDeparture *time.Time, lastDeparture *time.Time, new *rtmodel.StopTimeUpdate, stop rtmodel.StopPoint, order int) *rtmodel.StopTimeUpdate {
	arr, arrStatus, arrDelay := eventUpdate(baseArrival, new.ArrivalStatus, new.DelayOrZero(rtmodel.Arrival))
	dep, depStatus, depDelay := eventUpdate(baseDeparture, new.DepartureStatus, new.DelayOrZero(rtmodel.Departure))

	// close gaps
	if arr == nil {
		if dep != nil {
			arr = dep
		} else {
			arr = lastDeparture
		}
	}
	if dep == nil {
		dep = arr
	}

	if lastDeparture != nil && arr != nil && lastDeparture.After(*arr) {
		arrDelay += lastDeparture.Sub(*arr)
		arr = lastDeparture
	}
	if arr != nil && dep != nil && arr.After(*dep) {
		depDelay += arr.Sub(*dep)
		dep = arr
	}

	return &rtmodel.StopTimeUpdate{
		NavitiaStop:     stop,
		Order:           order,
		Arrival:         arr,
		ArrivalDelay:    &arrDelay,
		ArrivalStatus:   arrStatus,
		Departure:       dep,
		DepartureDelay:  &depDelay,
		DepartureStatus: depStatus,
		Message:         new.Message,
	}
}
