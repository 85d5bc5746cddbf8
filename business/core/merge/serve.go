package merge

import "github.com/OpenTransitTools/kirin/business/data/rtmodel"

// servedEvent decides whether event e at theoretical stop st (at position
// order) is served, given the incoming STU new (may be nil) and the DB
// TripUpdate db (may be nil).
//
// The most recent explicit decision wins: new, if present, settles it.
// Absent that, the same stop-time in the previously stored TripUpdate
// settles it. Absent that too, fall back to whether the theoretical
// schedule itself carries a time for this event.
func servedEvent(st *rtmodel.StopTime, order int, e rtmodel.Event, new *rtmodel.StopTimeUpdate, db *rtmodel.TripUpdate) bool {
	if new != nil {
		return !new.Status(e).IsDeleted()
	}
	if db != nil {
		if dbSTU := db.Find(st.StopPoint.ID, order); dbSTU != nil {
			return !dbSTU.Status(e).IsDeleted()
		}
	}
	return st.TimeOfDay(e) != nil
}
