package merge

import (
	"time"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

func d(hms string) time.Duration {
	t, err := time.Parse("15:04:05", hms)
	if err != nil {
		panic(err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
}

func durP(hms string) *time.Duration {
	v := d(hms)
	return &v
}

func utcDate(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// fourStopVJ builds the canonical fixture VJ used throughout spec.md §8:
// R:vj1 visiting StopR1..StopR4 at UTC 14:00, 14:30, 15:00, 15:30 on
// 2012-06-15.
func fourStopVJ() *rtmodel.VehicleJourney {
	return &rtmodel.VehicleJourney{
		NavitiaTripID:      "R:vj1",
		UTCCirculationDate: utcDate(2012, time.June, 15),
		StopTimes: []rtmodel.StopTime{
			{StopPoint: rtmodel.StopPoint{ID: "StopR1"}, UTCArrivalTime: durP("14:00:00"), UTCDepartureTime: durP("14:00:00")},
			{StopPoint: rtmodel.StopPoint{ID: "StopR2"}, UTCArrivalTime: durP("14:30:00"), UTCDepartureTime: durP("14:30:00")},
			{StopPoint: rtmodel.StopPoint{ID: "StopR3"}, UTCArrivalTime: durP("15:00:00"), UTCDepartureTime: durP("15:00:00")},
			{StopPoint: rtmodel.StopPoint{ID: "StopR4"}, UTCArrivalTime: durP("15:30:00"), UTCDepartureTime: durP("15:30:00")},
		},
	}
}

func delayUpdateSTU(stopID string, order int, arrDelay, depDelay time.Duration) *rtmodel.StopTimeUpdate {
	return &rtmodel.StopTimeUpdate{
		NavitiaStop:     rtmodel.StopPoint{ID: stopID},
		Order:           order,
		ArrivalStatus:   rtmodel.Update,
		ArrivalDelay:    &arrDelay,
		DepartureStatus: rtmodel.Update,
		DepartureDelay:  &depDelay,
	}
}

func newTripUpdate(vj *rtmodel.VehicleJourney, status rtmodel.ModificationType, stus ...*rtmodel.StopTimeUpdate) *rtmodel.TripUpdate {
	return &rtmodel.TripUpdate{
		VJ:              vj,
		StartTimestamp:  vj.UTCCirculationDate.Unix(),
		Status:          status,
		Contributor:     "test-contributor",
		StopTimeUpdates: stus,
	}
}

type testLogger struct {
	lines []string
}

func (l *testLogger) Printf(format string, v ...interface{}) {
	l.lines = append(l.lines, format)
}
