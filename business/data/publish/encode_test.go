package publish

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

func TestBuildFeedMessageEncodesStopTimeUpdates(t *testing.T) {
	is := is.New(t)

	arrival := time.Date(2012, time.June, 15, 14, 31, 0, 0, time.UTC)
	delay := 60 * time.Second

	tu := &rtmodel.TripUpdate{
		VJ:     &rtmodel.VehicleJourney{NavitiaTripID: "R:vj1", UTCCirculationDate: time.Date(2012, time.June, 15, 0, 0, 0, 0, time.UTC)},
		Status: rtmodel.Update,
		StopTimeUpdates: []*rtmodel.StopTimeUpdate{
			{
				NavitiaStop:     rtmodel.StopPoint{ID: "StopR2"},
				Order:           1,
				Arrival:         &arrival,
				ArrivalDelay:    &delay,
				ArrivalStatus:   rtmodel.Update,
				Departure:       &arrival,
				DepartureDelay:  &delay,
				DepartureStatus: rtmodel.None,
			},
		},
	}

	msg := BuildFeedMessage(1339768260, []*rtmodel.TripUpdate{tu})
	is.Equal(len(msg.Entity), 1)

	entity := msg.Entity[0]
	is.Equal(*entity.Id, "R:vj1")
	is.True(entity.TripUpdate != nil)
	is.Equal(*entity.TripUpdate.Trip.TripId, "R:vj1")
	is.Equal(*entity.TripUpdate.Trip.StartDate, "20120615")
	is.Equal(len(entity.TripUpdate.StopTimeUpdate), 1)

	stu := entity.TripUpdate.StopTimeUpdate[0]
	is.Equal(*stu.StopId, "StopR2")
	is.Equal(*stu.StopSequence, uint32(1))
	is.True(stu.Arrival != nil)
	is.Equal(*stu.Arrival.Delay, int32(60))
	is.True(stu.Departure != nil)
	is.Equal(*stu.Departure.Delay, int32(60))
}

func TestBuildFeedMessageSkipsDeletedStops(t *testing.T) {
	is := is.New(t)

	tu := &rtmodel.TripUpdate{
		VJ:     &rtmodel.VehicleJourney{NavitiaTripID: "R:vj1", UTCCirculationDate: time.Date(2012, time.June, 15, 0, 0, 0, 0, time.UTC)},
		Status: rtmodel.Update,
		StopTimeUpdates: []*rtmodel.StopTimeUpdate{
			{NavitiaStop: rtmodel.StopPoint{ID: "StopR3"}, Order: 2, ArrivalStatus: rtmodel.Delete, DepartureStatus: rtmodel.Delete},
		},
	}

	msg := BuildFeedMessage(1339768260, []*rtmodel.TripUpdate{tu})
	stu := msg.Entity[0].TripUpdate.StopTimeUpdate[0]
	is.Equal(*stu.ScheduleRelationship, gtfs.TripUpdate_StopTimeUpdate_SKIPPED)
	is.True(stu.Arrival == nil)
	is.True(stu.Departure == nil)
}
