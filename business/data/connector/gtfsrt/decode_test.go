package gtfsrt

import (
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/matryer/is"
	"google.golang.org/protobuf/proto"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

func ptr[T any](v T) *T { return &v }

func TestDecodeRoundTripsArrivalDelay(t *testing.T) {
	is := is.New(t)

	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: ptr("2.0"), Timestamp: ptr(uint64(1339768260))},
		Entity: []*gtfs.FeedEntity{
			{
				Id: ptr("R:vj1"),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{TripId: ptr("R:vj1"), StartDate: ptr("20120615")},
					StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
						{
							StopSequence: ptr(uint32(1)),
							StopId:       ptr("StopR2"),
							Arrival:      &gtfs.TripUpdate_StopTimeEvent{Time: ptr(int64(1339770660)), Delay: ptr(int32(60))},
						},
					},
				},
			},
		},
	}

	raw, err := proto.Marshal(msg)
	is.NoErr(err)

	updates, err := Decode(raw)
	is.NoErr(err)
	is.Equal(len(updates), 1)

	tu := updates[0]
	is.Equal(tu.VJ.NavitiaTripID, "R:vj1")
	is.Equal(tu.Status, rtmodel.Update)
	is.Equal(len(tu.StopTimeUpdates), 1)

	stu := tu.StopTimeUpdates[0]
	is.Equal(stu.NavitiaStop.ID, "StopR2")
	is.Equal(stu.Order, 1)
	is.Equal(stu.ArrivalStatus, rtmodel.Update)
	is.Equal(*stu.ArrivalDelay, 60*time.Second)
}

func TestDecodeSkippedStopBecomesDeleted(t *testing.T) {
	is := is.New(t)

	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: ptr("2.0"), Timestamp: ptr(uint64(1339768260))},
		Entity: []*gtfs.FeedEntity{
			{
				Id: ptr("R:vj1"),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{TripId: ptr("R:vj1"), StartDate: ptr("20120615")},
					StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
						{StopSequence: ptr(uint32(2)), StopId: ptr("StopR3"), ScheduleRelationship: ptr(gtfs.TripUpdate_StopTimeUpdate_SKIPPED)},
					},
				},
			},
		},
	}

	raw, err := proto.Marshal(msg)
	is.NoErr(err)

	updates, err := Decode(raw)
	is.NoErr(err)

	stu := updates[0].StopTimeUpdates[0]
	is.Equal(stu.ArrivalStatus, rtmodel.Delete)
	is.Equal(stu.DepartureStatus, rtmodel.Delete)
}
