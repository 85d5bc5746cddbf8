// Package publish encodes merged TripUpdates into a GTFS-RT FeedMessage
// and publishes it to downstream subscribers. Grounded on
// app/gtfs-tripupdate-svc/tripupdate/web_service.go's buildFeedMessage/
// makeTripUpdateFeedEntity for the encode shape, and kasmar00's
// polish_trains_gtfs/realtime/fact/fact.go for using the MobilityData
// bindings package directly instead of a hand-generated proto package.
package publish

import (
	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

func ptr[T any](v T) *T { return &v }

// BuildFeedMessage encodes the given TripUpdates, as of now (unix
// seconds), into one incremental GTFS-RT FeedMessage.
func BuildFeedMessage(now uint64, updates []*rtmodel.TripUpdate) *gtfs.FeedMessage {
	incrementality := gtfs.FeedHeader_DIFFERENTIAL
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: ptr("2.0"),
			Incrementality:      &incrementality,
			Timestamp:           &now,
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(updates)),
	}
	for _, tu := range updates {
		msg.Entity = append(msg.Entity, makeFeedEntity(tu))
	}
	return msg
}

func makeFeedEntity(tu *rtmodel.TripUpdate) *gtfs.FeedEntity {
	entity := &gtfs.FeedEntity{
		Id: ptr(entityID(tu)),
	}

	if tu.Status.IsDeleted() {
		entity.IsDeleted = ptr(true)
	}

	entity.TripUpdate = &gtfs.TripUpdate{
		Trip: &gtfs.TripDescriptor{
			TripId:               ptr(tu.VJ.NavitiaTripID),
			StartDate:            ptr(tu.VJ.UTCCirculationDate.Format("20060102")),
			ScheduleRelationship: ptr(tripScheduleRelationship(tu.Status)),
		},
	}
	entity.TripUpdate.StopTimeUpdate = make([]*gtfs.TripUpdate_StopTimeUpdate, 0, len(tu.StopTimeUpdates))
	for _, stu := range tu.StopTimeUpdates {
		entity.TripUpdate.StopTimeUpdate = append(entity.TripUpdate.StopTimeUpdate, makeStopTimeUpdate(stu))
	}

	return entity
}

func entityID(tu *rtmodel.TripUpdate) string {
	return tu.VJ.NavitiaTripID
}

func tripScheduleRelationship(status rtmodel.ModificationType) gtfs.TripDescriptor_ScheduleRelationship {
	if status.IsDeleted() {
		return gtfs.TripDescriptor_CANCELED
	}
	return gtfs.TripDescriptor_SCHEDULED
}

func makeStopTimeUpdate(stu *rtmodel.StopTimeUpdate) *gtfs.TripUpdate_StopTimeUpdate {
	g := &gtfs.TripUpdate_StopTimeUpdate{
		StopSequence: ptr(uint32(stu.Order)),
		StopId:       ptr(stu.NavitiaStop.ID),
	}

	if stu.ArrivalStatus.IsDeleted() && stu.DepartureStatus.IsDeleted() {
		g.ScheduleRelationship = ptr(gtfs.TripUpdate_StopTimeUpdate_SKIPPED)
		return g
	}
	g.ScheduleRelationship = ptr(gtfs.TripUpdate_StopTimeUpdate_SCHEDULED)

	if !stu.ArrivalStatus.IsDeleted() && stu.Arrival != nil {
		g.Arrival = &gtfs.TripUpdate_StopTimeEvent{
			Time:  ptr(stu.Arrival.Unix()),
			Delay: ptr(int32(stu.DelayOrZero(rtmodel.Arrival) / 1e9)),
		}
	}
	if !stu.DepartureStatus.IsDeleted() && stu.Departure != nil {
		g.Departure = &gtfs.TripUpdate_StopTimeEvent{
			Time:  ptr(stu.Departure.Unix()),
			Delay: ptr(int32(stu.DelayOrZero(rtmodel.Departure) / 1e9)),
		}
	}

	return g
}
