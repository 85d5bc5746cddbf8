// Package gtfsrt decodes a binary GTFS-RT FeedMessage into the
// TripUpdates the merge engine operates on. Grounded on
// kirin/gtfs_rt/gtfs_rt.py's model_maker.handle (ParseFromString then
// walk entities) and on the inverse of business/data/publish's own
// encode.go, which builds the same gtfs.TripUpdate shape in the other
// direction.
package gtfsrt

import (
	"fmt"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// Name is this connector's dispatch key, matching contributor
// configuration's connector-kind field.
const Name = "gtfs-rt"

// Decode parses raw as a GTFS-RT FeedMessage and converts every trip
// update entity into an rtmodel.TripUpdate.
func Decode(raw []byte) ([]*rtmodel.TripUpdate, error) {
	var msg gtfs.FeedMessage
	if err := proto.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid gtfs-rt protobuf: %w", err)
	}

	var updates []*rtmodel.TripUpdate
	for _, entity := range msg.Entity {
		if entity.TripUpdate == nil {
			continue
		}
		updates = append(updates, decodeTripUpdate(entity.TripUpdate))
	}
	return updates, nil
}

func decodeTripUpdate(tu *gtfs.TripUpdate) *rtmodel.TripUpdate {
	trip := tu.GetTrip()

	status := rtmodel.Update
	if trip.GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED {
		status = rtmodel.Delete
	}

	var stus []*rtmodel.StopTimeUpdate
	for _, stu := range tu.StopTimeUpdate {
		stus = append(stus, decodeStopTimeUpdate(stu))
	}

	return &rtmodel.TripUpdate{
		VJ:              &rtmodel.VehicleJourney{NavitiaTripID: trip.GetTripId()},
		StartTimestamp:  startTimestamp(trip),
		Status:          status,
		StopTimeUpdates: stus,
	}
}

func startTimestamp(trip *gtfs.TripDescriptor) int64 {
	date := trip.GetStartDate()
	t := trip.GetStartTime()
	if date == "" {
		return 0
	}
	parsed, err := time.Parse("20060102", date)
	if err != nil {
		return 0
	}
	_ = t // GTFS-RT's start_time isn't needed to key the dated VJ: the circulation date alone does.
	return parsed.Unix()
}

func decodeStopTimeUpdate(stu *gtfs.TripUpdate_StopTimeUpdate) *rtmodel.StopTimeUpdate {
	result := &rtmodel.StopTimeUpdate{
		NavitiaStop: rtmodel.StopPoint{ID: stu.GetStopId()},
		Order:       int(stu.GetStopSequence()),
	}

	if stu.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED {
		result.ArrivalStatus = rtmodel.Delete
		result.DepartureStatus = rtmodel.Delete
		return result
	}

	if ev := stu.GetArrival(); ev != nil {
		t := time.Unix(ev.GetTime(), 0).UTC()
		result.Arrival = &t
		result.ArrivalStatus = rtmodel.Update
		d := time.Duration(ev.GetDelay()) * time.Second
		result.ArrivalDelay = &d
	}
	if ev := stu.GetDeparture(); ev != nil {
		t := time.Unix(ev.GetTime(), 0).UTC()
		result.Departure = &t
		result.DepartureStatus = rtmodel.Update
		d := time.Duration(ev.GetDelay()) * time.Second
		result.DepartureDelay = &d
	}
	return result
}
