package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

func utcDate(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func durP(hms string) *time.Duration {
	t, err := time.Parse("15:04:05", hms)
	if err != nil {
		panic(err)
	}
	v := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
	return &v
}

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

// fakeSchedule always returns the same VJ, regardless of requested trip/date.
type fakeSchedule struct {
	vj *rtmodel.VehicleJourney
}

func (f *fakeSchedule) GetVehicleJourney(ctx context.Context, tripID string, date time.Time) (*rtmodel.VehicleJourney, error) {
	return f.vj, nil
}

// fakeStore is an in-memory persist.Store keyed the same way sqlStore is.
type fakeStore struct {
	byKey map[rtmodel.DatedVJKey]*rtmodel.TripUpdate
	saved int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byKey: map[rtmodel.DatedVJKey]*rtmodel.TripUpdate{}}
}

func (f *fakeStore) FindByDatedVJs(ctx context.Context, keys []rtmodel.DatedVJKey) (map[rtmodel.DatedVJKey]*rtmodel.TripUpdate, error) {
	out := make(map[rtmodel.DatedVJKey]*rtmodel.TripUpdate, len(keys))
	for _, k := range keys {
		if tu, ok := f.byKey[k]; ok {
			out[k] = tu
		}
	}
	return out, nil
}

func (f *fakeStore) SaveRealTimeUpdate(ctx context.Context, rtu *rtmodel.RealTimeUpdate) error {
	f.saved++
	for _, tu := range rtu.TripUpdates {
		f.byKey[tu.Key()] = tu
	}
	return nil
}

type fakeDestination struct {
	published [][]*rtmodel.TripUpdate
	failWith  error
}

func (f *fakeDestination) Publish(updates []*rtmodel.TripUpdate) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.published = append(f.published, updates)
	return nil
}

func arrivalOnlySTU(stopID string, order int, arrDelay time.Duration) *rtmodel.StopTimeUpdate {
	return &rtmodel.StopTimeUpdate{
		NavitiaStop:   rtmodel.StopPoint{ID: stopID},
		Order:         order,
		ArrivalStatus: rtmodel.Update,
		ArrivalDelay:  &arrDelay,
	}
}

func newIncomingTU(vj *rtmodel.VehicleJourney, stus ...*rtmodel.StopTimeUpdate) *rtmodel.TripUpdate {
	return &rtmodel.TripUpdate{
		VJ:              vj,
		StartTimestamp:  vj.UTCCirculationDate.Unix(),
		Status:          rtmodel.Update,
		Contributor:     "test-contributor",
		StopTimeUpdates: stus,
	}
}

func TestCoordinatorHandlePersistsAndPublishes(t *testing.T) {
	vj := fourStopVJ()
	store := newFakeStore()
	dest := &fakeDestination{}
	c := &Coordinator{
		Schedule:    &fakeSchedule{vj: vj},
		Store:       store,
		Destination: dest,
	}

	rtu := &rtmodel.RealTimeUpdate{Connector: "gtfs-rt", Contributor: "test-contributor"}
	incoming := []*rtmodel.TripUpdate{
		newIncomingTU(vj, arrivalOnlySTU("StopR2", 1, 60*time.Second)),
	}

	err := c.Handle(context.Background(), rtu, incoming, false)
	require.NoError(t, err)
	assert.Equal(t, 1, store.saved)
	assert.Len(t, rtu.TripUpdates, 1)
	require.Len(t, dest.published, 1)
	assert.Len(t, dest.published[0], 1)

	stored := store.byKey[rtmodel.DatedVJKey{NavitiaTripID: "R:vj1", StartTimestamp: vj.UTCCirculationDate.Unix()}]
	require.NotNil(t, stored)
	r2 := stored.Find("StopR2", 1)
	require.NotNil(t, r2)
	assert.Equal(t, 60*time.Second, *r2.ArrivalDelay)
}

func TestCoordinatorHandleGrowsExistingTripUpdate(t *testing.T) {
	vj := fourStopVJ()
	store := newFakeStore()
	dest := &fakeDestination{}
	c := &Coordinator{
		Schedule:    &fakeSchedule{vj: vj},
		Store:       store,
		Destination: dest,
	}

	first := &rtmodel.RealTimeUpdate{ID: 1, Connector: "gtfs-rt", Contributor: "test-contributor"}
	require.NoError(t, c.Handle(context.Background(), first, []*rtmodel.TripUpdate{
		newIncomingTU(vj, arrivalOnlySTU("StopR2", 1, 60*time.Second)),
	}, false))

	second := &rtmodel.RealTimeUpdate{ID: 2, Connector: "gtfs-rt", Contributor: "test-contributor"}
	require.NoError(t, c.Handle(context.Background(), second, []*rtmodel.TripUpdate{
		newIncomingTU(vj, arrivalOnlySTU("StopR4", 3, 180*time.Second)),
	}, false))

	key := rtmodel.DatedVJKey{NavitiaTripID: "R:vj1", StartTimestamp: vj.UTCCirculationDate.Unix()}
	stored := store.byKey[key]
	require.NotNil(t, stored)
	assert.NotNil(t, stored.Find("StopR2", 1))
	assert.NotNil(t, stored.Find("StopR4", 3))
	// second RTU linked the same underlying TripUpdate the first one did
	assert.Len(t, stored.RealTimeUpdateIDs, 2)
}

func TestCoordinatorHandleNoChangeSkipsPublish(t *testing.T) {
	vj := fourStopVJ()
	store := newFakeStore()
	dest := &fakeDestination{}
	c := &Coordinator{
		Schedule:    &fakeSchedule{vj: vj},
		Store:       store,
		Destination: dest,
	}

	feed := func() []*rtmodel.TripUpdate {
		return []*rtmodel.TripUpdate{newIncomingTU(vj, arrivalOnlySTU("StopR2", 1, 60*time.Second))}
	}

	require.NoError(t, c.Handle(context.Background(), &rtmodel.RealTimeUpdate{Contributor: "test-contributor"}, feed(), false))
	assert.Len(t, dest.published, 1)

	// identical feed again: no observable change, nothing new to publish
	require.NoError(t, c.Handle(context.Background(), &rtmodel.RealTimeUpdate{Contributor: "test-contributor"}, feed(), false))
	assert.Len(t, dest.published, 1)
	assert.Equal(t, 2, store.saved) // SaveRealTimeUpdate still runs, even with an empty TripUpdates slice
}

func TestCoordinatorHandleSurfacesPublishFailureWithoutLosingPersist(t *testing.T) {
	vj := fourStopVJ()
	store := newFakeStore()
	dest := &fakeDestination{failWith: errBoom}
	c := &Coordinator{
		Schedule:    &fakeSchedule{vj: vj},
		Store:       store,
		Destination: dest,
	}

	rtu := &rtmodel.RealTimeUpdate{Contributor: "test-contributor"}
	incoming := []*rtmodel.TripUpdate{newIncomingTU(vj, arrivalOnlySTU("StopR2", 1, 60*time.Second))}

	err := c.Handle(context.Background(), rtu, incoming, false)
	require.Error(t, err)
	// the merged trip update was already committed before publish was attempted
	assert.Equal(t, 1, store.saved)
	assert.NotNil(t, store.byKey[rtmodel.DatedVJKey{NavitiaTripID: "R:vj1", StartTimestamp: vj.UTCCirculationDate.Unix()}])
}

var errBoom = &boomError{}

type boomError struct{}

func (e *boomError) Error() string { return "boom" }
