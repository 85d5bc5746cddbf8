package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/OpenTransitTools/kirin/business/data/contributor"
	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
	"github.com/OpenTransitTools/kirin/foundation/distlock"
	"github.com/OpenTransitTools/kirin/foundation/httpclient"
	"github.com/OpenTransitTools/kirin/foundation/polltracker"
)

func ptr[T any](v T) *T { return &v }

// encodeSingleTripUpdateFeed builds a minimal GTFS-RT FeedMessage
// carrying one TripUpdate with a single arrival-only stop time update,
// the wire format the poller fetches and the gtfsrt connector decodes.
func encodeSingleTripUpdateFeed(t *testing.T, vj *rtmodel.VehicleJourney, stopID string, order int, arrivalDelay time.Duration) []byte {
	t.Helper()
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: ptr("2.0"), Timestamp: ptr(uint64(vj.UTCCirculationDate.Unix()))},
		Entity: []*gtfs.FeedEntity{
			{
				Id: ptr(vj.NavitiaTripID),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{
						TripId:    ptr(vj.NavitiaTripID),
						StartDate: ptr(vj.UTCCirculationDate.Format("20060102")),
					},
					StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
						{
							StopSequence: ptr(uint32(order)),
							StopId:       ptr(stopID),
							Arrival: &gtfs.TripUpdate_StopTimeEvent{
								Time:  ptr(vj.UTCCirculationDate.Unix()),
								Delay: ptr(int32(arrivalDelay.Seconds())),
							},
						},
					},
				},
			},
		},
	}
	raw, err := proto.Marshal(msg)
	require.NoError(t, err)
	return raw
}

func httpclientInfo(etag string) httpclient.RemoteFileInfo {
	return httpclient.RemoteFileInfo{ETag: etag}
}

// fakeLocker always grants the lock, recording the names it was asked
// to lock, unless told to deny the next attempt.
type fakeLocker struct {
	denyNext bool
	locked   []string
	unlocked []string
}

func (f *fakeLocker) TryLock(ctx context.Context, name string) (distlock.Unlock, bool, error) {
	if f.denyNext {
		f.denyNext = false
		return nil, false, nil
	}
	f.locked = append(f.locked, name)
	unlock := func(ctx context.Context) error {
		f.unlocked = append(f.unlocked, name)
		return nil
	}
	return unlock, true, nil
}

func newTestPoller(reg *contributor.Registry, coord *Coordinator, locks *fakeLocker, fetch FeedFetcher) *Poller {
	return &Poller{
		Contributors: reg,
		Tracker:      polltracker.New(time.Minute),
		Locks:        locks,
		Coordinator:  coord,
		Fetch:        fetch,
	}
}

func mustRegistry(t *testing.T, configs ...contributor.Config) *contributor.Registry {
	t.Helper()
	reg, err := contributor.NewRegistry(configs)
	require.NoError(t, err)
	return reg
}

func TestPollerFetchesDecodesAndHandsOffToCoordinator(t *testing.T) {
	vj := fourStopVJ()
	store := newFakeStore()
	dest := &fakeDestination{}
	coord := &Coordinator{Schedule: &fakeSchedule{vj: vj}, Store: store, Destination: dest}

	reg := mustRegistry(t, contributor.Config{ID: "agency-a", ConnectorKind: "gtfs-rt", FeedURL: "http://example.invalid/feed"})
	locks := &fakeLocker{}
	fetchCalls := 0
	poller := newTestPoller(reg, coord, locks, func(ctx context.Context, feedURL string) ([]byte, error) {
		fetchCalls++
		return encodeSingleTripUpdateFeed(t, vj, "StopR2", 1, 60*time.Second), nil
	})

	require.NoError(t, poller.pollOne(context.Background(), reg.All()[0]))
	assert.Equal(t, 1, fetchCalls)
	assert.Equal(t, 1, store.saved)
	assert.Len(t, locks.locked, 1)
	assert.Len(t, locks.unlocked, 1)
}

func TestPollerSkipsContributorAlreadyLocked(t *testing.T) {
	vj := fourStopVJ()
	coord := &Coordinator{Schedule: &fakeSchedule{vj: vj}, Store: newFakeStore(), Destination: &fakeDestination{}}
	reg := mustRegistry(t, contributor.Config{ID: "agency-a", ConnectorKind: "gtfs-rt", FeedURL: "http://example.invalid/feed"})
	locks := &fakeLocker{denyNext: true}
	fetchCalls := 0
	poller := newTestPoller(reg, coord, locks, func(ctx context.Context, feedURL string) ([]byte, error) {
		fetchCalls++
		return nil, nil
	})

	require.NoError(t, poller.pollOne(context.Background(), reg.All()[0]))
	assert.Equal(t, 0, fetchCalls, "locked-out contributor must not be fetched this cycle")
}

func TestPollerSkipsWhenFeedInfoUnchanged(t *testing.T) {
	vj := fourStopVJ()
	coord := &Coordinator{Schedule: &fakeSchedule{vj: vj}, Store: newFakeStore(), Destination: &fakeDestination{}}
	reg := mustRegistry(t, contributor.Config{ID: "agency-a", ConnectorKind: "gtfs-rt", FeedURL: "http://example.invalid/feed"})
	poller := newTestPoller(reg, coord, &fakeLocker{}, func(ctx context.Context, feedURL string) ([]byte, error) {
		return encodeSingleTripUpdateFeed(t, vj, "StopR2", 1, 60*time.Second), nil
	})

	// Simulate two polls where GetRemoteFileInfo would report the same
	// ETag both times, by seeding lastInfo directly and asserting
	// isNewer's verdict rather than hitting the network in a test.
	info := httpclientInfo("same-etag")
	poller.recordInfo("agency-a", info)
	assert.False(t, poller.isNewer("agency-a", info), "identical ETag must not count as newer")

	changed := httpclientInfo("different-etag")
	assert.True(t, poller.isNewer("agency-a", changed))
}
