// Package scheduleclient resolves a navitia trip id and circulation date
// to the theoretical VehicleJourney the merge engine needs. It pins the
// spec's GetVehicleJourney(tripID, date) interface and provides a
// CSV-backed implementation for tests and offline replay, grounded on
// tidbyt-gtfs/parse/stop_times.go's gocsv row-parsing style.
package scheduleclient

import (
	"context"
	"fmt"
	"time"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// Client resolves theoretical VehicleJourneys, the way the original
// Kirin polling task calls into navitia_wrapper.Navitia.instance(...).
type Client interface {
	GetVehicleJourney(ctx context.Context, tripID string, date time.Time) (*rtmodel.VehicleJourney, error)
}

// CachedClient wraps another Client with the query-cache/publish-date-cache
// TTL knobs named in spec.md §6, implemented as a small in-process TTL
// map (see cache.go) rather than golang/groupcache - see DESIGN.md for why.
type CachedClient struct {
	inner Client
	cache *ttlCache
}

func NewCachedClient(inner Client, ttl time.Duration) *CachedClient {
	return &CachedClient{inner: inner, cache: newTTLCache(ttl)}
}

func (c *CachedClient) GetVehicleJourney(ctx context.Context, tripID string, date time.Time) (*rtmodel.VehicleJourney, error) {
	key := fmt.Sprintf("%s@%s", tripID, date.Format("20060102"))
	if v, ok := c.cache.get(key); ok {
		return v.(*rtmodel.VehicleJourney), nil
	}
	vj, err := c.inner.GetVehicleJourney(ctx, tripID, date)
	if err != nil {
		return nil, err
	}
	c.cache.set(key, vj)
	return vj, nil
}
