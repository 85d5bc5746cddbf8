// Package connector dispatches raw upstream bytes to the decoder
// registered for a contributor's connector kind, grounded on
// kirin/gtfs_rt/gtfs_rt.py's model_maker dispatch (one decode function
// per upstream format, selected by the contributor's configured type).
package connector

import (
	"fmt"

	"github.com/OpenTransitTools/kirin/business/data/connector/gtfsrt"
	"github.com/OpenTransitTools/kirin/business/data/connector/ire"
	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// Decoder turns one upstream feed payload into the TripUpdates it
// describes.
type Decoder func(raw []byte) ([]*rtmodel.TripUpdate, error)

// registry maps a contributor's configured connector kind to its
// decoder. Both registered kinds ship with this module; a contributor
// naming anything else fails decode with a clear error rather than
// silently dropping the feed.
var registry = map[string]Decoder{
	gtfsrt.Name: gtfsrt.Decode,
	ire.Name:    ire.Decode,
}

// Decode looks up kind's decoder and runs it over raw.
func Decode(kind string, raw []byte) ([]*rtmodel.TripUpdate, error) {
	decode, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("no connector registered for kind %q", kind)
	}
	return decode(raw)
}
