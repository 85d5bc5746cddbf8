package publish

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"

	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// Destination is where an encoded feed is sent once merge+consistency
// completes for a RealTimeUpdate, mirroring the teacher's
// predictionPublicationDestination interface.
type Destination interface {
	Publish(updates []*rtmodel.TripUpdate) error
}

// NATSDestination sends the encoded FeedMessage as a serialized protocol
// buffer on a NATS subject, the way natsPredictionPublicationDestination
// sends JSON-encoded gtfs.TripUpdates.
type NATSDestination struct {
	Conn    *nats.Conn
	Subject string
	Now     func() uint64
}

func (n *NATSDestination) Publish(updates []*rtmodel.TripUpdate) error {
	msg := BuildFeedMessage(n.Now(), updates)
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling feed message: %w", err)
	}
	return n.Conn.Publish(n.Subject, data)
}
