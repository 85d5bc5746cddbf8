package contributor

import (
	"testing"

	"github.com/matryer/is"
)

func TestNewRegistryRejectsDuplicateIDs(t *testing.T) {
	is := is.New(t)
	_, err := NewRegistry([]Config{
		{ID: "c1", ConnectorKind: "gtfs-rt", FeedURL: "http://a"},
		{ID: "c1", ConnectorKind: "ire", FeedURL: "http://b"},
	})
	is.True(err != nil)
	var dup *DuplicateContributorError
	is.True(asDuplicate(err, &dup))
	is.Equal(dup.ID, "c1")
}

func asDuplicate(err error, target **DuplicateContributorError) bool {
	d, ok := err.(*DuplicateContributorError)
	if ok {
		*target = d
	}
	return ok
}

func TestRegistryGet(t *testing.T) {
	is := is.New(t)
	reg, err := NewRegistry([]Config{{ID: "c1", ConnectorKind: "gtfs-rt", FeedURL: "http://a"}})
	is.NoErr(err)

	cfg, ok := reg.Get("c1")
	is.True(ok)
	is.Equal(cfg.ConnectorKind, "gtfs-rt")

	_, ok = reg.Get("missing")
	is.True(!ok)
}
