// Package contributor holds the configured set of upstream feed
// contributors: which connector kind each speaks, where to poll it, and
// the per-contributor lock/cache timing knobs. Shaped like the teacher's
// GTFS config block in app/gtfs-monitor/main.go, generalized from one
// hardcoded feed to an arbitrary configured list.
package contributor

import "time"

// Config describes one contributor: its feed endpoint, the connector
// that decodes it, and its polling cadence.
type Config struct {
	ID             string        `conf:"required"`
	ConnectorKind  string        `conf:"required"` // "gtfs-rt" or "ire"
	FeedURL        string        `conf:"required"`
	Token          string        `conf:"noprint"`
	PollInterval   time.Duration `conf:"default:30s"`
	RequestTimeout time.Duration `conf:"default:5s"`
	LockTimeout    time.Duration `conf:"default:1m"`
	CacheTTL       time.Duration `conf:"default:10m"`
}

// Registry is the configured set of contributors this worker serves,
// keyed by ID.
type Registry struct {
	byID map[string]Config
}

// NewRegistry builds a Registry from a configured contributor list.
// Duplicate IDs are rejected: each contributor's polling/lock state is
// keyed on a unique ID, so a collision would silently merge two feeds.
func NewRegistry(configs []Config) (*Registry, error) {
	byID := make(map[string]Config, len(configs))
	for _, c := range configs {
		if _, exists := byID[c.ID]; exists {
			return nil, &DuplicateContributorError{ID: c.ID}
		}
		byID[c.ID] = c
	}
	return &Registry{byID: byID}, nil
}

// Get returns the configuration for id, or false if none is registered.
func (r *Registry) Get(id string) (Config, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// All returns every configured contributor, in no particular order.
func (r *Registry) All() []Config {
	all := make([]Config, 0, len(r.byID))
	for _, c := range r.byID {
		all = append(all, c)
	}
	return all
}

// DuplicateContributorError is returned by NewRegistry when two
// configured contributors share an ID.
type DuplicateContributorError struct {
	ID string
}

func (e *DuplicateContributorError) Error() string {
	return "duplicate contributor id: " + e.ID
}
