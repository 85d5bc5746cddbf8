// Package web is kirind's inbound HTTP surface: GET /gtfs_rt lists the
// configured contributors and their last ingestion status, and
// POST /gtfs_rt/{contributor_id} accepts one raw feed push from a
// contributor and runs it through the ingestion coordinator. Shaped
// after app/gtfs-tripupdate-svc/tripupdate/web_service.go's
// createServer/runWebService pair, generalized from one hardcoded feed
// endpoint to a contributor-keyed router.
package web

import (
	"encoding/json"
	"io"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/OpenTransitTools/kirin/business/core/ingest"
	"github.com/OpenTransitTools/kirin/business/data/connector"
	"github.com/OpenTransitTools/kirin/business/data/contributor"
	"github.com/OpenTransitTools/kirin/business/data/rtmodel"
)

// status is the operational visibility recorded per contributor after
// each ingestion, matching spec.md §6's "report last RTU timestamp and
// trip-update count" requirement.
type status struct {
	LastReceived    time.Time `json:"last_received"`
	LastTripUpdates int       `json:"last_trip_update_count"`
	LastError       string    `json:"last_error,omitempty"`
}

// statusBoard is a thread safe map of contributor id to its last status,
// the same addTripUpdate/updateList locking shape as the teacher's
// updateCollection.
type statusBoard struct {
	mu sync.Mutex
	m  map[string]status
}

func newStatusBoard() *statusBoard {
	return &statusBoard{m: make(map[string]status)}
}

func (b *statusBoard) record(id string, s status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[id] = s
}

func (b *statusBoard) get(id string) (status, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.m[id]
	return s, ok
}

// Handler holds the dependencies needed to serve contributor feed
// ingestion over HTTP.
type Handler struct {
	Log          *logger.Logger
	Contributors *contributor.Registry
	Coordinator  *ingest.Coordinator
	board        *statusBoard
}

// NewHandler builds a Handler, grounded on the teacher's
// makeGtfsTripUpdateHandler factory.
func NewHandler(log *logger.Logger, contributors *contributor.Registry, coord *ingest.Coordinator) *Handler {
	return &Handler{
		Log:          log,
		Contributors: contributors,
		Coordinator:  coord,
		board:        newStatusBoard(),
	}
}

// Router builds the mux.Router serving GET /gtfs_rt and
// POST /gtfs_rt/{contributor_id}.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/gtfs_rt", h.list).Methods(http.MethodGet)
	r.HandleFunc("/gtfs_rt/{contributor_id}", h.ingest).Methods(http.MethodPost)
	return r
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		ID            string `json:"id"`
		ConnectorKind string `json:"connector_kind"`
		status
	}
	var out []entry
	for _, cfg := range h.Contributors.All() {
		s, _ := h.board.get(cfg.ID)
		out = append(out, entry{ID: cfg.ID, ConnectorKind: cfg.ConnectorKind, status: s})
	}
	writeJSON(w, out)
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["contributor_id"]
	cfg, ok := h.Contributors.Get(id)
	if !ok {
		http.Error(w, "unknown contributor "+id, http.StatusNotFound)
		return
	}

	defer r.Body.Close()
	raw, err := readAll(r)
	if err != nil {
		http.Error(w, "reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	incoming, err := connector.Decode(cfg.ConnectorKind, raw)
	if err != nil {
		h.board.record(id, status{LastReceived: time.Now(), LastError: err.Error()})
		http.Error(w, "decoding feed: "+err.Error(), http.StatusBadRequest)
		return
	}

	rtu := &rtmodel.RealTimeUpdate{
		RawData:     raw,
		Connector:   cfg.ConnectorKind,
		Contributor: id,
		Timestamp:   time.Now(),
	}

	if err := h.Coordinator.Handle(r.Context(), rtu, incoming, true); err != nil {
		h.Log.Printf("ingesting feed for contributor %s: %v", id, err)
		h.board.record(id, status{LastReceived: rtu.Timestamp, LastTripUpdates: len(rtu.TripUpdates), LastError: err.Error()})
		http.Error(w, "publishing merged feed: "+err.Error(), http.StatusBadGateway)
		return
	}

	h.board.record(id, status{LastReceived: rtu.Timestamp, LastTripUpdates: len(rtu.TripUpdates)})
	w.WriteHeader(http.StatusAccepted)
}

func readAll(r *http.Request) ([]byte, error) {
	return io.ReadAll(r.Body)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response: "+err.Error(), http.StatusInternalServerError)
	}
}

// createServer mirrors the teacher's createServer: a configured
// *http.Server with Slowloris-resistant timeouts wrapping the mux router.
func createServer(handler http.Handler, port int) *http.Server {
	return &http.Server{
		Addr:         strings.Join([]string{"0.0.0.0", strconv.Itoa(port)}, ":"),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
		Handler:      handler,
	}
}

// Run starts the HTTP server and blocks until shutdown is signaled or
// the listener fails, mirroring the teacher's runWebService.
func (h *Handler) Run(port int, shutdown <-chan struct{}) error {
	srv := createServer(h.Router(), port)
	h.Log.Printf("starting gtfs_rt ingress on port %d", port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-shutdown:
		h.Log.Printf("shutting down gtfs_rt ingress")
		return srv.Close()
	}
}
