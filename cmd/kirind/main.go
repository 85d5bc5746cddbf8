package main

import (
	"context"
	"fmt"
	"io"
	logger "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"

	"github.com/OpenTransitTools/kirin/business/core/ingest"
	"github.com/OpenTransitTools/kirin/business/data/contributor"
	"github.com/OpenTransitTools/kirin/business/data/persist"
	"github.com/OpenTransitTools/kirin/business/data/publish"
	"github.com/OpenTransitTools/kirin/business/data/scheduleclient"
	"github.com/OpenTransitTools/kirin/business/web"
	"github.com/OpenTransitTools/kirin/foundation/distlock"
	"github.com/OpenTransitTools/kirin/foundation/polltracker"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "KIRIN : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		NATS struct {
			URL     string `conf:"default:localhost"`
			Subject string `conf:"default:trip-update"`
		}
		HTTP struct {
			Port int `conf:"default:8070"`
		}
		Contributor struct {
			ID             string        `conf:"required"`
			ConnectorKind  string        `conf:"default:gtfs-rt"`
			FeedURL        string        `conf:"required"`
			Token          string        `conf:"noprint"`
			ScheduleCSVURL string        `conf:"default:"`
			PollInterval   time.Duration `conf:"default:30s"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Merges real-time trip update feeds against their theoretical schedule and republishes a consistent GTFS-RT feed"
	const prefix = "KIRIN"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			printUsage(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Database

	log.Println("main: Initializing database support")

	store, err := persist.OpenPostgres(persist.PostgresConfig{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}

	// =========================================================================
	// Start NATS

	log.Printf("main: Connecting to NATS\n")
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("unable to establish connection to nats server: %w", err)
	}
	defer func() {
		log.Printf("main: closing connection to NATS")
		natsConnection.Close()
	}()

	dest := &publish.NATSDestination{
		Conn:    natsConnection,
		Subject: cfg.NATS.Subject,
		Now:     func() uint64 { return uint64(time.Now().Unix()) },
	}

	// =========================================================================
	// Wire the ingestion coordinator

	contributors, err := contributor.NewRegistry([]contributor.Config{
		{
			ID:            cfg.Contributor.ID,
			ConnectorKind: cfg.Contributor.ConnectorKind,
			FeedURL:       cfg.Contributor.FeedURL,
			Token:         cfg.Contributor.Token,
			PollInterval:  cfg.Contributor.PollInterval,
		},
	})
	if err != nil {
		return fmt.Errorf("building contributor registry: %w", err)
	}

	schedule, err := openScheduleClient(cfg.Contributor.ScheduleCSVURL)
	if err != nil {
		return fmt.Errorf("building schedule client: %w", err)
	}

	coord := &ingest.Coordinator{
		Schedule:    schedule,
		Store:       store,
		Destination: dest,
		Log:         log,
	}

	handler := web.NewHandler(log, contributors, coord)

	// =========================================================================
	// Start the active poller, alongside the push-style HTTP ingress

	pool, ok := store.(persist.DBPool)
	if !ok {
		return fmt.Errorf("store does not expose a postgres connection pool for advisory locking")
	}
	poller := &ingest.Poller{
		Contributors: contributors,
		Tracker:      polltracker.New(cfg.Contributor.PollInterval),
		Locks:        distlock.New(pool.DB()),
		Coordinator:  coord,
		Fetch:        fetchFeed,
		Log:          log,
	}

	// Make a channel to listen for an interrupt or terminate signal from the
	// OS. Use a buffered channel because the signal package requires it.
	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGTERM)

	shutdown := make(chan struct{})
	pollCtx, stopPolling := context.WithCancel(context.Background())
	go func() {
		<-shutdownSignal
		stopPolling()
		close(shutdown)
	}()

	go poller.Run(pollCtx, cfg.Contributor.PollInterval)

	log.Printf("starting kirin\n")
	return handler.Run(cfg.HTTP.Port, shutdown)
}

// fetchFeed retrieves one contributor's feed body over HTTP, the
// default ingest.FeedFetcher the poller uses outside of tests.
func fetchFeed(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching feed: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// openScheduleClient loads the theoretical schedule from a stop_times.txt
// shaped CSV file and wraps it with a TTL cache, since repeated trip
// updates for the same circulation hit the same vehicle journey.
func openScheduleClient(path string) (scheduleclient.Client, error) {
	if path == "" {
		return nil, fmt.Errorf("KIRIN_CONTRIBUTOR_SCHEDULE_CSV_URL is required: no theoretical schedule source configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening schedule csv %s: %w", path, err)
	}
	defer f.Close()

	csvClient, err := scheduleclient.LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule csv %s: %w", path, err)
	}
	return scheduleclient.NewCachedClient(csvClient, 10*time.Minute), nil
}

func printUsage(confUsage string) {
	fmt.Println(confUsage)
}
