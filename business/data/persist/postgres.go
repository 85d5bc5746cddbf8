package persist

import (
	"net/url"

	_ "github.com/jackc/pgx/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// PostgresConfig mirrors the teacher's foundation/database.Config.
type PostgresConfig struct {
	User       string
	Password   string
	Host       string
	Name       string
	DisableTLS bool
}

// OpenPostgres opens a Postgres-backed Store, applying the schema with
// CREATE TABLE IF NOT EXISTS the way tidbyt-gtfs's NewSQLiteStorage
// bootstraps its own tables.
func OpenPostgres(cfg PostgresConfig) (Store, error) {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}

	db, err := sqlx.Connect("pgx", u.String())
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres")
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, errors.Wrap(err, "applying postgres schema")
	}
	return &sqlStore{db: db}, nil
}

// DBPool exposes the pooled connection backing a Store opened with
// OpenPostgres, for callers that need to build other Postgres-specific
// facilities (distlock's advisory locks) against the same pool.
// cmd/kirinctl's sqlite-backed Store also happens to implement this
// (both backends share the sqlStore type), but nothing built on it
// works against sqlite: pg_try_advisory_lock has no sqlite equivalent,
// which is why kirinctl never builds a distlock.Locker.
type DBPool interface {
	DB() *sqlx.DB
}

// DB returns the pooled Postgres connection backing this store.
func (s *sqlStore) DB() *sqlx.DB {
	return s.db
}
