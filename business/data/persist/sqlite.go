package persist

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// OpenSQLite opens an embedded, file- or memory-backed Store, used by
// kirinctl's replay and poll commands and by this package's own tests.
// Pass ":memory:" for an ephemeral store.
func OpenSQLite(path string) (Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite store")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, errors.Wrap(err, "applying sqlite schema")
	}
	return &sqlStore{db: db}, nil
}
