package store

import (
	"context"

	"gymsim/internal/db"
)

// Open picks Postgres when databaseURL is set, then SQLite at sqlitePath, and
// falls back to an in-memory store. The returned name is for logging.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, string, error) {
	switch {
	case databaseURL != "":
		pool, err := db.Connect(ctx, databaseURL)
		if err != nil {
			return nil, "", err
		}
		st, err := NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, "", err
		}
		return st, "postgres", nil
	case sqlitePath != "":
		st, err := OpenSQLite(sqlitePath)
		if err != nil {
			return nil, "", err
		}
		return st, "sqlite", nil
	default:
		return NewMemory(), "memory", nil
	}
}
