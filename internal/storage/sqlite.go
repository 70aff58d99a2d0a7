package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// NewSQLiteStore opens a SQLite database file, creating the schema if needed
func NewSQLiteStore(dbPath string) (*Store, error) {
	pragmas := url.Values{}
	for _, p := range []string{
		"foreign_keys(1)",
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		"busy_timeout(30000)",
		"temp_store(MEMORY)",
	} {
		pragmas.Add("_pragma", p)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?"+pragmas.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection serializes writers; transactions hold it until commit.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := newStore(db, dialectSQLite)
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}
