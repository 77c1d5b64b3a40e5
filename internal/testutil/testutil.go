// Package testutil provides helpers for tests that need a migrated
// SQLite database with seeded metadata.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reelsort/reelsort/internal/database"
)

// TestDB wraps a temporary, migrated test database.
type TestDB struct {
	DB     *database.DB
	Conn   *sql.DB
	Logger zerolog.Logger
}

// NewTestDB creates a migrated SQLite database in a temp directory. The
// database is closed and removed automatically when the test finishes.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := database.New(dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &TestDB{
		DB:     db,
		Conn:   db.Conn(),
		Logger: zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel),
	}
}

// SeedSeries inserts a series row and returns its ID.
func (tdb *TestDB) SeedSeries(t *testing.T, title string) int64 {
	t.Helper()

	res, err := tdb.Conn.ExecContext(context.Background(),
		`INSERT INTO series (title) VALUES (?)`, title)
	if err != nil {
		t.Fatalf("failed to insert series: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read series id: %v", err)
	}
	return id
}

// SeedEpisode inserts one episode row. Pass an empty title to store NULL.
func (tdb *TestDB) SeedEpisode(t *testing.T, seriesID int64, season, episode int, title string) {
	t.Helper()

	var titleArg any
	if title != "" {
		titleArg = title
	}
	_, err := tdb.Conn.ExecContext(context.Background(),
		`INSERT INTO episodes (series_id, season, episode, title) VALUES (?, ?, ?, ?)`,
		seriesID, season, episode, titleArg)
	if err != nil {
		t.Fatalf("failed to insert episode: %v", err)
	}
}
