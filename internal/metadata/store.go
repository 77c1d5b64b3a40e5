package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ErrSeriesNotFound is returned when a series ID has no database row.
var ErrSeriesNotFound = errors.New("series not found")

// SeriesInfo describes one series known to the store.
type SeriesInfo struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Episodes int    `json:"episodes"`
}

// Store loads metadata snapshots from SQLite and hands them out to
// classification calls. Each series' current snapshot sits behind an
// atomic pointer: a refresh builds a complete new snapshot and swaps it
// in, so in-flight readers never observe a partial update.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger

	mu        sync.Mutex // guards the snapshots map, not the snapshots
	snapshots map[int64]*atomic.Pointer[Snapshot]
}

// NewStore creates a store backed by an open database connection.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:        db,
		logger:    logger.With().Str("component", "metadata").Logger(),
		snapshots: make(map[int64]*atomic.Pointer[Snapshot]),
	}
}

// Snapshot returns the current snapshot for a series, if one is loaded.
func (st *Store) Snapshot(seriesID int64) (*Snapshot, bool) {
	st.mu.Lock()
	ptr, ok := st.snapshots[seriesID]
	st.mu.Unlock()
	if !ok {
		return nil, false
	}
	snap := ptr.Load()
	return snap, snap != nil
}

// Refresh rebuilds the snapshot for a series from the database and swaps
// it in atomically.
func (st *Store) Refresh(ctx context.Context, seriesID int64) (*Snapshot, error) {
	snap, err := st.load(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	ptr, ok := st.snapshots[seriesID]
	if !ok {
		ptr = &atomic.Pointer[Snapshot]{}
		st.snapshots[seriesID] = ptr
	}
	st.mu.Unlock()

	ptr.Store(snap)
	st.logger.Debug().
		Int64("seriesId", seriesID).
		Str("series", snap.SeriesName()).
		Int("episodes", snap.Len()).
		Msg("snapshot refreshed")
	return snap, nil
}

// LoadAll builds snapshots for every series in the database.
func (st *Store) LoadAll(ctx context.Context) error {
	series, err := st.ListSeries(ctx)
	if err != nil {
		return err
	}
	for _, info := range series {
		if _, err := st.Refresh(ctx, info.ID); err != nil {
			return fmt.Errorf("load series %d: %w", info.ID, err)
		}
	}
	st.logger.Info().Int("series", len(series)).Msg("metadata snapshots loaded")
	return nil
}

// ListSeries returns every series row with its episode count.
func (st *Store) ListSeries(ctx context.Context) ([]SeriesInfo, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT s.id, s.title, COUNT(e.id)
		FROM series s
		LEFT JOIN episodes e ON e.series_id = s.id
		GROUP BY s.id, s.title
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var series []SeriesInfo
	for rows.Next() {
		var info SeriesInfo
		if err := rows.Scan(&info.ID, &info.Title, &info.Episodes); err != nil {
			return nil, fmt.Errorf("scan series row: %w", err)
		}
		series = append(series, info)
	}
	return series, rows.Err()
}

// load reads one series and its episodes into a fresh snapshot.
func (st *Store) load(ctx context.Context, seriesID int64) (*Snapshot, error) {
	var title string
	err := st.db.QueryRowContext(ctx,
		`SELECT title FROM series WHERE id = ?`, seriesID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeriesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load series %d: %w", seriesID, err)
	}

	rows, err := st.db.QueryContext(ctx, `
		SELECT season, episode, COALESCE(title, '')
		FROM episodes
		WHERE series_id = ?
		ORDER BY season, episode`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load episodes for series %d: %w", seriesID, err)
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var ep Episode
		if err := rows.Scan(&ep.Season, &ep.Episode, &ep.Title); err != nil {
			return nil, fmt.Errorf("scan episode row: %w", err)
		}
		episodes = append(episodes, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return NewSnapshot(title, episodes), nil
}
