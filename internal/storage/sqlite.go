package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/features"
)

// SQLiteFile is the database file name inside the output directory
const SQLiteFile = "telemetry.db"

// sortableTime keeps a fixed width so text order matches time order
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS truck_days (
	truck_id     INTEGER NOT NULL,
	day_index    INTEGER NOT NULL,
	engine_type  TEXT NOT NULL,
	windows      INTEGER NOT NULL,
	written_at   TEXT NOT NULL,
	PRIMARY KEY (truck_id, day_index)
);

CREATE TABLE IF NOT EXISTS thermal_state (
	truck_id     INTEGER NOT NULL,
	day_index    INTEGER NOT NULL,
	temps_json   TEXT NOT NULL,
	PRIMARY KEY (truck_id, day_index)
);

CREATE TABLE IF NOT EXISTS manifests (
	run_id        TEXT PRIMARY KEY,
	finished_at   TEXT NOT NULL,
	manifest_json TEXT NOT NULL
);
`

// SQLiteStore keeps a whole run in one SQLite file
type SQLiteStore struct {
	db     *sql.DB
	insert string
}

// NewSQLiteStore opens (or creates) the database at path and runs migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer at a time; workers queue on the pool instead of SQLITE_BUSY
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err := db.Exec(windowsDDL(sqliteDialect)); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate windows: %w", err)
	}

	cols := features.AllColumns()
	insert := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		windowsTable, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

	log.Debug().Str("path", path).Msg("SQLite store opened")
	return &SQLiteStore{db: db, insert: insert}, nil
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Exists reports whether the truck-day was completely written
func (s *SQLiteStore) Exists(ctx context.Context, truckID, dayIndex int) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM truck_days WHERE truck_id = ? AND day_index = ?`,
		truckID, dayIndex,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check truck %d day %d: %w", truckID, dayIndex, err)
	}
	return n > 0, nil
}

// WriteTruckDay writes all windows of a truck-day and its completion marker
// in one transaction
func (s *SQLiteStore) WriteTruckDay(ctx context.Context, rec DayRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rec.Rows(BaseTime) {
		vals := row.Values()
		vals[0] = row.Timestamp.Format(time.RFC3339)
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return fmt.Errorf("insert truck %d %s: %w", rec.TruckID, vals[0], err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO truck_days (truck_id, day_index, engine_type, windows, written_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(truck_id, day_index) DO UPDATE SET windows = excluded.windows, written_at = excluded.written_at`,
		rec.TruckID, rec.DayIndex, rec.EngineType.String(), len(rec.Features), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("mark truck %d day %d: %w", rec.TruckID, rec.DayIndex, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadThermalState returns the end-of-day temperatures of a truck-day
func (s *SQLiteStore) LoadThermalState(ctx context.Context, truckID, dayIndex int) (core.ThermalState, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT temps_json FROM thermal_state WHERE truck_id = ? AND day_index = ?`,
		truckID, dayIndex,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load thermal state: %w", err)
	}

	var temps core.ThermalState
	if err := json.Unmarshal([]byte(raw), &temps); err != nil {
		return nil, fmt.Errorf("decode thermal state: %w", err)
	}
	return temps, nil
}

// SaveThermalState stores the end-of-day temperatures of a truck-day
func (s *SQLiteStore) SaveThermalState(ctx context.Context, truckID, dayIndex int, temps core.ThermalState) error {
	raw, err := json.Marshal(temps)
	if err != nil {
		return fmt.Errorf("encode thermal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO thermal_state (truck_id, day_index, temps_json) VALUES (?, ?, ?)
		 ON CONFLICT(truck_id, day_index) DO UPDATE SET temps_json = excluded.temps_json`,
		truckID, dayIndex, string(raw),
	)
	if err != nil {
		return fmt.Errorf("save thermal state: %w", err)
	}
	return nil
}

// WriteManifest records the manifest of a run
func (s *SQLiteStore) WriteManifest(ctx context.Context, m Manifest) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO manifests (run_id, finished_at, manifest_json) VALUES (?, ?, ?)`,
		m.RunID, m.FinishedAt.UTC().Format(sortableTime), string(raw),
	)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// LatestManifest returns the most recently finished run, ErrNotFound if none
func (s *SQLiteStore) LatestManifest(ctx context.Context) (Manifest, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT manifest_json FROM manifests ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Manifest{}, ErrNotFound
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// Days lists the completed truck-days ordered by truck and day
func (s *SQLiteStore) Days(ctx context.Context) ([]DayKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT truck_id, day_index FROM truck_days ORDER BY truck_id, day_index`)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var out []DayKey
	for rows.Next() {
		var k DayKey
		if err := rows.Scan(&k.TruckID, &k.DayIndex); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// ReadDay returns the windows of a truck-day in time order
func (s *SQLiteStore) ReadDay(ctx context.Context, truckID, dayIndex int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, selectDayQuery(func(int) string { return "?" }), truckID, dayIndex)
	if err != nil {
		return nil, fmt.Errorf("read truck %d day %d: %w", truckID, dayIndex, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var ts string
		r, err := scanRow(rows.Scan, &ts, func() (time.Time, error) {
			return time.Parse(time.RFC3339, ts)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
