package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/features"
)

const timescaleSchema = `
CREATE TABLE IF NOT EXISTS truck_days (
	truck_id    INTEGER NOT NULL,
	day_index   INTEGER NOT NULL,
	engine_type TEXT NOT NULL,
	windows     INTEGER NOT NULL,
	written_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (truck_id, day_index)
);

CREATE TABLE IF NOT EXISTS thermal_state (
	truck_id  INTEGER NOT NULL,
	day_index INTEGER NOT NULL,
	temps     JSONB NOT NULL,
	PRIMARY KEY (truck_id, day_index)
);

CREATE TABLE IF NOT EXISTS manifests (
	run_id      TEXT PRIMARY KEY,
	finished_at TIMESTAMPTZ NOT NULL,
	manifest    JSONB NOT NULL
);
`

// TimescaleStore writes windows into a TimescaleDB hypertable
type TimescaleStore struct {
	pool *pgxpool.Pool
}

// NewTimescaleStore connects, pings and migrates
func NewTimescaleStore(ctx context.Context, connStr string) (*TimescaleStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s := &TimescaleStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *TimescaleStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, timescaleSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if _, err := s.pool.Exec(ctx, windowsDDL(postgresDialect)); err != nil {
		return fmt.Errorf("migrate windows: %w", err)
	}
	// plain PostgreSQL works too, the table just stays a regular table
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		`SELECT create_hypertable('%s', 'timestamp', if_not_exists => TRUE, migrate_data => TRUE)`, windowsTable))
	if err != nil {
		log.Warn().Err(err).Msg("create_hypertable failed, continuing with a plain table")
	}
	return nil
}

// Close closes the pool
func (s *TimescaleStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the connection
func (s *TimescaleStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Exists reports whether the truck-day was completely written
func (s *TimescaleStore) Exists(ctx context.Context, truckID, dayIndex int) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM truck_days WHERE truck_id = $1 AND day_index = $2)`,
		truckID, dayIndex,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check truck %d day %d: %w", truckID, dayIndex, err)
	}
	return exists, nil
}

// copyRows builds the CopyFrom input of a truck-day
func copyRows(rec DayRecord) [][]any {
	rows := rec.Rows(BaseTime)
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = r.Values()
	}
	return out
}

// WriteTruckDay replaces the windows of a truck-day and marks it complete in
// one transaction
func (s *TimescaleStore) WriteTruckDay(ctx context.Context, rec DayRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE truck_id = $1 AND day_index = $2`, windowsTable),
		rec.TruckID, rec.DayIndex)
	if err != nil {
		return fmt.Errorf("clear truck %d day %d: %w", rec.TruckID, rec.DayIndex, err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{windowsTable},
		features.AllColumns(),
		pgx.CopyFromRows(copyRows(rec)),
	)
	if err != nil {
		return fmt.Errorf("CopyFrom failed for truck %d day %d: %w", rec.TruckID, rec.DayIndex, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO truck_days (truck_id, day_index, engine_type, windows) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (truck_id, day_index) DO UPDATE SET windows = EXCLUDED.windows, written_at = NOW()`,
		rec.TruckID, rec.DayIndex, rec.EngineType.String(), len(rec.Features),
	)
	if err != nil {
		return fmt.Errorf("mark truck %d day %d: %w", rec.TruckID, rec.DayIndex, err)
	}

	return tx.Commit(ctx)
}

// LoadThermalState returns the end-of-day temperatures of a truck-day
func (s *TimescaleStore) LoadThermalState(ctx context.Context, truckID, dayIndex int) (core.ThermalState, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT temps FROM thermal_state WHERE truck_id = $1 AND day_index = $2`,
		truckID, dayIndex,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load thermal state: %w", err)
	}

	var temps core.ThermalState
	if err := json.Unmarshal(raw, &temps); err != nil {
		return nil, fmt.Errorf("decode thermal state: %w", err)
	}
	return temps, nil
}

// SaveThermalState stores the end-of-day temperatures of a truck-day
func (s *TimescaleStore) SaveThermalState(ctx context.Context, truckID, dayIndex int, temps core.ThermalState) error {
	raw, err := json.Marshal(temps)
	if err != nil {
		return fmt.Errorf("encode thermal state: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO thermal_state (truck_id, day_index, temps) VALUES ($1, $2, $3)
		 ON CONFLICT (truck_id, day_index) DO UPDATE SET temps = EXCLUDED.temps`,
		truckID, dayIndex, raw,
	)
	if err != nil {
		return fmt.Errorf("save thermal state: %w", err)
	}
	return nil
}

// WriteManifest records the manifest of a run
func (s *TimescaleStore) WriteManifest(ctx context.Context, m Manifest) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO manifests (run_id, finished_at, manifest) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id) DO UPDATE SET finished_at = EXCLUDED.finished_at, manifest = EXCLUDED.manifest`,
		m.RunID, m.FinishedAt, raw,
	)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Days lists the completed truck-days ordered by truck and day
func (s *TimescaleStore) Days(ctx context.Context) ([]DayKey, error) {
	rows, err := s.pool.Query(ctx, `SELECT truck_id, day_index FROM truck_days ORDER BY truck_id, day_index`)
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
func (s *TimescaleStore) ReadDay(ctx context.Context, truckID, dayIndex int) ([]Row, error) {
	rows, err := s.pool.Query(ctx,
		selectDayQuery(func(n int) string { return fmt.Sprintf("$%d", n) }), truckID, dayIndex)
	if err != nil {
		return nil, fmt.Errorf("read truck %d day %d: %w", truckID, dayIndex, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var ts time.Time
		r, err := scanRow(rows.Scan, &ts, func() (time.Time, error) { return ts.UTC(), nil })
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
