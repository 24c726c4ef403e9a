// Package storage persists generated truck-days, the thermal state carried
// between days and the run manifest.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/features"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/labels"
)

// ErrNotFound is returned when a requested truck-day or state is absent
var ErrNotFound = errors.New("not found")

// BaseTime is the timestamp of day 0, window 0
var BaseTime = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// DayRecord is one generated truck-day
type DayRecord struct {
	TruckID    int
	EngineType core.EngineType
	DayIndex   int
	Features   []features.Vector
	Labels     []labels.Label
}

// Validate checks that features and labels line up
func (r DayRecord) Validate() error {
	if len(r.Features) != len(r.Labels) {
		return fmt.Errorf("truck %d day %d: %d feature rows but %d labels",
			r.TruckID, r.DayIndex, len(r.Features), len(r.Labels))
	}
	return nil
}

// Row is one output row in the 229-column layout
type Row struct {
	Timestamp  time.Time
	TruckID    int
	EngineType string
	DayIndex   int
	Features   features.Vector
	Label      labels.Label
}

// WindowTime is the timestamp of a window
func WindowTime(base time.Time, dayIndex, window int) time.Time {
	return base.Add(time.Duration(dayIndex)*24*time.Hour + time.Duration(window)*core.SecondsPerWindow*time.Second)
}

// Rows expands a truck-day into output rows
func (r DayRecord) Rows(base time.Time) []Row {
	rows := make([]Row, len(r.Features))
	for w := range r.Features {
		rows[w] = Row{
			Timestamp:  WindowTime(base, r.DayIndex, w),
			TruckID:    r.TruckID,
			EngineType: r.EngineType.String(),
			DayIndex:   r.DayIndex,
			Features:   r.Features[w],
			Label:      r.Labels[w],
		}
	}
	return rows
}

// Values returns the row in AllColumns order. Infinite RUL is stored as -1.
func (r Row) Values() []any {
	vals := make([]any, 0, 4+features.NumFeatures+4)
	vals = append(vals, r.Timestamp, r.TruckID, r.EngineType, r.DayIndex)
	for _, v := range r.Features {
		vals = append(vals, v)
	}
	return append(vals, r.Label.FaultMode, r.Label.FaultSeverity, r.Label.StoredRUL(), r.Label.PathALabel)
}

// DayKey identifies a stored truck-day
type DayKey struct {
	TruckID  int
	DayIndex int
}

// Manifest describes one generation run
type Manifest struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Seed          int64     `json:"seed"`
	Trucks        int       `json:"num_trucks"`
	Days          int       `json:"num_days"`
	TotalWindows  int       `json:"total_windows"`
	Generated     int       `json:"generated_days"`
	Skipped       int       `json:"skipped_days"`
	Failed        int       `json:"failed_trucks"`
	HealthyTrucks int       `json:"healthy_trucks"`
	FaultyTrucks  int       `json:"faulty_trucks"`
	Policy        string    `json:"failure_policy"`
	Store         string    `json:"store"`
	DurationSec   float64   `json:"duration_seconds"`
}

// Store is the sink of a generation run. Implementations must be safe for
// concurrent use by workers writing disjoint truck-days.
type Store interface {
	Exists(ctx context.Context, truckID, dayIndex int) (bool, error)
	WriteTruckDay(ctx context.Context, rec DayRecord) error
	LoadThermalState(ctx context.Context, truckID, dayIndex int) (core.ThermalState, error)
	SaveThermalState(ctx context.Context, truckID, dayIndex int, temps core.ThermalState) error
	WriteManifest(ctx context.Context, m Manifest) error
	Close() error
}

// Reader reads generated truck-days back
type Reader interface {
	Days(ctx context.Context) ([]DayKey, error)
	ReadDay(ctx context.Context, truckID, dayIndex int) ([]Row, error)
}

// InitialTemps returns the end-of-day state saved for dayIndex-1. Day 0 and
// a missing previous day fall back to the given defaults.
func InitialTemps(ctx context.Context, s Store, truckID, dayIndex int, defaults core.ThermalState) (core.ThermalState, error) {
	if dayIndex == 0 {
		return defaults.Clone(), nil
	}
	temps, err := s.LoadThermalState(ctx, truckID, dayIndex-1)
	if errors.Is(err, ErrNotFound) {
		return defaults.Clone(), nil
	}
	if err != nil {
		return nil, err
	}
	return temps, nil
}
