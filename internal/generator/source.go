package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/fleet"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
)

var (
	ErrUnknownTruck  = errors.New("unknown truck")
	ErrDayOutOfRange = errors.New("day out of range")
)

// DaySource serves single truck-days on demand. Days present in the store
// are read back; any other day is generated from the stored end state of
// the previous day, or from the engine's idle defaults.
type DaySource struct {
	gen      *TruckDay
	fleet    *fleet.Fleet
	schedule fleet.Schedule
	store    storage.Store
	days     int
}

// NewDaySource creates a source over a fleet and its fault schedule. store
// may be nil, in which case every day is generated.
func NewDaySource(gen *TruckDay, fl *fleet.Fleet, schedule fleet.Schedule, store storage.Store, days int) *DaySource {
	return &DaySource{
		gen:      gen,
		fleet:    fl,
		schedule: schedule,
		store:    store,
		days:     days,
	}
}

// FleetSize returns the number of trucks served
func (s *DaySource) FleetSize() int {
	return len(s.fleet.Trucks)
}

// Days returns the number of simulated days
func (s *DaySource) Days() int {
	return s.days
}

// Truck returns a fleet member and its scheduled faults
func (s *DaySource) Truck(id int) (fleet.Truck, int, error) {
	truck, ok := s.fleet.Truck(id)
	if !ok {
		return fleet.Truck{}, 0, fmt.Errorf("%w: %d", ErrUnknownTruck, id)
	}
	return truck, len(s.schedule[id]), nil
}

// Day returns one truck-day
func (s *DaySource) Day(ctx context.Context, truckID, day int) (storage.DayRecord, error) {
	truck, ok := s.fleet.Truck(truckID)
	if !ok {
		return storage.DayRecord{}, fmt.Errorf("%w: %d", ErrUnknownTruck, truckID)
	}
	if day < 0 || day >= s.days {
		return storage.DayRecord{}, fmt.Errorf("%w: %d not in [0, %d)", ErrDayOutOfRange, day, s.days)
	}

	if r, ok := s.store.(storage.Reader); ok {
		rows, err := r.ReadDay(ctx, truckID, day)
		if err == nil {
			return storage.RecordFromRows(rows)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return storage.DayRecord{}, fmt.Errorf("read truck %d day %d: %w", truckID, day, err)
		}
	}

	defaults := s.gen.Simulation().Engines[truck.EngineType].DefaultIdleTemps()
	initial := defaults
	if s.store != nil {
		var err error
		initial, err = storage.InitialTemps(ctx, s.store, truckID, day, defaults)
		if err != nil {
			return storage.DayRecord{}, err
		}
	}

	out := s.gen.Generate(truck.Profile, truck.EngineType, day, s.schedule[truckID], initial, truck.DaySeed(day))
	return storage.DayRecord{
		TruckID:    truck.ID,
		EngineType: truck.EngineType,
		DayIndex:   day,
		Features:   out.Features,
		Labels:     out.Labels,
	}, nil
}
