package config

import (
	"fmt"
	"sync"
	"time"
)

// RuntimeConfig holds replay settings that can be changed while the server runs.
// All methods are thread-safe.
type RuntimeConfig struct {
	mu           sync.RWMutex
	speed        float64       // Windows advanced per tick: 0.1 - 1440 (default 1.0)
	truckID      int           // Replayed truck, 1..fleetSize
	dayIndex     int           // Replayed day, 0..days-1
	baseInterval time.Duration // Tick interval from env
	fleetSize    int
	days         int
}

// NewRuntimeConfig creates a new RuntimeConfig from the static Config.
func NewRuntimeConfig(cfg *Config) *RuntimeConfig {
	speed := cfg.ReplaySpeed
	if speed < 0.1 || speed > 1440 {
		speed = 1.0
	}
	truck := cfg.ReplayTruck
	if truck < 1 || truck > cfg.FleetSize {
		truck = 1
	}
	return &RuntimeConfig{
		speed:        speed,
		truckID:      truck,
		baseInterval: cfg.ReplayInterval,
		fleetSize:    cfg.FleetSize,
		days:         cfg.Days,
	}
}

// GetSpeed returns the number of windows advanced per tick.
func (rc *RuntimeConfig) GetSpeed() float64 {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.speed
}

// GetTruckDay returns the truck and day currently replayed.
func (rc *RuntimeConfig) GetTruckDay() (truckID, dayIndex int) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.truckID, rc.dayIndex
}

// GetInterval returns the tick interval.
func (rc *RuntimeConfig) GetInterval() time.Duration {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.baseInterval
}

// SetSpeed sets the replay speed.
// Valid range: 0.1 - 1440 (a full day per tick)
func (rc *RuntimeConfig) SetSpeed(speed float64) error {
	if speed < 0.1 || speed > 1440 {
		return fmt.Errorf("replay speed must be between 0.1 and 1440, got %f", speed)
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.speed = speed
	return nil
}

// SetTruckDay selects the truck-day to replay.
func (rc *RuntimeConfig) SetTruckDay(truckID, dayIndex int) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if truckID < 1 || truckID > rc.fleetSize {
		return fmt.Errorf("truck id must be between 1 and %d, got %d", rc.fleetSize, truckID)
	}
	if dayIndex < 0 || dayIndex >= rc.days {
		return fmt.Errorf("day index must be between 0 and %d, got %d", rc.days-1, dayIndex)
	}
	rc.truckID = truckID
	rc.dayIndex = dayIndex
	return nil
}

// RuntimeConfigSnapshot is a point-in-time copy of the runtime values.
type RuntimeConfigSnapshot struct {
	Speed    float64
	TruckID  int
	DayIndex int
	Interval time.Duration
}

// Snapshot returns a point-in-time copy of all runtime config values.
func (rc *RuntimeConfig) Snapshot() RuntimeConfigSnapshot {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return RuntimeConfigSnapshot{
		Speed:    rc.speed,
		TruckID:  rc.truckID,
		DayIndex: rc.dayIndex,
		Interval: rc.baseInterval,
	}
}
