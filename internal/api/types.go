package api

import (
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/labels"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/stream"
)

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// SummaryResponse is returned by GET /api/summary
type SummaryResponse struct {
	FleetSize      int      `json:"fleet_size"`
	SimulationDays int      `json:"simulation_days"`
	WindowsPerDay  int      `json:"windows_per_day"`
	FailureModes   int      `json:"failure_modes"`
	FaultModeIDs   []string `json:"fault_mode_ids"`
	OperatingModes []string `json:"operating_modes"`
	FeatureCount   int      `json:"feature_count"`
	OutputColumns  int      `json:"output_columns"`
}

// TruckResponse is returned by GET /api/trucks/{id}
type TruckResponse struct {
	TruckID    int    `json:"truck_id"`
	EngineType string `json:"engine_type"`
	Split      string `json:"split"`
	Seed       int64  `json:"seed"`
	Faults     int    `json:"scheduled_faults"`
}

// DayResponse is returned by GET /api/trucks/{id}/days/{day}
type DayResponse struct {
	TruckID    int               `json:"truck_id"`
	EngineType string            `json:"engine_type"`
	DayIndex   int               `json:"day_index"`
	Summary    stream.DaySummary `json:"summary"`
	Columns    []string          `json:"columns"`
	Windows    []WindowRow       `json:"windows"`
}

// WindowRow is one window in column order
type WindowRow struct {
	Window   int          `json:"window"`
	Features []float64    `json:"features"`
	Label    labels.Label `json:"label"`
}

// ReplayResponse is returned by GET /api/replay
type ReplayResponse struct {
	Speed    float64             `json:"speed"`
	TruckID  int                 `json:"truck_id"`
	DayIndex int                 `json:"day_index"`
	Interval string              `json:"interval"`
	Current  *stream.WindowEvent `json:"current,omitempty"`
}

// ReplayUpdateRequest is used for PUT /api/replay
type ReplayUpdateRequest struct {
	Speed    *float64 `json:"speed,omitempty"`
	TruckID  *int     `json:"truck_id,omitempty"`
	DayIndex *int     `json:"day_index,omitempty"`
}

// ErrorResponse carries a failed request's message
type ErrorResponse struct {
	Error string `json:"error"`
}
