// Package fleet builds the truck fleet: engine profiles, train/val/test
// splits and the fault schedule.
package fleet

import (
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

// ThermalBaseline is one temperature sensor's sampled baseline
type ThermalBaseline struct {
	IdleTemp   float64 `json:"idle_temp"`
	CruiseTemp float64 `json:"cruise_temp"`
	DeltaLoad  float64 `json:"delta_load"`
	Tau        float64 `json:"tau"`
}

// EngineProfile holds the physical parameters of one truck's engine.
// It is sampled once at fleet construction and read-only afterwards.
type EngineProfile struct {
	EngineType   core.EngineType            `json:"engine_type"`
	Displacement core.Range                 `json:"displacement_l"`
	MainBearings int                        `json:"main_bearings"`
	CruiseRPM    core.Range                 `json:"cruise_rpm"`
	Bearing      config.BearingGeometry     `json:"bearing_geometry"`
	Thermal      map[string]ThermalBaseline `json:"thermal_baselines"`
	TurboDelta   core.Range                 `json:"turbo_delta_baseline"`
}

// NewEngineProfile samples thermal baselines for every temperature sensor.
// Sensors are drawn in core.TempSensors order so the profile depends only
// on the rng stream.
func NewEngineProfile(engine core.EngineType, p config.EngineParams, rng *core.NoiseGenerator) EngineProfile {
	thermal := make(map[string]ThermalBaseline, len(core.TempSensors))
	for _, sensor := range core.TempSensors {
		r, ok := p.Thermal[sensor]
		if !ok {
			continue
		}
		idle := rng.UniformRange(r.Idle)
		delta := rng.UniformRange(r.DeltaLoad)
		tau := rng.UniformRange(r.Tau)
		thermal[sensor] = ThermalBaseline{
			IdleTemp:   idle,
			CruiseTemp: idle + delta,
			DeltaLoad:  delta,
			Tau:        tau,
		}
	}

	return EngineProfile{
		EngineType:   engine,
		Displacement: p.Displacement,
		MainBearings: p.MainBearings,
		CruiseRPM:    p.CruiseRPM,
		Bearing:      p.Bearing,
		Thermal:      thermal,
		TurboDelta:   p.TurboDelta,
	}
}
