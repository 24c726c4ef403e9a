package features

import (
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/faults"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/fleet"
)

// WindowInput is everything a window's features depend on besides the rng
type WindowInput struct {
	RPM       float64
	Load      float64
	Ambient   float64
	Engine    core.EngineType
	Baselines map[string]fleet.ThermalBaseline
	Effects   []faults.Effect
	Prev      core.ThermalState
}

// Synthesizer assembles complete feature vectors
type Synthesizer struct {
	vibration *VibrationSynth
	thermal   *ThermalSynth
	params    config.ThermalParams
}

// NewSynthesizer builds the vibration and thermal synthesizers from sim
func NewSynthesizer(sim config.Simulation) (*Synthesizer, error) {
	vib, err := NewVibrationSynth(sim.Vibration)
	if err != nil {
		return nil, err
	}
	therm, err := NewThermalSynth(sim.Thermal, sim.Ambient.RefTemp)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{vibration: vib, thermal: therm, params: sim.Thermal}, nil
}

// Window synthesizes one window. Draws happen in a fixed order: vibration,
// thermal, then conditioning, which needs the thermal T3 mean.
func (s *Synthesizer) Window(in WindowInput, rng *core.NoiseGenerator) (Vector, core.ThermalState) {
	var v Vector

	s.vibration.Synthesize(&v, in.Load, MergeVibration(in.Effects), rng)
	temps, t3Mean := s.thermal.Synthesize(&v, in.Load, in.Ambient, in.Baselines,
		MergeThermal(in.Effects, s.params), in.Prev, rng)
	Conditioning(&v, in.RPM, in.Load, t3Mean, in.Engine, s.params, rng)

	return v, temps
}
