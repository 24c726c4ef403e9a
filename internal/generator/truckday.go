// Package generator produces truck-days and runs fleet-wide generation
// batches.
package generator

import (
	"fmt"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/faults"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/features"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/fleet"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/labels"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/simulation"
)

// DayResult is one generated truck-day
type DayResult struct {
	Features   []features.Vector
	Labels     []labels.Label
	Modes      []core.OperatingMode
	RPM        []float64
	Load       []float64
	FinalTemps core.ThermalState
}

// TruckDay generates single truck-days. It holds only immutable parameters
// and is safe for concurrent use.
type TruckDay struct {
	sim     config.Simulation
	chain   *simulation.MarkovChain
	ambient simulation.AmbientModel
	synth   *features.Synthesizer
}

// NewTruckDay validates the simulation parameters once for all days
func NewTruckDay(sim config.Simulation) (*TruckDay, error) {
	chain, err := simulation.NewMarkovChain(sim.Markov.Transition)
	if err != nil {
		return nil, fmt.Errorf("operating mode chain: %w", err)
	}
	synth, err := features.NewSynthesizer(sim)
	if err != nil {
		return nil, fmt.Errorf("feature synthesizer: %w", err)
	}
	return &TruckDay{
		sim:     sim,
		chain:   chain,
		ambient: simulation.NewAmbientModel(sim.Ambient),
		synth:   synth,
	}, nil
}

// Simulation returns the parameters the generator was built with
func (g *TruckDay) Simulation() config.Simulation {
	return g.sim
}

// WindowHours is the absolute simulation time of a window in hours
func WindowHours(dayIndex, window int) float64 {
	return float64(dayIndex*core.HoursPerDay) + float64(window*core.SecondsPerWindow)/3600
}

// Generate produces all windows of one truck-day. The same inputs always
// produce the same output; faults are only read.
func (g *TruckDay) Generate(
	profile fleet.EngineProfile,
	engine core.EngineType,
	dayIndex int,
	active []*faults.Fault,
	initialTemps core.ThermalState,
	seed int64,
) DayResult {
	rng := core.NewNoiseGenerator(seed)

	initial := core.ModeIdle
	if dayIndex > 0 {
		initial = core.ModeCruise
	}
	modes := g.chain.SimulateDay(rng, initial)
	rpm, load := simulation.GenerateRPMLoad(modes, engine, g.sim.Markov, rng)

	res := DayResult{
		Features: make([]features.Vector, core.WindowsPerDay),
		Labels:   make([]labels.Label, core.WindowsPerDay),
		Modes:    modes,
		RPM:      rpm,
		Load:     load,
	}

	temps := initialTemps.Clone()
	effects := make([]faults.Effect, 0, len(active))

	for w := 0; w < core.WindowsPerDay; w++ {
		t := WindowHours(dayIndex, w)

		effects = effects[:0]
		for _, f := range active {
			if e := f.Effects(t, rpm[w], load[w]); !e.IsZero() {
				effects = append(effects, e)
			}
		}

		res.Features[w], temps = g.synth.Window(features.WindowInput{
			RPM:       rpm[w],
			Load:      load[w],
			Ambient:   g.ambient.Temperature(dayIndex, w*core.SecondsPerWindow),
			Engine:    engine,
			Baselines: profile.Thermal,
			Effects:   effects,
			Prev:      temps,
		}, rng)
		res.Labels[w] = labels.Compute(t, active)
	}

	res.FinalTemps = temps
	return res
}
