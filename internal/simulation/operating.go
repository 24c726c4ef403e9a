package simulation

import (
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

// GenerateRPMLoad samples an RPM and load value per window from the mode's
// ranges and smooths both traces with a causal exponential filter
func GenerateRPMLoad(modes []core.OperatingMode, engine core.EngineType, p config.MarkovParams, rng *core.NoiseGenerator) (rpm, load []float64) {
	rpmRanges := p.RPM[engine]
	rpm = make([]float64, len(modes))
	load = make([]float64, len(modes))

	for i, mode := range modes {
		rpm[i] = rng.ClippedGaussian(rpmRanges[mode])
		load[i] = rng.ClippedGaussian(p.Load[mode])
	}

	alpha := p.SmoothingAlpha
	for i := 1; i < len(modes); i++ {
		rpm[i] = rpm[i-1] + alpha*(rpm[i]-rpm[i-1])
		load[i] = load[i-1] + alpha*(load[i]-load[i-1])
	}
	return rpm, load
}
