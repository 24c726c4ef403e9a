package features

import (
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

const rpmEstimateError = 0.03

// LoadProxy estimates load from the mean pre-turbo exhaust temperature,
// falling back to the true load when the calibration span is empty
func LoadProxy(t3Mean, load float64, engine core.EngineType, p config.ThermalParams) float64 {
	idle := p.LoadProxyT3Idle[engine]
	span := p.LoadProxyT3Full[engine] - idle
	if span <= 0 {
		return load
	}
	return (t3Mean - idle) / span
}

// Conditioning writes rpm_est and load_proxy into v
func Conditioning(v *Vector, rpm, load, t3Mean float64, engine core.EngineType, p config.ThermalParams, rng *core.NoiseGenerator) {
	c := &cursor{dst: v.conditioning()}
	c.put(
		rpm+rng.Gaussian(0, rpm*rpmEstimateError),
		LoadProxy(t3Mean, load, engine, p),
	)
}
