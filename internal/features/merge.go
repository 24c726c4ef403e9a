package features

import (
	"math"
	"strings"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/faults"
)

// VibrationEffects is the merged vibration effect of all active faults
type VibrationEffects map[string]faults.VibrationEffect

// Apply applies the merged effect for key to base, or returns base
func (m VibrationEffects) Apply(key string, base float64) float64 {
	if e, ok := m[key]; ok {
		return e.Apply(base)
	}
	return base
}

// Has reports whether any fault touched key
func (m VibrationEffects) Has(key string) bool {
	_, ok := m[key]
	return ok
}

func isShapeKey(key string) bool {
	return strings.Contains(key, "kurtosis") || strings.Contains(key, "sk") || strings.Contains(key, "crest")
}

// MergeVibration combines the vibration effects of several faults in order.
// Values for the same key are combined by the incoming mode: set keeps the
// max for shape features (kurtosis, spectral kurtosis, crest) and the last
// value otherwise, multiply takes the product, add takes the sum. The merged
// entry takes the incoming mode, so mixed modes depend on fault order: a set
// 0.5 followed by a multiply 4 becomes multiply 2 on the healthy base, and a
// set 8 followed by an add 1 becomes add 9.
func MergeVibration(effects []faults.Effect) VibrationEffects {
	merged := make(VibrationEffects)
	for _, e := range effects {
		for key, v := range e.Vibration {
			prev, ok := merged[key]
			if !ok {
				merged[key] = v
				continue
			}
			switch v.Mode {
			case faults.Set:
				if isShapeKey(key) {
					merged[key] = faults.VibrationEffect{Mode: v.Mode, Value: math.Max(prev.Value, v.Value)}
				} else {
					merged[key] = v
				}
			case faults.Multiply:
				merged[key] = faults.VibrationEffect{Mode: v.Mode, Value: prev.Value * v.Value}
			case faults.Add:
				merged[key] = faults.VibrationEffect{Mode: v.Mode, Value: prev.Value + v.Value}
			}
		}
	}
	return merged
}

// ThermalEffects is the merged thermal effect of all active faults
type ThermalEffects struct {
	Offsets     map[string]float64
	TurboFactor float64
}

const defaultOffsetCap = 100.0

// MergeThermal sums per-sensor offsets, caps each sum at ±cap and keeps
// the largest turbo factor
func MergeThermal(effects []faults.Effect, p config.ThermalParams) ThermalEffects {
	out := ThermalEffects{Offsets: make(map[string]float64)}
	for _, e := range effects {
		for key, v := range e.Thermal {
			if key == faults.TurboFactorKey {
				out.TurboFactor = math.Max(out.TurboFactor, v)
				continue
			}
			out.Offsets[key] += v
		}
	}
	for key, v := range out.Offsets {
		limit, ok := p.OffsetCap[key]
		if !ok {
			limit = defaultOffsetCap
		}
		out.Offsets[key] = math.Max(-limit, math.Min(limit, v))
	}
	return out
}
