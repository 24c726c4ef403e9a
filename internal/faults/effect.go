package faults

// Mode is how a vibration effect combines with the base feature value
type Mode int

const (
	Multiply Mode = iota
	Add
	Set
)

func (m Mode) String() string {
	switch m {
	case Multiply:
		return "multiply"
	case Add:
		return "add"
	case Set:
		return "set"
	default:
		return "unknown"
	}
}

// TurboFactorKey is the reserved thermal key carrying turbo efficiency loss.
// It is not an additive offset.
const TurboFactorKey = "t4_turbo_factor"

// VibrationEffect is one modification of a vibration feature family
type VibrationEffect struct {
	Mode  Mode
	Value float64
}

// Apply combines the effect with a base value
func (e VibrationEffect) Apply(base float64) float64 {
	switch e.Mode {
	case Set:
		return e.Value
	case Multiply:
		return base * e.Value
	case Add:
		return base + e.Value
	default:
		return base
	}
}

// Effect is what one fault does to the features of a window.
// Vibration keys look like "acc1_rms" or "acc3_broadband_energy";
// thermal keys are sensor names plus TurboFactorKey.
type Effect struct {
	Vibration map[string]VibrationEffect
	Thermal   map[string]float64
}

// IsZero reports whether the effect changes nothing
func (e Effect) IsZero() bool {
	return len(e.Vibration) == 0 && len(e.Thermal) == 0
}

func newEffect() Effect {
	return Effect{
		Vibration: make(map[string]VibrationEffect),
		Thermal:   make(map[string]float64),
	}
}
