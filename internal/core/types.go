package core

import (
	"fmt"
	"math"
)

// Simulation time grid
const (
	HoursPerDay      = 24
	SecondsPerWindow = 60
	WindowsPerDay    = HoursPerDay * 3600 / SecondsPerWindow
)

// EngineType distinguishes the two engine families in the fleet
type EngineType int

const (
	EngineModern EngineType = iota
	EngineOlder
)

func (e EngineType) String() string {
	switch e {
	case EngineModern:
		return "modern"
	case EngineOlder:
		return "older"
	default:
		return "unknown"
	}
}

// MarshalText encodes the engine type by name
func (e EngineType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes an engine type name
func (e *EngineType) UnmarshalText(b []byte) error {
	v, err := ParseEngineType(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// ParseEngineType converts "modern"/"older" into an EngineType
func ParseEngineType(s string) (EngineType, error) {
	switch s {
	case "modern":
		return EngineModern, nil
	case "older":
		return EngineOlder, nil
	default:
		return 0, fmt.Errorf("unknown engine type %q", s)
	}
}

// OperatingMode is the discrete driving regime of a truck during one window
type OperatingMode int

const (
	ModeIdle OperatingMode = iota
	ModeCity
	ModeCruise
	ModeHeavy
)

// NumModes is the number of operating modes in the Markov chain
const NumModes = 4

func (m OperatingMode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeCity:
		return "city"
	case ModeCruise:
		return "cruise"
	case ModeHeavy:
		return "heavy"
	default:
		return "unknown"
	}
}

// Modes returns all operating modes in transition-matrix order
func Modes() []OperatingMode {
	return []OperatingMode{ModeIdle, ModeCity, ModeCruise, ModeHeavy}
}

// Stage is the coarse degradation bucket of a fault instance
type Stage int

const (
	StageHealthy Stage = iota
	Stage2
	Stage3
	Stage4
)

func (s Stage) String() string {
	switch s {
	case StageHealthy:
		return "healthy"
	case Stage2:
		return "stage2"
	case Stage3:
		return "stage3"
	case Stage4:
		return "stage4"
	default:
		return "unknown"
	}
}

// Rank orders stages from healthy (0) to stage4 (3)
func (s Stage) Rank() int {
	return int(s)
}

// SeverityLabel is the label-column spelling of the stage
func (s Stage) SeverityLabel() string {
	switch s {
	case Stage2:
		return "STAGE_2"
	case Stage3:
		return "STAGE_3"
	case Stage4:
		return "STAGE_4"
	default:
		return "HEALTHY"
	}
}

// Range is a closed numeric interval [Lo, Hi]
type Range struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// R is shorthand for building a Range
func R(lo, hi float64) Range {
	return Range{Lo: lo, Hi: hi}
}

// Mid returns the midpoint of the range
func (r Range) Mid() float64 {
	return (r.Lo + r.Hi) / 2
}

// Width returns Hi-Lo
func (r Range) Width() float64 {
	return r.Hi - r.Lo
}

// Lerp interpolates linearly inside the range, frac 0 gives Lo and 1 gives Hi
func (r Range) Lerp(frac float64) float64 {
	return r.Lo + frac*(r.Hi-r.Lo)
}

// Contains reports whether v lies inside the closed range
func (r Range) Contains(v float64) bool {
	return v >= r.Lo && v <= r.Hi
}

// Clamp limits v to the range
func (r Range) Clamp(v float64) float64 {
	return Clamp(v, r.Lo, r.Hi)
}

// Sensor names
const (
	Acc1 = "acc1"
	Acc2 = "acc2"
	Acc3 = "acc3"

	T1 = "t1"
	T2 = "t2"
	T3 = "t3"
	T4 = "t4"
	T5 = "t5"
	T6 = "t6"
)

// Accelerometers lists the vibration sensors in column order
var Accelerometers = []string{Acc1, Acc2, Acc3}

// TempSensors lists the temperature sensors in column order
var TempSensors = []string{T1, T2, T3, T4, T5, T6}

// Axes lists the accelerometer axes in column order
var Axes = []string{"x", "y", "z"}

// ThermalState maps temperature sensor to its current temperature in °C
type ThermalState map[string]float64

// Clone returns an independent copy of the state
func (ts ThermalState) Clone() ThermalState {
	out := make(ThermalState, len(ts))
	for k, v := range ts {
		out[k] = v
	}
	return out
}

// IsFinite reports whether v is neither NaN nor ±Inf
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
