// Package faults implements the eight fault mechanisms of the engine model.
//
// A Fault is a closed tagged variant: the shared lifecycle state (onset,
// degradation curve, total life) lives on Fault and the per-mechanism
// parameters live in one of the Params types below. Effects dispatches on
// the parameter type.
package faults

import (
	"math"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/degradation"
)

// Path A risk labels
const (
	PathNormal   = "NORMAL"
	PathImminent = "IMMINENT"
	PathCritical = "CRITICAL"
)

// imminentLifeFraction splits stage3 into IMMINENT and CRITICAL
const imminentLifeFraction = 0.85

// Params is the sealed set of per-mechanism parameter records
type Params interface {
	Kind() Kind
	sealed()
}

// Fault is one fault instance on one truck. It is immutable after
// construction and Effects is a pure function of its arguments.
type Fault struct {
	onset       float64
	totalLife   float64
	degradation *degradation.Model
	params      Params
}

// NewFault assembles a fault from its lifecycle state and mechanism parameters
func NewFault(onsetHours, totalLifeHours float64, model *degradation.Model, params Params) *Fault {
	return &Fault{
		onset:       onsetHours,
		totalLife:   totalLifeHours,
		degradation: model,
		params:      params,
	}
}

// Kind returns the fault mechanism
func (f *Fault) Kind() Kind {
	return f.params.Kind()
}

// ID returns the fault identifier, e.g. "FM-01"
func (f *Fault) ID() string {
	return f.Kind().String()
}

// Params returns the mechanism parameters
func (f *Fault) Params() Params {
	return f.params
}

// OnsetHours returns the absolute onset time
func (f *Fault) OnsetHours() float64 {
	return f.onset
}

// TotalLifeHours returns the time from onset to end of life
func (f *Fault) TotalLifeHours() float64 {
	return f.totalLife
}

// TimeSinceOnset returns hours elapsed since onset, never negative
func (f *Fault) TimeSinceOnset(t float64) float64 {
	return math.Max(0, t-f.onset)
}

// Severity returns the severity in [0, 1] at absolute time t
func (f *Fault) Severity(t float64) float64 {
	dt := f.TimeSinceOnset(t)
	if dt <= 0 {
		return 0
	}
	return f.degradation.SeverityAt(dt)
}

// Stage returns the degradation stage at absolute time t
func (f *Fault) Stage(t float64) core.Stage {
	return degradation.StageAt(f.TimeSinceOnset(t), f.totalLife)
}

// RUL returns the remaining useful life in hours at absolute time t
func (f *Fault) RUL(t float64) float64 {
	return math.Max(0, f.onset+f.totalLife-t)
}

// LifeFraction returns elapsed life over total life, 1 for a zero life
func (f *Fault) LifeFraction(t float64) float64 {
	if f.totalLife <= 0 {
		return 1
	}
	return f.TimeSinceOnset(t) / f.totalLife
}

// PathALabel classifies the fault's risk at absolute time t
func (f *Fault) PathALabel(t float64) string {
	switch f.Stage(t) {
	case core.StageHealthy, core.Stage2:
		return PathNormal
	case core.Stage3:
		if f.LifeFraction(t) < imminentLifeFraction {
			return PathImminent
		}
		return PathCritical
	default:
		return PathCritical
	}
}

// Effects computes the feature effects of the fault at absolute time t
func (f *Fault) Effects(t, rpm, load float64) Effect {
	sev := f.Severity(t)
	if sev <= 0 {
		return Effect{}
	}
	stage := f.Stage(t)

	switch p := f.params.(type) {
	case Bearing:
		return p.effects(stage, sev, load)
	case Cooling:
		return p.effects(sev, load)
	case ValveTrain:
		return p.effects(sev)
	case Oil:
		return p.effects(sev, load)
	case Turbo:
		return p.effects(stage, sev)
	case Injector:
		return p.effects(sev)
	case EGR:
		return p.effects(stage, sev, t)
	case DPF:
		return p.effects(sev, f.TimeSinceOnset(t))
	default:
		return Effect{}
	}
}
