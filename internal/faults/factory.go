package faults

import (
	"fmt"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/degradation"
)

// New samples a fault instance of the given kind. The draw order is fixed:
// the degradation seed first, then the kind's parameters, so a schedule
// built from the same rng stream is reproducible.
func New(kind Kind, onsetHours float64, engine core.EngineType, p config.FaultParams, rng *core.NoiseGenerator) (*Fault, error) {
	seed := rng.Seed()

	var (
		totalLife float64
		deg       config.DegradationParams
		params    Params
	)

	switch kind {
	case KindBearing:
		b, ok := p.Bearing[engine]
		if !ok {
			return nil, fmt.Errorf("no bearing degradation parameters for %s engines", engine)
		}
		deg.Lambda = rng.UniformRange(b.Lambda)
		deg.Sigma = rng.UniformRange(b.Sigma)
		tStage2 := rng.UniformRange(b.TStage2)
		dt23 := rng.UniformRange(b.DT23)
		dt34 := rng.UniformRange(b.DT34)
		totalLife = tStage2 + dt23 + dt34

		sensor := core.Acc1
		if rng.UniformInt(0, 1) == 1 {
			sensor = core.Acc2
		}
		params = Bearing{Sensor: sensor, Stages: p.BearingStages}

	case KindCooling:
		totalLife = rng.UniformRange(p.CoolingProgression)
		params = Cooling{DeltaT1Max: rng.UniformRange(p.CoolingDelta)}
		deg = p.Cooling

	case KindValveTrain:
		totalLife = rng.UniformRange(p.ValveProgression)
		params = ValveTrain{
			EnergyMultiplierMax: rng.UniformRange(p.ValveEnergyMultiplier),
			KurtosisIncreaseMax: rng.UniformRange(p.ValveKurtosisIncrease),
		}
		deg = p.Valve

	case KindOil:
		totalLife = rng.UniformRange(p.OilProgression)
		params = Oil{DeltaT2Max: rng.UniformRange(p.OilDelta)}
		deg = p.Oil

	case KindTurbo:
		totalLife = rng.UniformRange(p.TurboProgression)
		params = Turbo{FactorMax: rng.UniformRange(p.TurboFactor)}
		deg = p.Turbo

	case KindInjector:
		totalLife = rng.UniformRange(p.InjectorProgression)
		params = Injector{
			DeltaT3Max:    rng.UniformRange(p.InjectorDeltaT3),
			DeltaInjector: rng.UniformRange(p.InjectorDeltaFull),
			WearMax:       p.InjectorWearMax,
		}
		deg = p.Injector

	case KindEGR:
		totalLife = rng.UniformRange(p.EGRProgression)
		params = EGR{
			DeltaT5Max:  rng.UniformRange(p.EGRDeltaT5),
			LeakT1:      rng.UniformRange(p.EGRLeakT1),
			LeakT5:      rng.UniformRange(p.EGRLeakT5),
			LeakPerHour: p.EGRLeakPerHour,
			FoulingMax:  p.EGRFoulingMax,
			Seed:        seed,
		}
		deg = p.EGR

	case KindDPF:
		totalLife = rng.UniformRange(p.DPFProgression)
		params = DPF{
			DeltaT3Max:    rng.UniformRange(p.DPFDeltaT3),
			RegenInterval: rng.UniformRange(p.DPFRegenInterval),
			Clearance:     p.DPFClearance,
			Floor:         p.DPFFloor,
		}
		deg = p.DPF

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFaultKind, int(kind))
	}

	model := degradation.New(p.Severity0, deg.Lambda, deg.Sigma, int(totalLife)+p.LifeMarginHours, seed)
	return NewFault(onsetHours, totalLife, model, params), nil
}
