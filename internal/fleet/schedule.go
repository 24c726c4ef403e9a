package fleet

import (
	"fmt"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/degradation"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/faults"
)

// Schedule maps truck id to the faults active on that truck
type Schedule map[int][]*faults.Fault

// Healthy counts trucks without faults
func (s Schedule) Healthy() int {
	n := 0
	for _, fs := range s {
		if len(fs) == 0 {
			n++
		}
	}
	return n
}

// scheduleSeedOffset separates the schedule stream from the split stream
const scheduleSeedOffset = 1000

// AssignFaults distributes fault counts over the trucks (healthy, single,
// double and triple by the configured fractions) and assigns fault kinds
// round-robin so all eight kinds stay balanced. A truck never gets the same
// kind twice.
func AssignFaults(trucks []Truck, seed int64, sim config.Simulation) (Schedule, error) {
	rng := core.NewNoiseGenerator(seed + scheduleSeedOffset)
	n := len(trucks)

	nHealthy := int(float64(n) * sim.Fleet.HealthyFraction)
	nSingle := int(float64(n) * sim.Fleet.SingleFraction)
	nDouble := int(float64(n) * sim.Fleet.DoubleFraction)
	nTriple := n - nHealthy - nSingle - nDouble

	counts := make([]int, 0, n)
	for c, k := range []int{nHealthy, nSingle, nDouble, nTriple} {
		for i := 0; i < k; i++ {
			counts = append(counts, c)
		}
	}
	rng.Shuffle(len(counts), func(i, j int) { counts[i], counts[j] = counts[j], counts[i] })

	kinds := faults.Kinds()
	maxOnset := sim.Fleet.TotalHours() * sim.Fleet.MaxOnsetFraction
	counter := 0

	schedule := make(Schedule, n)
	for i, truck := range trucks {
		used := make(map[faults.Kind]bool)
		var assigned []*faults.Fault

		for j := 0; j < counts[i]; j++ {
			kind := kinds[counter%len(kinds)]
			for attempt := 0; attempt < len(kinds); attempt++ {
				kind = kinds[(counter+attempt)%len(kinds)]
				if !used[kind] {
					break
				}
			}
			used[kind] = true
			counter = (counter + 1) % len(kinds)

			onset := rng.Uniform(0, maxOnset)
			f, err := faults.New(kind, onset, truck.EngineType, sim.Faults, rng)
			if err != nil {
				return nil, fmt.Errorf("truck %d: %w", truck.ID, err)
			}
			assigned = append(assigned, f)
		}
		schedule[truck.ID] = assigned
	}
	return schedule, nil
}

// ValidationTrucks is the number of trucks in the validation checkpoint
const ValidationTrucks = 10

// ValidationSchedule builds the controlled checkpoint schedule for the first
// ten trucks: two healthy, two bearing in stage3, two turbo, two injector and
// two with bearing plus turbo. Faults start before day 0 so day 0 already
// shows degradation.
func ValidationSchedule(trucks []Truck, p config.FaultParams) Schedule {
	schedule := make(Schedule, ValidationTrucks)

	bearing := func(seed int64) *faults.Fault {
		return faults.NewFault(-400, 500,
			degradation.New(0.01, 0.0002, 0.10, 600, seed),
			faults.Bearing{Sensor: core.Acc1, Stages: p.BearingStages})
	}
	turbo := func(seed int64) *faults.Fault {
		return faults.NewFault(-500, 700,
			degradation.New(0.01, 0.0003, 0.10, 800, seed),
			faults.Turbo{FactorMax: 0.3})
	}
	injector := func(seed int64) *faults.Fault {
		return faults.NewFault(-600, 800,
			degradation.New(0.01, 0.0002, 0.08, 900, seed),
			faults.Injector{DeltaT3Max: 55, DeltaInjector: 75, WearMax: p.InjectorWearMax})
	}

	for i, truck := range trucks {
		if i >= ValidationTrucks {
			break
		}
		n := int64(i)
		switch {
		case i < 2:
			schedule[truck.ID] = nil
		case i < 4:
			schedule[truck.ID] = []*faults.Fault{bearing(100 + n)}
		case i < 6:
			schedule[truck.ID] = []*faults.Fault{turbo(200 + n)}
		case i < 8:
			schedule[truck.ID] = []*faults.Fault{injector(300 + n)}
		default:
			schedule[truck.ID] = []*faults.Fault{bearing(400 + n), turbo(500 + n)}
		}
	}
	return schedule
}
