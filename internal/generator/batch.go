package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/faults"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/fleet"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/stream"
)

// AllDays selects every day of the horizon in BatchOptions.SingleDay
const AllDays = -1

// Failing steps reported to metrics
const (
	stepLoadState = "load_state"
	stepCheck     = "check_existing"
	stepWrite     = "write"
	stepSaveState = "save_state"
	stepCancelled = "cancelled"
)

// BatchOptions selects what a batch generates and how it reacts to failure
type BatchOptions struct {
	Seed          int64
	Days          int
	SingleTruck   int // 0 for every truck
	SingleDay     int // AllDays for every day
	SkipExisting  bool
	Workers       int
	FailurePolicy string
	StoreName     string
}

// Batch generates truck-days for a fleet into a store. Trucks run in
// parallel and the days of one truck run in order so thermal state carries
// forward through the store.
type Batch struct {
	gen       *TruckDay
	store     storage.Store
	publisher stream.Publisher
	metrics   *Metrics
	opts      BatchOptions
}

// NewBatch wires a batch. publisher and metrics may be nil.
func NewBatch(gen *TruckDay, store storage.Store, publisher stream.Publisher, metrics *Metrics, opts BatchOptions) *Batch {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = config.FailureIsolate
	}
	return &Batch{gen: gen, store: store, publisher: publisher, metrics: metrics, opts: opts}
}

// truckResult is the outcome of one truck
type truckResult struct {
	generated  int
	skipped    int
	failedStep string
	err        error
}

// TruckError is returned by a fail-fast batch for the truck that failed
type TruckError struct {
	TruckID int
	Step    string
	Err     error
}

func (e *TruckError) Error() string {
	return fmt.Sprintf("truck %d: %s: %v", e.TruckID, e.Step, e.Err)
}

func (e *TruckError) Unwrap() error {
	return e.Err
}

func (b *Batch) days() []int {
	if b.opts.SingleDay != AllDays {
		return []int{b.opts.SingleDay}
	}
	days := make([]int, b.opts.Days)
	for i := range days {
		days[i] = i
	}
	return days
}

func (b *Batch) selectTrucks(trucks []fleet.Truck) ([]fleet.Truck, error) {
	if b.opts.SingleTruck == 0 {
		return trucks, nil
	}
	for _, t := range trucks {
		if t.ID == b.opts.SingleTruck {
			return []fleet.Truck{t}, nil
		}
	}
	return nil, fmt.Errorf("truck %d is not part of the fleet", b.opts.SingleTruck)
}

// Run generates every selected truck-day and writes the run manifest. Under
// the isolate policy failing trucks are logged and counted in the manifest;
// under fail-fast the first failure cancels the rest and is returned.
func (b *Batch) Run(ctx context.Context, trucks []fleet.Truck, schedule fleet.Schedule) (storage.Manifest, error) {
	selected, err := b.selectTrucks(trucks)
	if err != nil {
		return storage.Manifest{}, err
	}
	days := b.days()
	for _, d := range days {
		if d < 0 {
			return storage.Manifest{}, fmt.Errorf("invalid day index %d", d)
		}
	}

	start := time.Now()
	b.metrics.Start(len(selected)*len(days), start)

	log.Info().
		Int("trucks", len(selected)).
		Int("days", len(days)).
		Int("workers", b.opts.Workers).
		Str("failure_policy", b.opts.FailurePolicy).
		Msg("Starting generation")

	var (
		mu      sync.Mutex
		results = make(map[int]truckResult, len(selected))
	)
	record := func(id int, r truckResult) {
		mu.Lock()
		results[id] = r
		mu.Unlock()
	}

	var runErr error
	switch b.opts.FailurePolicy {
	case config.FailureFailFast:
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.opts.Workers)
		for _, truck := range selected {
			g.Go(func() error {
				r := b.runTruck(gctx, truck, schedule[truck.ID], days)
				record(truck.ID, r)
				if r.err != nil {
					return &TruckError{TruckID: truck.ID, Step: r.failedStep, Err: r.err}
				}
				return nil
			})
		}
		runErr = g.Wait()

	default:
		wp := workerpool.New(b.opts.Workers)
		for _, truck := range selected {
			wp.Submit(func() {
				r := b.runTruck(ctx, truck, schedule[truck.ID], days)
				record(truck.ID, r)
				if r.err != nil {
					log.Error().Err(r.err).Int("truck_id", truck.ID).Str("step", r.failedStep).Msg("Truck failed, continuing")
				}
			})
		}
		wp.StopWait()
		if err := ctx.Err(); err != nil {
			runErr = err
		}
	}

	m := storage.Manifest{
		RunID:      uuid.NewString(),
		StartedAt:  start.UTC(),
		FinishedAt: time.Now().UTC(),
		Seed:       b.opts.Seed,
		Trucks:     len(selected),
		Days:       len(days),
		Policy:     b.opts.FailurePolicy,
		Store:      b.opts.StoreName,
	}
	for _, truck := range selected {
		if len(schedule[truck.ID]) == 0 {
			m.HealthyTrucks++
		} else {
			m.FaultyTrucks++
		}
		r := results[truck.ID]
		m.Generated += r.generated
		m.Skipped += r.skipped
		if r.err != nil {
			m.Failed++
		}
	}
	m.TotalWindows = m.Generated * core.WindowsPerDay
	m.DurationSec = m.FinishedAt.Sub(m.StartedAt).Seconds()

	if err := b.store.WriteManifest(context.WithoutCancel(ctx), m); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("write manifest: %w", err))
	}

	log.Info().
		Str("run_id", m.RunID).
		Int("generated", m.Generated).
		Int("skipped", m.Skipped).
		Int("failed_trucks", m.Failed).
		Float64("duration_s", m.DurationSec).
		Msg("Generation finished")

	return m, runErr
}

// runTruck generates the days of one truck in order
func (b *Batch) runTruck(ctx context.Context, truck fleet.Truck, active []*faults.Fault, days []int) truckResult {
	var res truckResult
	defer func() { b.metrics.TruckDone(res.failedStep) }()

	defaults := b.gen.Simulation().Engines[truck.EngineType].DefaultIdleTemps()

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			res.failedStep, res.err = stepCancelled, err
			return res
		}

		if b.opts.SkipExisting {
			ok, err := b.store.Exists(ctx, truck.ID, day)
			if err != nil {
				res.failedStep, res.err = stepCheck, err
				return res
			}
			if ok {
				res.skipped++
				b.metrics.DaySkipped()
				continue
			}
		}

		started := time.Now()
		initial, err := storage.InitialTemps(ctx, b.store, truck.ID, day, defaults)
		if err != nil {
			res.failedStep, res.err = stepLoadState, err
			return res
		}

		out := b.gen.Generate(truck.Profile, truck.EngineType, day, active, initial, truck.DaySeed(day))
		rec := storage.DayRecord{
			TruckID:    truck.ID,
			EngineType: truck.EngineType,
			DayIndex:   day,
			Features:   out.Features,
			Labels:     out.Labels,
		}

		// state first: a day marked complete always has its successor's start state
		if err := b.store.SaveThermalState(ctx, truck.ID, day, out.FinalTemps); err != nil {
			res.failedStep, res.err = stepSaveState, err
			return res
		}
		if err := b.store.WriteTruckDay(ctx, rec); err != nil {
			res.failedStep, res.err = stepWrite, err
			return res
		}
		res.generated++
		b.metrics.DayGenerated(truck.EngineType, len(out.Features), time.Since(started))

		if b.publisher != nil {
			if err := b.publisher.PublishDay(ctx, rec); err != nil {
				log.Warn().Err(err).Int("truck_id", truck.ID).Int("day", day).Msg("Publishing failed")
			}
		}

		log.Debug().
			Int("truck_id", truck.ID).
			Int("day", day).
			Str("end_label", out.Labels[len(out.Labels)-1].FaultMode).
			Dur("took", time.Since(started)).
			Msg("Truck-day generated")
	}
	return res
}
