// Package replay plays a generated truck-day back in real time, one window
// per tick scaled by the runtime speed, and mirrors the current window into
// OPC UA nodes and live subscribers.
package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/stream"
)

// subscriberBuffer is the number of events a slow subscriber may lag behind
const subscriberBuffer = 64

// DaySource provides truck-days to replay
type DaySource interface {
	Day(ctx context.Context, truckID, day int) (storage.DayRecord, error)
	Days() int
}

// NodeSink receives the node values of the current window
type NodeSink interface {
	UpdateNamespaceValues(nsIndex uint16, values map[string]interface{})
}

// Runner advances through a truck-day. The truck and day follow the
// runtime config; at the end of a day it moves on to the next one.
type Runner struct {
	source  DaySource
	runtime *config.RuntimeConfig
	sink    NodeSink

	mu      sync.RWMutex
	rec     storage.DayRecord
	loaded  bool
	pos     float64
	current stream.WindowEvent
	hasCur  bool
	subs    map[chan stream.WindowEvent]struct{}
}

// NewRunner creates a runner. sink may be nil.
func NewRunner(source DaySource, runtime *config.RuntimeConfig, sink NodeSink) *Runner {
	return &Runner{
		source:  source,
		runtime: runtime,
		sink:    sink,
		subs:    make(map[chan stream.WindowEvent]struct{}),
	}
}

// Run ticks until ctx is cancelled. Tick errors are logged and the replay
// carries on with the next tick.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.runtime.GetInterval())
	defer ticker.Stop()

	log.Info().
		Dur("interval", r.runtime.GetInterval()).
		Float64("speed", r.runtime.GetSpeed()).
		Msg("Replay started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Replay stopped")
			r.closeSubscribers()
			return
		case <-ticker.C:
			if err := r.Step(ctx); err != nil {
				log.Error().Err(err).Msg("Replay step failed")
			}
		}
	}
}

// Step advances by the runtime speed and publishes the window reached
func (r *Runner) Step(ctx context.Context) error {
	snap := r.runtime.Snapshot()

	r.mu.Lock()
	if !r.loaded || r.rec.TruckID != snap.TruckID || r.rec.DayIndex != snap.DayIndex {
		r.mu.Unlock()
		if err := r.load(ctx, snap.TruckID, snap.DayIndex); err != nil {
			return err
		}
		r.mu.Lock()
	} else {
		r.pos += snap.Speed
	}

	if r.pos >= float64(len(r.rec.Features)) {
		next := (r.rec.DayIndex + 1) % r.source.Days()
		truck := r.rec.TruckID
		r.mu.Unlock()
		if err := r.runtime.SetTruckDay(truck, next); err != nil {
			return err
		}
		if err := r.load(ctx, truck, next); err != nil {
			return err
		}
		r.mu.Lock()
	}

	w := int(r.pos)
	ev := stream.NewWindowEvent(r.rec, w)
	r.current, r.hasCur = ev, true
	values := NodeValues(r.rec, w)
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.UpdateNamespaceValues(core.NamespaceTruck, values)
	}

	// sends never block, so holding the read lock keeps unsubscribe from
	// closing a channel mid-send
	r.mu.RLock()
	for ch := range r.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	r.mu.RUnlock()
	return nil
}

func (r *Runner) load(ctx context.Context, truckID, day int) error {
	rec, err := r.source.Day(ctx, truckID, day)
	if err != nil {
		return fmt.Errorf("load truck %d day %d: %w", truckID, day, err)
	}
	if len(rec.Features) == 0 {
		return fmt.Errorf("truck %d day %d has no windows", truckID, day)
	}

	r.mu.Lock()
	r.rec, r.loaded, r.pos = rec, true, 0
	r.mu.Unlock()

	log.Info().Int("truck_id", truckID).Int("day", day).Msg("Replaying truck-day")
	return nil
}

// Current returns the last published window
func (r *Runner) Current() (stream.WindowEvent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.hasCur
}

// Subscribe registers a listener for replayed windows. Events are dropped
// when the listener falls behind. The returned func unsubscribes.
func (r *Runner) Subscribe() (<-chan stream.WindowEvent, func()) {
	ch := make(chan stream.WindowEvent, subscriberBuffer)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			if _, ok := r.subs[ch]; ok {
				delete(r.subs, ch)
				close(ch)
			}
			r.mu.Unlock()
		})
	}
}

func (r *Runner) closeSubscribers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subs {
		close(ch)
		delete(r.subs, ch)
	}
}

// NodeValues maps window w of a truck-day onto core.TruckNodes
func NodeValues(rec storage.DayRecord, w int) map[string]interface{} {
	f := &rec.Features[w]
	l := rec.Labels[w]

	values := map[string]interface{}{
		"TruckID":       int32(rec.TruckID),
		"EngineType":    rec.EngineType.String(),
		"DayIndex":      int32(rec.DayIndex),
		"Window":        int32(w),
		"RPMEstimate":   f.Get("rpm_est"),
		"LoadProxy":     f.Get("load_proxy"),
		"FaultMode":     l.FaultMode,
		"FaultSeverity": l.FaultSeverity,
		"RULHours":      l.StoredRUL(),
		"PathALabel":    l.PathALabel,
	}
	for _, s := range core.TempSensors {
		values[s+"_mean"] = f.Get(s + "_mean")
	}
	for _, s := range core.Accelerometers {
		values[s+"_rms_x_mean"] = f.Get(s + "_rms_x_mean")
	}
	return values
}
