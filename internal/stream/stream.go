// Package stream fans generated truck-days out to message brokers.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/features"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/labels"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
)

// Publisher receives every truck-day once it has been stored
type Publisher interface {
	PublishDay(ctx context.Context, rec storage.DayRecord) error
	Close() error
}

// WindowEvent is the payload of one window on the wire
type WindowEvent struct {
	Timestamp  time.Time          `json:"timestamp"`
	TruckID    int                `json:"truck_id"`
	EngineType string             `json:"engine_type"`
	DayIndex   int                `json:"day_index"`
	Window     int                `json:"window"`
	Features   map[string]float64 `json:"features"`
	Label      labels.Label       `json:"label"`
}

// NewWindowEvent builds the event of window w of a truck-day
func NewWindowEvent(rec storage.DayRecord, w int) WindowEvent {
	return WindowEvent{
		Timestamp:  storage.WindowTime(storage.BaseTime, rec.DayIndex, w),
		TruckID:    rec.TruckID,
		EngineType: rec.EngineType.String(),
		DayIndex:   rec.DayIndex,
		Window:     w,
		Features:   rec.Features[w].Map(),
		Label:      rec.Labels[w],
	}
}

// DaySummary condenses a truck-day for dashboards and alerting
type DaySummary struct {
	TruckID       int          `json:"truck_id"`
	EngineType    string       `json:"engine_type"`
	DayIndex      int          `json:"day_index"`
	Windows       int          `json:"windows"`
	FaultyWindows int          `json:"faulty_windows"`
	MaxT3         float64      `json:"max_t3"`
	MaxAcc1RMS    float64      `json:"max_acc1_rms"`
	EndLabel      labels.Label `json:"end_label"`
}

// Summarize builds the summary of a truck-day
func Summarize(rec storage.DayRecord) DaySummary {
	s := DaySummary{
		TruckID:    rec.TruckID,
		EngineType: rec.EngineType.String(),
		DayIndex:   rec.DayIndex,
		Windows:    len(rec.Features),
	}
	t3, _ := features.Index("t3_max")
	rms, _ := features.Index("acc1_rms_x_mean")
	for w, v := range rec.Features {
		if w == 0 || v[t3] > s.MaxT3 {
			s.MaxT3 = v[t3]
		}
		if w == 0 || v[rms] > s.MaxAcc1RMS {
			s.MaxAcc1RMS = v[rms]
		}
		if !rec.Labels[w].IsHealthy() {
			s.FaultyWindows++
		}
	}
	if n := len(rec.Labels); n > 0 {
		s.EndLabel = rec.Labels[n-1]
	} else {
		s.EndLabel = labels.HealthyLabel()
	}
	return s
}

// Multi publishes to every publisher and joins their errors
type Multi []Publisher

func (m Multi) PublishDay(ctx context.Context, rec storage.DayRecord) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishDay(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New connects the publishers named in cfg.Publishers. It returns nil when
// none are configured.
func New(ctx context.Context, cfg *config.Config) (Publisher, error) {
	if len(cfg.Publishers) == 0 {
		return nil, nil
	}

	var out Multi
	for _, name := range cfg.Publishers {
		var (
			p   Publisher
			err error
		)
		switch name {
		case config.PublisherKafka:
			p = NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		case config.PublisherRedis:
			p, err = NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		case config.PublisherMQTT:
			p, err = NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTTopicPrefix)
		default:
			err = fmt.Errorf("unknown publisher %q", name)
		}
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("publisher %s: %w", name, err)
		}
		out = append(out, p)
	}
	return out, nil
}
