package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/features"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/labels"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
)

func sampleRecord() storage.DayRecord {
	rec := storage.DayRecord{
		TruckID:    12,
		EngineType: core.EngineModern,
		DayIndex:   3,
		Features:   make([]features.Vector, 3),
		Labels:     []labels.Label{labels.HealthyLabel(), labels.HealthyLabel(), {FaultMode: "FM-05", FaultSeverity: "STAGE_2", RULHours: 120, PathALabel: "NORMAL"}},
	}
	for w := range rec.Features {
		rec.Features[w].Set("t3_max", 400+float64(w)*50)
		rec.Features[w].Set("acc1_rms_x_mean", 0.3-float64(w)*0.1)
	}
	return rec
}

type recordingPublisher struct {
	days   int
	closed bool
	err    error
}

func (r *recordingPublisher) PublishDay(context.Context, storage.DayRecord) error {
	r.days++
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return r.err
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleRecord())
	if s.Windows != 3 || s.FaultyWindows != 1 {
		t.Fatalf("windows=%d faulty=%d, want 3 and 1", s.Windows, s.FaultyWindows)
	}
	if s.MaxT3 != 500 {
		t.Errorf("MaxT3 = %v, want 500", s.MaxT3)
	}
	if s.MaxAcc1RMS != 0.3 {
		t.Errorf("MaxAcc1RMS = %v, want 0.3", s.MaxAcc1RMS)
	}
	if s.EndLabel.FaultMode != "FM-05" {
		t.Errorf("EndLabel = %+v", s.EndLabel)
	}
}

func TestSummarizeEmptyDay(t *testing.T) {
	s := Summarize(storage.DayRecord{TruckID: 1})
	if !s.EndLabel.IsHealthy() {
		t.Fatalf("empty day end label = %+v, want healthy", s.EndLabel)
	}
}

func TestDayMessages(t *testing.T) {
	rec := sampleRecord()
	msgs, err := dayMessages(rec)
	if err != nil {
		t.Fatalf("dayMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for _, m := range msgs {
		if string(m.Key) != "12" {
			t.Fatalf("key = %q, want 12", m.Key)
		}
	}

	var ev struct {
		Window   int                `json:"window"`
		Features map[string]float64 `json:"features"`
		Label    struct {
			RULHours float64 `json:"rul_hours"`
		} `json:"label"`
	}
	if err := json.Unmarshal(msgs[1].Value, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Window != 1 || ev.Features["t3_max"] != 450 {
		t.Errorf("event = %+v", ev)
	}
	if len(ev.Features) != features.NumFeatures {
		t.Errorf("event has %d features, want %d", len(ev.Features), features.NumFeatures)
	}
	if ev.Label.RULHours != labels.StoredInfiniteRUL {
		t.Errorf("healthy rul on the wire = %v, want %v", ev.Label.RULHours, labels.StoredInfiniteRUL)
	}
	if !msgs[2].Time.Equal(storage.WindowTime(storage.BaseTime, 3, 2)) {
		t.Errorf("message time = %v", msgs[2].Time)
	}
}

func TestSummaryFields(t *testing.T) {
	f := summaryFields(Summarize(sampleRecord()))
	if f["fault_mode"] != "FM-05" || f["rul_hours"] != 120.0 {
		t.Fatalf("fields = %v", f)
	}
}

func TestSummaryTopic(t *testing.T) {
	if got := SummaryTopic("trucks", 7); got != "trucks/truck_007/summary" {
		t.Fatalf("SummaryTopic = %q", got)
	}
}

func TestMulti(t *testing.T) {
	ok := &recordingPublisher{}
	bad := &recordingPublisher{err: errors.New("broker down")}
	m := Multi{ok, bad}

	err := m.PublishDay(context.Background(), sampleRecord())
	if err == nil {
		t.Fatal("expected joined error")
	}
	if ok.days != 1 || bad.days != 1 {
		t.Fatalf("publishers called %d and %d times, want 1 each", ok.days, bad.days)
	}
	if err := m.Close(); err == nil {
		t.Fatal("expected close error")
	}
	if !ok.closed || !bad.closed {
		t.Fatal("every publisher must be closed")
	}
}

func TestNewWithoutPublishers(t *testing.T) {
	p, err := New(context.Background(), &config.Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p != nil {
		t.Fatalf("New = %v, want nil", p)
	}
}
