package generator

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

// Progress is a point-in-time view of a running batch
type Progress struct {
	TotalDays     int           `json:"total_days"`
	Generated     int           `json:"generated_days"`
	Skipped       int           `json:"skipped_days"`
	TrucksDone    int           `json:"trucks_done"`
	TrucksFailed  int           `json:"trucks_failed"`
	Percent       float64       `json:"percent"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	DaysPerSecond float64       `json:"days_per_second"`
	ETA           time.Duration `json:"eta_ns"`
}

// Metrics collects batch progress. Prometheus collectors are exported for
// scraping and a mutex-guarded tally backs Snapshot. A nil *Metrics is a
// valid no-op collector.
type Metrics struct {
	daysTotal    *prometheus.CounterVec
	windowsTotal prometheus.Counter
	skippedTotal prometheus.Counter
	failedTotal  *prometheus.CounterVec
	dayDuration  prometheus.Histogram

	mu           sync.RWMutex
	startTime    time.Time
	totalDays    int
	generated    int
	skipped      int
	trucksDone   int
	trucksFailed int
}

// NewMetrics registers the batch collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		daysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truck_days_generated_total",
			Help: "Truck-days generated and stored, by engine type.",
		}, []string{"engine_type"}),
		windowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "truck_windows_generated_total",
			Help: "One-minute windows generated.",
		}),
		skippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "truck_days_skipped_total",
			Help: "Truck-days skipped because their output already existed.",
		}),
		failedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truck_failures_total",
			Help: "Trucks whose generation failed, by failing step.",
		}, []string{"step"}),
		dayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "truck_day_duration_seconds",
			Help:    "Time to generate and store one truck-day.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		startTime: time.Now(),
	}

	reg.MustRegister(
		m.daysTotal,
		m.windowsTotal,
		m.skippedTotal,
		m.failedTotal,
		m.dayDuration,
	)
	return m
}

// Start resets the tally for a batch of totalDays truck-days
func (m *Metrics) Start(totalDays int, now time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startTime = now
	m.totalDays = totalDays
	m.generated = 0
	m.skipped = 0
	m.trucksDone = 0
	m.trucksFailed = 0
}

// DayGenerated records a stored truck-day
func (m *Metrics) DayGenerated(engine core.EngineType, windows int, took time.Duration) {
	if m == nil {
		return
	}
	m.daysTotal.WithLabelValues(engine.String()).Inc()
	m.windowsTotal.Add(float64(windows))
	m.dayDuration.Observe(took.Seconds())

	m.mu.Lock()
	m.generated++
	m.mu.Unlock()
}

// DaySkipped records a truck-day that already existed
func (m *Metrics) DaySkipped() {
	if m == nil {
		return
	}
	m.skippedTotal.Inc()

	m.mu.Lock()
	m.skipped++
	m.mu.Unlock()
}

// TruckDone records a finished truck, failed or not
func (m *Metrics) TruckDone(failedStep string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trucksDone++
	if failedStep != "" {
		m.trucksFailed++
		m.failedTotal.WithLabelValues(failedStep).Inc()
	}
}

// Snapshot returns the current progress
func (m *Metrics) Snapshot(now time.Time) Progress {
	if m == nil {
		return Progress{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := Progress{
		TotalDays:    m.totalDays,
		Generated:    m.generated,
		Skipped:      m.skipped,
		TrucksDone:   m.trucksDone,
		TrucksFailed: m.trucksFailed,
		Elapsed:      now.Sub(m.startTime),
	}

	done := m.generated + m.skipped
	if m.totalDays > 0 {
		p.Percent = 100 * float64(done) / float64(m.totalDays)
	}
	if secs := p.Elapsed.Seconds(); secs > 0 && m.generated > 0 {
		p.DaysPerSecond = float64(m.generated) / secs
		remaining := m.totalDays - done
		if remaining > 0 {
			p.ETA = time.Duration(float64(remaining) / p.DaysPerSecond * float64(time.Second))
		}
	}
	return p
}
