package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/features"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/labels"
)

// windowsTable holds one row per (truck, window)
const windowsTable = "truck_windows"

type dialect struct {
	timestamp string
	real      string
}

var (
	sqliteDialect   = dialect{timestamp: "TEXT", real: "REAL"}
	postgresDialect = dialect{timestamp: "TIMESTAMPTZ", real: "DOUBLE PRECISION"}
)

// windowsDDL builds the CREATE TABLE statement of the 229-column layout
func windowsDDL(d dialect) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", windowsTable)
	fmt.Fprintf(&b, "\ttimestamp %s NOT NULL,\n", d.timestamp)
	b.WriteString("\ttruck_id INTEGER NOT NULL,\n")
	b.WriteString("\tengine_type TEXT NOT NULL,\n")
	b.WriteString("\tday_index INTEGER NOT NULL,\n")
	for _, c := range features.Columns() {
		fmt.Fprintf(&b, "\t%s %s NOT NULL,\n", c, d.real)
	}
	b.WriteString("\tfault_mode TEXT NOT NULL,\n")
	b.WriteString("\tfault_severity TEXT NOT NULL,\n")
	fmt.Fprintf(&b, "\trul_hours %s NOT NULL,\n", d.real)
	b.WriteString("\tpath_a_label TEXT NOT NULL,\n")
	b.WriteString("\tPRIMARY KEY (truck_id, timestamp)\n)")
	return b.String()
}

// selectDayQuery selects one truck-day in window order. placeholder renders
// the n-th bind parameter.
func selectDayQuery(placeholder func(n int) string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE truck_id = %s AND day_index = %s ORDER BY timestamp",
		strings.Join(features.AllColumns(), ", "), windowsTable, placeholder(1), placeholder(2))
}

// scanRow reads one row in AllColumns order. ts receives the timestamp
// column and toTime converts it once scanned.
func scanRow(scan func(dest ...any) error, ts any, toTime func() (time.Time, error)) (Row, error) {
	var (
		r         Row
		engine    string
		mode, sev string
		rul       float64
		path      string
	)
	dest := make([]any, 0, len(features.AllColumns()))
	dest = append(dest, ts, &r.TruckID, &engine, &r.DayIndex)
	for i := range r.Features {
		dest = append(dest, &r.Features[i])
	}
	dest = append(dest, &mode, &sev, &rul, &path)

	if err := scan(dest...); err != nil {
		return Row{}, err
	}
	t, err := toTime()
	if err != nil {
		return Row{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	r.Timestamp = t
	r.EngineType = engine
	r.Label = labels.FromStored(mode, sev, rul, path)
	return r, nil
}

// RecordFromRows rebuilds a DayRecord from rows of a single truck-day
func RecordFromRows(rows []Row) (DayRecord, error) {
	if len(rows) == 0 {
		return DayRecord{}, ErrNotFound
	}
	engine, err := core.ParseEngineType(rows[0].EngineType)
	if err != nil {
		return DayRecord{}, err
	}
	rec := DayRecord{
		TruckID:    rows[0].TruckID,
		EngineType: engine,
		DayIndex:   rows[0].DayIndex,
		Features:   make([]features.Vector, len(rows)),
		Labels:     make([]labels.Label, len(rows)),
	}
	for i, r := range rows {
		rec.Features[i] = r.Features
		rec.Labels[i] = r.Label
	}
	return rec, nil
}
