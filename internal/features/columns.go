// Package features synthesizes the per-window feature vector: conditioning,
// vibration and thermal features in a fixed column order.
package features

import (
	"fmt"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

// Feature block sizes
const (
	NumConditioning = 2
	NumVibration    = 180
	NumThermal      = 39
	NumFeatures     = NumConditioning + NumVibration + NumThermal

	vibrationOffset = NumConditioning
	thermalOffset   = NumConditioning + NumVibration
)

// Band names per accelerometer family, in column order
var (
	BandsAcc12 = []string{"low", "mid_low", "mid_high", "high"}
	BandsAcc3  = []string{"low", "broadband"}
)

var (
	metadataColumns     = []string{"timestamp", "truck_id", "engine_type", "day_index"}
	conditioningColumns = []string{"rpm_est", "load_proxy"}
	labelColumns        = []string{"fault_mode", "fault_severity", "rul_hours", "path_a_label"}
	thermalStats        = []string{"mean", "std", "max", "min", "range", "slope"}

	featureColumns []string
	allColumns     []string
	columnIndex    map[string]int
)

func init() {
	vib := vibrationColumns()
	therm := thermalColumns()
	if len(vib) != NumVibration || len(therm) != NumThermal {
		panic(fmt.Sprintf("feature column drift: %d vibration (want %d), %d thermal (want %d)",
			len(vib), NumVibration, len(therm), NumThermal))
	}

	featureColumns = make([]string, 0, NumFeatures)
	featureColumns = append(featureColumns, conditioningColumns...)
	featureColumns = append(featureColumns, vib...)
	featureColumns = append(featureColumns, therm...)
	if len(featureColumns) != NumFeatures {
		panic(fmt.Sprintf("feature column drift: %d features, want %d", len(featureColumns), NumFeatures))
	}

	allColumns = make([]string, 0, len(metadataColumns)+NumFeatures+len(labelColumns))
	allColumns = append(allColumns, metadataColumns...)
	allColumns = append(allColumns, featureColumns...)
	allColumns = append(allColumns, labelColumns...)

	columnIndex = make(map[string]int, NumFeatures)
	for i, c := range featureColumns {
		columnIndex[c] = i
	}
}

// SensorBands returns the band names of an accelerometer
func SensorBands(sensor string) []string {
	if sensor == core.Acc3 {
		return BandsAcc3
	}
	return BandsAcc12
}

func vibrationColumns() []string {
	var cols []string
	for _, s := range core.Accelerometers {
		for _, ax := range core.Axes {
			cols = append(cols,
				s+"_rms_"+ax+"_mean",
				s+"_rms_"+ax+"_std",
				s+"_peak_"+ax+"_mean",
				s+"_crest_factor_"+ax+"_mean",
				s+"_kurtosis_"+ax+"_mean",
				s+"_kurtosis_"+ax+"_max",
			)
			for _, b := range SensorBands(s) {
				prefix := s + "_band_" + b
				cols = append(cols,
					prefix+"_energy_"+ax+"_mean",
					prefix+"_energy_"+ax+"_std",
					prefix+"_peak_freq_"+ax+"_mean",
					prefix+"_centroid_"+ax+"_mean",
				)
			}
		}
		cols = append(cols, s+"_sk_max_value", s+"_sk_max_freq")
	}
	return cols
}

func thermalColumns() []string {
	var cols []string
	for _, s := range core.TempSensors {
		for _, stat := range thermalStats {
			cols = append(cols, s+"_"+stat)
		}
	}
	return append(cols, "t3_t4_delta", "t1_t5_delta", "t3_exceedance_duration")
}

// Columns returns the 221 feature names in canonical order
func Columns() []string {
	return append([]string(nil), featureColumns...)
}

// AllColumns returns the 229 output columns: metadata, features, labels
func AllColumns() []string {
	return append([]string(nil), allColumns...)
}

// MetadataColumns returns the leading identification columns
func MetadataColumns() []string {
	return append([]string(nil), metadataColumns...)
}

// LabelColumns returns the trailing ground-truth columns
func LabelColumns() []string {
	return append([]string(nil), labelColumns...)
}

// Index returns the position of a feature column
func Index(name string) (int, bool) {
	i, ok := columnIndex[name]
	return i, ok
}
