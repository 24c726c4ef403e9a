package features

import (
	"math"
)

// Vector is one window's feature values in Columns() order
type Vector [NumFeatures]float64

// Get returns a feature by column name, NaN for unknown names
func (v *Vector) Get(name string) float64 {
	i, ok := columnIndex[name]
	if !ok {
		return math.NaN()
	}
	return v[i]
}

// Set writes a feature by column name and reports whether the name exists
func (v *Vector) Set(name string, value float64) bool {
	i, ok := columnIndex[name]
	if ok {
		v[i] = value
	}
	return ok
}

// Map returns the vector keyed by column name
func (v *Vector) Map() map[string]float64 {
	out := make(map[string]float64, NumFeatures)
	for i, c := range featureColumns {
		out[c] = v[i]
	}
	return out
}

// Finite reports whether every value is neither NaN nor infinite
func (v *Vector) Finite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v *Vector) conditioning() []float64 { return v[:vibrationOffset] }
func (v *Vector) vibration() []float64    { return v[vibrationOffset:thermalOffset] }
func (v *Vector) thermal() []float64      { return v[thermalOffset:] }

// cursor writes values sequentially in column order
type cursor struct {
	dst []float64
	i   int
}

func (c *cursor) put(vals ...float64) {
	for _, v := range vals {
		c.dst[c.i] = v
		c.i++
	}
}
