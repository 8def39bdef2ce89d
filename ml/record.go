package ml

import (
	"fmt"
	"math"
)

// FeatureCount is the width of every feature vector the pipeline accepts.
const FeatureCount = 7

// MeasurementRecord is one row of soil and climate measurements.
type MeasurementRecord struct {
	N           float64 `json:"N"`
	P           float64 `json:"P"`
	K           float64 `json:"K"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	PH          float64 `json:"ph"`
	Rainfall    float64 `json:"rainfall"`
}

// FeatureNames returns the column names in training order.
func FeatureNames() []string {
	return []string{
		"N",
		"P",
		"K",
		"temperature",
		"humidity",
		"ph",
		"rainfall",
	}
}

// Vector returns the record in the same order as FeatureNames.
func (r MeasurementRecord) Vector() []float64 {
	return []float64{
		r.N,
		r.P,
		r.K,
		r.Temperature,
		r.Humidity,
		r.PH,
		r.Rainfall,
	}
}

// Values returns the record keyed by feature name.
func (r MeasurementRecord) Values() map[string]float64 {
	names := FeatureNames()
	vector := r.Vector()
	values := make(map[string]float64, len(names))
	for i, name := range names {
		values[name] = vector[i]
	}
	return values
}

// RecordFromMap builds a record from named values. Every feature must be present.
func RecordFromMap(values map[string]float64) (MeasurementRecord, error) {
	vector := make([]float64, FeatureCount)
	for i, name := range FeatureNames() {
		value, ok := values[name]
		if !ok {
			return MeasurementRecord{}, fmt.Errorf("missing feature %q", name)
		}
		vector[i] = value
	}
	return RecordFromVector(vector)
}

// RecordFromVector is the inverse of Vector.
func RecordFromVector(vector []float64) (MeasurementRecord, error) {
	if len(vector) != FeatureCount {
		return MeasurementRecord{}, fmt.Errorf("expected %d features, got %d", FeatureCount, len(vector))
	}
	return MeasurementRecord{
		N:           vector[0],
		P:           vector[1],
		K:           vector[2],
		Temperature: vector[3],
		Humidity:    vector[4],
		PH:          vector[5],
		Rainfall:    vector[6],
	}, nil
}

// FeatureSpec describes the input slider for one feature.
type FeatureSpec struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Unit    string  `json:"unit,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Step    float64 `json:"step"`
	Integer bool    `json:"integer"`
}

// FeatureSpecs returns slider metadata in training order.
func FeatureSpecs() []FeatureSpec {
	return []FeatureSpec{
		{Name: "N", Label: "Nitrogen (N)", Unit: "kg/ha", Min: 0, Max: 150, Default: 90, Step: 1, Integer: true},
		{Name: "P", Label: "Phosphorus (P)", Unit: "kg/ha", Min: 0, Max: 150, Default: 42, Step: 1, Integer: true},
		{Name: "K", Label: "Potassium (K)", Unit: "kg/ha", Min: 0, Max: 150, Default: 43, Step: 1, Integer: true},
		{Name: "temperature", Label: "Temperature", Unit: "°C", Min: 0, Max: 50, Default: 20.8, Step: 0.1},
		{Name: "humidity", Label: "Relative Humidity", Unit: "%", Min: 0, Max: 100, Default: 82, Step: 0.1},
		{Name: "ph", Label: "Soil pH", Min: 0, Max: 14, Default: 6.5, Step: 0.1},
		{Name: "rainfall", Label: "Rainfall", Unit: "mm/year", Min: 0, Max: 500, Default: 203, Step: 0.1},
	}
}

// DefaultRecord returns the slider defaults.
func DefaultRecord() MeasurementRecord {
	specs := FeatureSpecs()
	vector := make([]float64, len(specs))
	for i, spec := range specs {
		vector[i] = spec.Default
	}
	record, _ := RecordFromVector(vector)
	return record
}

// BoundsError reports a value outside its slider range.
type BoundsError struct {
	Feature string
	Value   float64
	Min     float64
	Max     float64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s=%g outside [%g, %g]", e.Feature, e.Value, e.Min, e.Max)
}

// CheckBounds enforces the slider ranges. It is the only input validation performed.
func CheckBounds(r MeasurementRecord) error {
	vector := r.Vector()
	for i, spec := range FeatureSpecs() {
		value := vector[i]
		if math.IsNaN(value) || math.IsInf(value, 0) || value < spec.Min || value > spec.Max {
			return &BoundsError{Feature: spec.Name, Value: value, Min: spec.Min, Max: spec.Max}
		}
	}
	return nil
}
