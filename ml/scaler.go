package ml

import (
	"errors"
	"fmt"
)

// Scaler is the preprocessing step that runs before the estimator.
type Scaler interface {
	Transform(values []float64) ([]float64, error)
}

type scalerSpec struct {
	Type  string    `json:"type"`
	Mean  []float64 `json:"mean,omitempty"`
	Scale []float64 `json:"scale,omitempty"`
	Min   []float64 `json:"min,omitempty"`
	Max   []float64 `json:"max,omitempty"`
}

// StandardScaler centres each feature and divides by its scale. A zero scale
// is treated as one.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) != FeatureCount || len(scale) != FeatureCount {
		return nil, fmt.Errorf("standard scaler needs %d means and scales", FeatureCount)
	}
	if !allFinite(mean) || !allFinite(scale) {
		return nil, errors.New("standard scaler has non-finite parameters")
	}
	return &StandardScaler{mean: mean, scale: scale}, nil
}

func (s *StandardScaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.mean) {
		return nil, errors.New("values/mean length mismatch")
	}
	result := make([]float64, len(values))
	for i, v := range values {
		scale := s.scale[i]
		if scale == 0 {
			scale = 1
		}
		result[i] = (v - s.mean[i]) / scale
	}
	return result, nil
}

// MinMaxScaler maps each feature onto [0, 1] using the training range.
type MinMaxScaler struct {
	mins []float64
	maxs []float64
}

func NewMinMaxScaler(mins, maxs []float64) (*MinMaxScaler, error) {
	if len(mins) != FeatureCount || len(maxs) != FeatureCount {
		return nil, fmt.Errorf("minmax scaler needs %d mins and maxs", FeatureCount)
	}
	if !allFinite(mins) || !allFinite(maxs) {
		return nil, errors.New("minmax scaler has non-finite parameters")
	}
	return &MinMaxScaler{mins: mins, maxs: maxs}, nil
}

func (s *MinMaxScaler) Transform(values []float64) ([]float64, error) {
	return NormalizeVector(values, s.mins, s.maxs)
}

func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}

func NormalizeVector(values []float64, mins []float64, maxs []float64) ([]float64, error) {
	if len(values) != len(mins) || len(values) != len(maxs) {
		return nil, errors.New("values/mins/maxs length mismatch")
	}
	result := make([]float64, len(values))
	for i := range values {
		result[i] = NormalizeFeature(values[i], mins[i], maxs[i])
	}
	return result, nil
}

func newScaler(spec *scalerSpec) (Scaler, error) {
	if spec == nil {
		return nil, nil
	}
	switch spec.Type {
	case "standard":
		return NewStandardScaler(spec.Mean, spec.Scale)
	case "minmax":
		return NewMinMaxScaler(spec.Min, spec.Max)
	default:
		return nil, fmt.Errorf("unsupported scaler type %q", spec.Type)
	}
}
