package ml

import (
	"fmt"
	"slices"
)

// Pipeline chains an optional scaler and an estimator behind the fixed
// training-time column layout.
type Pipeline struct {
	featureNames []string
	scaler       Scaler
	estimator    Estimator
	classes      []string
}

// ProbabilityPipeline is a Pipeline whose estimator scores every class.
type ProbabilityPipeline struct {
	*Pipeline
	estimator ProbabilityEstimator
}

// NewPipeline checks that the artifact was trained on FeatureNames in that
// exact order, then picks the variant the estimator supports.
func NewPipeline(featureNames []string, scaler Scaler, estimator Estimator, classes []string) (Predictor, error) {
	if !slices.Equal(featureNames, FeatureNames()) {
		return nil, fmt.Errorf("feature names %v do not match %v", featureNames, FeatureNames())
	}
	if estimator == nil {
		return nil, fmt.Errorf("pipeline has no estimator")
	}
	if len(classes) > 0 && len(classes) != estimator.NumClasses() {
		return nil, fmt.Errorf("pipeline lists %d classes but estimator has %d", len(classes), estimator.NumClasses())
	}
	p := &Pipeline{
		featureNames: slices.Clone(featureNames),
		scaler:       scaler,
		estimator:    estimator,
		classes:      slices.Clone(classes),
	}
	if pe, ok := estimator.(ProbabilityEstimator); ok {
		return &ProbabilityPipeline{Pipeline: p, estimator: pe}, nil
	}
	return p, nil
}

func (p *Pipeline) Predict(record MeasurementRecord) (int, error) {
	features, err := p.transform(record)
	if err != nil {
		return 0, err
	}
	label, err := p.estimator.Predict(features)
	if err != nil {
		return 0, err
	}
	if label < 0 || label >= p.estimator.NumClasses() {
		return 0, fmt.Errorf("estimator returned class %d of %d", label, p.estimator.NumClasses())
	}
	return label, nil
}

func (p *Pipeline) NumClasses() int {
	return p.estimator.NumClasses()
}

func (p *Pipeline) ClassNames() []string {
	if len(p.classes) == 0 {
		return nil
	}
	return slices.Clone(p.classes)
}

func (p *Pipeline) transform(record MeasurementRecord) ([]float64, error) {
	features := record.Vector()
	if p.scaler == nil {
		return features, nil
	}
	scaled, err := p.scaler.Transform(features)
	if err != nil {
		return nil, fmt.Errorf("scale features: %w", err)
	}
	return scaled, nil
}

func (p *ProbabilityPipeline) PredictProba(record MeasurementRecord) ([]float64, error) {
	features, err := p.transform(record)
	if err != nil {
		return nil, err
	}
	return p.estimator.PredictProba(features)
}
