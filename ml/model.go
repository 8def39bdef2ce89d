package ml

// Estimator is the final step of a pipeline. It maps a transformed feature
// vector to a class index.
type Estimator interface {
	Predict(features []float64) (int, error)
	NumClasses() int
}

// ProbabilityEstimator is an Estimator that can also score every class.
type ProbabilityEstimator interface {
	Estimator
	PredictProba(features []float64) ([]float64, error)
}

// Predictor is a loaded pipeline that only predicts labels.
type Predictor interface {
	Predict(record MeasurementRecord) (int, error)
	NumClasses() int
	// ClassNames returns the names the pipeline itself carries, or nil.
	ClassNames() []string
}

// ProbabilityPredictor is a loaded pipeline that also estimates class probabilities.
type ProbabilityPredictor interface {
	Predictor
	PredictProba(record MeasurementRecord) ([]float64, error)
}
