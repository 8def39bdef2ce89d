package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// LogisticRegression is a multinomial (softmax) linear classifier.
type LogisticRegression struct {
	coef      [][]float64
	intercept []float64
}

type logisticSpec struct {
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

func NewLogisticRegression(coef [][]float64, intercept []float64) (*LogisticRegression, error) {
	if len(coef) < 2 {
		return nil, errors.New("logistic regression needs at least two classes")
	}
	if len(intercept) != len(coef) {
		return nil, fmt.Errorf("expected %d intercepts, got %d", len(coef), len(intercept))
	}
	for i, row := range coef {
		if len(row) != FeatureCount {
			return nil, fmt.Errorf("coef row %d: expected %d weights, got %d", i, FeatureCount, len(row))
		}
		if !allFinite(row) {
			return nil, fmt.Errorf("coef row %d: non-finite weight", i)
		}
	}
	if !allFinite(intercept) {
		return nil, errors.New("non-finite intercept")
	}
	return &LogisticRegression{coef: coef, intercept: intercept}, nil
}

func (lr *LogisticRegression) NumClasses() int {
	return len(lr.coef)
}

func (lr *LogisticRegression) Predict(features []float64) (int, error) {
	scores, err := lr.decision(features)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(scores), nil
}

func (lr *LogisticRegression) PredictProba(features []float64) ([]float64, error) {
	scores, err := lr.decision(features)
	if err != nil {
		return nil, err
	}
	norm := floats.LogSumExp(scores)
	probs := make([]float64, len(scores))
	for i, score := range scores {
		probs[i] = math.Exp(score - norm)
	}
	return probs, nil
}

func (lr *LogisticRegression) decision(features []float64) ([]float64, error) {
	if len(features) != FeatureCount {
		return nil, fmt.Errorf("expected %d features, got %d", FeatureCount, len(features))
	}
	scores := make([]float64, len(lr.coef))
	for i, row := range lr.coef {
		scores[i] = floats.Dot(row, features) + lr.intercept[i]
	}
	return scores, nil
}

// NearestCentroid assigns the class whose centroid is closest in Euclidean
// distance. It has no probability estimate.
type NearestCentroid struct {
	centroids [][]float64
}

type centroidSpec struct {
	Centroids [][]float64 `json:"centroids"`
}

func NewNearestCentroid(centroids [][]float64) (*NearestCentroid, error) {
	if len(centroids) == 0 {
		return nil, errors.New("no centroids")
	}
	for i, c := range centroids {
		if len(c) != FeatureCount {
			return nil, fmt.Errorf("centroid %d: expected %d values, got %d", i, FeatureCount, len(c))
		}
		if !allFinite(c) {
			return nil, fmt.Errorf("centroid %d: non-finite value", i)
		}
	}
	return &NearestCentroid{centroids: centroids}, nil
}

func (nc *NearestCentroid) NumClasses() int {
	return len(nc.centroids)
}

func (nc *NearestCentroid) Predict(features []float64) (int, error) {
	if len(features) != FeatureCount {
		return 0, fmt.Errorf("expected %d features, got %d", FeatureCount, len(features))
	}
	distances := make([]float64, len(nc.centroids))
	for i, c := range nc.centroids {
		distances[i] = floats.Distance(c, features, 2)
	}
	return floats.MinIdx(distances), nil
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
