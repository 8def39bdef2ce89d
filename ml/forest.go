package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// RandomForest averages the leaf distributions of its trees.
type RandomForest struct {
	trees      []*DecisionTree
	numClasses int
}

type forestSpec struct {
	NumClasses int `json:"n_classes"`
	Trees      []struct {
		Nodes []TreeNode `json:"nodes"`
	} `json:"trees"`
}

func NewRandomForest(trees []*DecisionTree) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	numClasses := trees[0].NumClasses()
	for i, tree := range trees {
		if tree.NumClasses() != numClasses {
			return nil, fmt.Errorf("tree %d: expected %d classes, got %d", i, numClasses, tree.NumClasses())
		}
		if !tree.HasDistributions() {
			return nil, fmt.Errorf("tree %d: every leaf needs class counts", i)
		}
	}
	return &RandomForest{trees: trees, numClasses: numClasses}, nil
}

func (f *RandomForest) NumClasses() int {
	return f.numClasses
}

func (f *RandomForest) Predict(features []float64) (int, error) {
	probs, err := f.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(probs), nil
}

func (f *RandomForest) PredictProba(features []float64) ([]float64, error) {
	total := make([]float64, f.numClasses)
	for i, tree := range f.trees {
		probs, err := tree.PredictProba(features)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		floats.Add(total, probs)
	}
	floats.Scale(1/float64(len(f.trees)), total)
	return total, nil
}
