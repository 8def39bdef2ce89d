package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

type DecisionTree struct {
	nodes      []TreeNode
	numClasses int
}

type TreeNode struct {
	FeatureIdx  int       `json:"feature_idx"`
	Threshold   float64   `json:"threshold"`
	LeftChild   int       `json:"left_child"`
	RightChild  int       `json:"right_child"`
	ClassLabel  int       `json:"class_label"`
	IsLeaf      bool      `json:"is_leaf"`
	ClassCounts []float64 `json:"class_counts,omitempty"`
}

type treeSpec struct {
	NumClasses int        `json:"n_classes"`
	Nodes      []TreeNode `json:"nodes"`
}

// NewDecisionTree validates the flattened node array. Children must come after
// their parent so every walk terminates.
func NewDecisionTree(nodes []TreeNode, numClasses int) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	if numClasses <= 0 {
		return nil, errors.New("n_classes must be positive")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			if node.ClassLabel < 0 || node.ClassLabel >= numClasses {
				return nil, fmt.Errorf("node %d: class label %d out of range", i, node.ClassLabel)
			}
			if node.ClassCounts != nil {
				if len(node.ClassCounts) != numClasses {
					return nil, fmt.Errorf("node %d: expected %d class counts, got %d", i, numClasses, len(node.ClassCounts))
				}
				if floats.Min(node.ClassCounts) < 0 || floats.Sum(node.ClassCounts) <= 0 {
					return nil, fmt.Errorf("node %d: class counts must be non-negative with a positive total", i)
				}
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= FeatureCount {
			return nil, fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(nodes) {
				return nil, fmt.Errorf("node %d: invalid child %d", i, child)
			}
		}
	}
	return &DecisionTree{nodes: nodes, numClasses: numClasses}, nil
}

func (dt *DecisionTree) NumClasses() int {
	return dt.numClasses
}

func (dt *DecisionTree) Predict(features []float64) (int, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return 0, err
	}
	return leaf.ClassLabel, nil
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	if leaf.ClassCounts == nil {
		return nil, errors.New("leaf has no class distribution")
	}
	probs := append([]float64(nil), leaf.ClassCounts...)
	floats.Scale(1/floats.Sum(probs), probs)
	return probs, nil
}

// HasDistributions reports whether every leaf stores class counts.
func (dt *DecisionTree) HasDistributions() bool {
	for _, node := range dt.nodes {
		if node.IsLeaf && node.ClassCounts == nil {
			return false
		}
	}
	return true
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, errors.New("model not loaded")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return TreeNode{}, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
}

// treeClassifier hides PredictProba for trees saved without leaf distributions.
type treeClassifier struct {
	tree *DecisionTree
}

func (t treeClassifier) Predict(features []float64) (int, error) {
	return t.tree.Predict(features)
}

func (t treeClassifier) NumClasses() int {
	return t.tree.NumClasses()
}
