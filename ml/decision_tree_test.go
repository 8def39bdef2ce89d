package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(label int, counts ...float64) TreeNode {
	return TreeNode{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: label, IsLeaf: true, ClassCounts: counts}
}

func TestDecisionTreePredict(t *testing.T) {
	nodes := []TreeNode{
		{FeatureIdx: 0, Threshold: 0.5, LeftChild: 1, RightChild: 2},
		leaf(0, 3, 1),
		leaf(1, 0, 4),
	}
	tree, err := NewDecisionTree(nodes, 2)
	require.NoError(t, err)

	label, err := tree.Predict([]float64{0.15, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, label)

	probs, err := tree.PredictProba([]float64{0.15, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.75, 0.25}, probs, 1e-12)

	label, err = tree.Predict([]float64{0.9, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	assert.True(t, tree.HasDistributions())
}

func TestDecisionTreeLeafCountsAreNotMutated(t *testing.T) {
	tree, err := NewDecisionTree([]TreeNode{leaf(0, 2, 6)}, 2)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		probs, err := tree.PredictProba(make([]float64, FeatureCount))
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0.25, 0.75}, probs, 1e-12)
	}
}

func TestNewDecisionTreeRejectsMalformedNodes(t *testing.T) {
	tests := []struct {
		name       string
		nodes      []TreeNode
		numClasses int
	}{
		{"empty", nil, 2},
		{"no classes", []TreeNode{leaf(0)}, 0},
		{"label out of range", []TreeNode{leaf(5)}, 2},
		{"count width", []TreeNode{leaf(0, 1, 2, 3)}, 2},
		{"negative count", []TreeNode{leaf(0, -1, 2)}, 2},
		{"zero counts", []TreeNode{leaf(0, 0, 0)}, 2},
		{"feature out of range", []TreeNode{{FeatureIdx: 7, LeftChild: 1, RightChild: 2}, leaf(0), leaf(1)}, 2},
		{"cycle", []TreeNode{{FeatureIdx: 0, LeftChild: 0, RightChild: 1}, leaf(0)}, 2},
		{"dangling child", []TreeNode{{FeatureIdx: 0, LeftChild: 1, RightChild: 9}, leaf(0)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecisionTree(tt.nodes, tt.numClasses)
			assert.Error(t, err)
		})
	}
}

func TestRandomForestAveragesTrees(t *testing.T) {
	first, err := NewDecisionTree([]TreeNode{leaf(1, 1, 3)}, 2)
	require.NoError(t, err)
	second, err := NewDecisionTree([]TreeNode{leaf(0, 1, 1)}, 2)
	require.NoError(t, err)

	forest, err := NewRandomForest([]*DecisionTree{first, second})
	require.NoError(t, err)

	probs, err := forest.PredictProba(make([]float64, FeatureCount))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.375, 0.625}, probs, 1e-12)

	label, err := forest.Predict(make([]float64, FeatureCount))
	require.NoError(t, err)
	assert.Equal(t, 1, label)
}

func TestRandomForestNeedsDistributions(t *testing.T) {
	bare, err := NewDecisionTree([]TreeNode{leaf(0)}, 2)
	require.NoError(t, err)
	_, err = NewRandomForest([]*DecisionTree{bare})
	assert.Error(t, err)

	_, err = NewRandomForest(nil)
	assert.Error(t, err)
}
