package ml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const featureNamesJSON = `["N", "P", "K", "temperature", "humidity", "ph", "rainfall"]`

func writeArtifact(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func fixturePaths() ArtifactPaths {
	return ArtifactPaths{
		Pipeline:     filepath.Join("testdata", "tree_pipeline.json"),
		LabelEncoder: filepath.Join("testdata", "label_encoder.json"),
	}
}

func TestLoadArtifacts(t *testing.T) {
	artifacts, err := LoadArtifacts(fixturePaths())
	require.NoError(t, err)

	assert.Equal(t, 3, artifacts.Model.NumClasses())
	assert.Equal(t, []string{"chickpea", "maize", "rice"}, artifacts.Encoder.Classes())

	proba, ok := artifacts.Probabilities()
	require.True(t, ok, "tree with leaf counts supports probabilities")

	label, err := artifacts.Model.Predict(DefaultRecord())
	require.NoError(t, err)
	assert.Equal(t, 2, label)

	probs, err := proba.PredictProba(DefaultRecord())
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.1, 0.9}, probs, 1e-12)

	info := artifacts.Describe()
	assert.Equal(t, "decision_tree", info.Estimator)
	assert.Equal(t, 3, info.Classes)
	assert.True(t, info.Probabilities)
	assert.Equal(t, FeatureNames(), info.Features)
	assert.Equal(t, []string{"chickpea", "maize", "rice"}, info.ClassNames)
}

func TestLoadArtifactsWithoutProbabilities(t *testing.T) {
	paths := fixturePaths()
	paths.Pipeline = filepath.Join("testdata", "tree_labels_only_pipeline.json")

	artifacts, err := LoadArtifacts(paths)
	require.NoError(t, err)

	_, ok := artifacts.Probabilities()
	assert.False(t, ok)
	assert.False(t, artifacts.Describe().Probabilities)

	label, err := artifacts.Model.Predict(MeasurementRecord{N: 100, Rainfall: 80})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
}

func TestLoadArtifactsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		paths    ArtifactPaths
		artifact string
	}{
		{
			name:     "pipeline",
			paths:    ArtifactPaths{Pipeline: filepath.Join(dir, "missing.json"), LabelEncoder: fixturePaths().LabelEncoder},
			artifact: "pipeline",
		},
		{
			name:     "label encoder",
			paths:    ArtifactPaths{Pipeline: fixturePaths().Pipeline, LabelEncoder: filepath.Join(dir, "missing.json")},
			artifact: "label encoder",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifacts, err := LoadArtifacts(tt.paths)
			assert.Nil(t, artifacts)

			var loadErr *ArtifactLoadError
			require.True(t, errors.As(err, &loadErr), "expected ArtifactLoadError, got %v", err)
			assert.Equal(t, tt.artifact, loadErr.Artifact)
			assert.True(t, errors.Is(err, os.ErrNotExist))
		})
	}
}

func TestLoadPipelineRejectsBadArtifacts(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"not json", `joblib`},
		{"wrong format", `{"format": "sklearn/joblib", "feature_names": ` + featureNamesJSON + `, "estimator": {"type": "nearest_centroid", "centroids": [[0,0,0,0,0,0,0]]}}`},
		{"missing estimator", `{"feature_names": ` + featureNamesJSON + `}`},
		{"unknown estimator", `{"feature_names": ` + featureNamesJSON + `, "estimator": {"type": "svm"}}`},
		{"swapped columns", `{"feature_names": ["P", "N", "K", "temperature", "humidity", "ph", "rainfall"], "estimator": {"type": "nearest_centroid", "centroids": [[0,0,0,0,0,0,0]]}}`},
		{"renamed column", `{"feature_names": ["N", "P", "K", "temp", "humidity", "ph", "rainfall"], "estimator": {"type": "nearest_centroid", "centroids": [[0,0,0,0,0,0,0]]}}`},
		{"missing column", `{"feature_names": ["N", "P", "K", "temperature", "humidity", "ph"], "estimator": {"type": "nearest_centroid", "centroids": [[0,0,0,0,0,0,0]]}}`},
		{"class names width", `{"feature_names": ` + featureNamesJSON + `, "classes": ["a", "b"], "estimator": {"type": "nearest_centroid", "centroids": [[0,0,0,0,0,0,0]]}}`},
		{"bad scaler", `{"feature_names": ` + featureNamesJSON + `, "scaler": {"type": "standard", "mean": [0]}, "estimator": {"type": "nearest_centroid", "centroids": [[0,0,0,0,0,0,0]]}}`},
		{"forest without counts", `{"feature_names": ` + featureNamesJSON + `, "estimator": {"type": "random_forest", "n_classes": 2, "trees": [{"nodes": [{"is_leaf": true, "class_label": 0}]}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeArtifact(t, dir, "pipeline.json", tt.body)
			_, _, _, err := LoadPipeline(path)
			var loadErr *ArtifactLoadError
			require.True(t, errors.As(err, &loadErr), "expected ArtifactLoadError, got %v", err)
			assert.Equal(t, path, loadErr.Path)
		})
	}
}

func TestLoadPipelineEstimators(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name          string
		body          string
		probabilities bool
		label         int
	}{
		{
			name:          "logistic regression",
			body:          `{"feature_names": ` + featureNamesJSON + `, "estimator": {"type": "logistic_regression", "coef": [[0,0,0,0,0,0,0],[0,0,0,0,0,0,0.01]], "intercept": [0, 0]}}`,
			probabilities: true,
			label:         1,
		},
		{
			name:          "random forest",
			body:          `{"feature_names": ` + featureNamesJSON + `, "estimator": {"type": "random_forest", "n_classes": 2, "trees": [{"nodes": [{"is_leaf": true, "class_label": 0, "class_counts": [4, 1]}]}]}}`,
			probabilities: true,
			label:         0,
		},
		{
			name:  "nearest centroid with scaler",
			body:  `{"feature_names": ` + featureNamesJSON + `, "scaler": {"type": "standard", "mean": [90, 42, 43, 20.8, 82, 6.5, 203], "scale": [1, 1, 1, 1, 1, 1, 1]}, "estimator": {"type": "nearest_centroid", "centroids": [[100,100,100,100,100,100,100],[0,0,0,0,0,0,0]]}}`,
			label: 1,
		},
		{
			name:  "minmax scaler",
			body:  `{"feature_names": ` + featureNamesJSON + `, "scaler": {"type": "minmax", "min": [0,0,0,0,0,0,0], "max": [150,150,150,50,100,14,500]}, "estimator": {"type": "nearest_centroid", "centroids": [[1,1,1,1,1,1,1],[0,0,0,0,0,0,0]]}}`,
			label: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeArtifact(t, dir, "pipeline.json", tt.body)
			model, estimatorType, _, err := LoadPipeline(path)
			require.NoError(t, err)
			assert.NotEmpty(t, estimatorType)

			_, ok := model.(ProbabilityPredictor)
			assert.Equal(t, tt.probabilities, ok)

			record := DefaultRecord()
			if tt.name == "minmax scaler" {
				record = MeasurementRecord{N: 150, P: 150, K: 150, Temperature: 50, Humidity: 100, PH: 14, Rainfall: 500}
			}
			label, err := model.Predict(record)
			require.NoError(t, err)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestLoadLabelEncoderWithoutClasses(t *testing.T) {
	encoder, err := LoadLabelEncoder(filepath.Join("testdata", "empty_label_encoder.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, encoder.Len())
	_, ok := encoder.Decode(0)
	assert.False(t, ok)

	dir := t.TempDir()
	_, err = LoadLabelEncoder(writeArtifact(t, dir, "enc.json", `{"format": "other", "classes": []}`))
	var loadErr *ArtifactLoadError
	assert.True(t, errors.As(err, &loadErr))
}
