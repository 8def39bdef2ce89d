package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ArtifactPaths locates the two artifacts produced by the offline trainer.
type ArtifactPaths struct {
	Pipeline     string
	LabelEncoder string
}

// ModelInfo summarises what was loaded.
type ModelInfo struct {
	Estimator        string   `json:"estimator" yaml:"estimator"`
	Classes          int      `json:"classes" yaml:"classes"`
	ClassNames       []string `json:"class_names,omitempty" yaml:"class_names,omitempty"`
	Probabilities    bool     `json:"probabilities" yaml:"probabilities"`
	Scaler           string   `json:"scaler,omitempty" yaml:"scaler,omitempty"`
	Features         []string `json:"features" yaml:"features"`
	PipelinePath     string   `json:"pipeline_path" yaml:"pipeline_path"`
	LabelEncoderPath string   `json:"label_encoder_path" yaml:"label_encoder_path"`
}

// Artifacts holds the loaded pipeline and label encoder for the lifetime of
// the process. Nothing in it is mutated after LoadArtifacts returns.
type Artifacts struct {
	Model   Predictor
	Encoder *LabelEncoder
	info    ModelInfo
}

// Probabilities returns the probability-capable view of the model when the
// artifact supports it.
func (a *Artifacts) Probabilities() (ProbabilityPredictor, bool) {
	pp, ok := a.Model.(ProbabilityPredictor)
	return pp, ok
}

func (a *Artifacts) Describe() ModelInfo {
	info := a.info
	info.Features = FeatureNames()
	if names := a.Model.ClassNames(); names != nil {
		info.ClassNames = names
	} else {
		info.ClassNames = a.Encoder.Classes()
	}
	return info
}

// LoadArtifacts reads both artifacts. Any failure is an *ArtifactLoadError.
func LoadArtifacts(paths ArtifactPaths) (*Artifacts, error) {
	model, estimatorType, scalerType, err := LoadPipeline(paths.Pipeline)
	if err != nil {
		return nil, err
	}
	encoder, err := LoadLabelEncoder(paths.LabelEncoder)
	if err != nil {
		return nil, err
	}
	_, probabilities := model.(ProbabilityPredictor)
	return &Artifacts{
		Model:   model,
		Encoder: encoder,
		info: ModelInfo{
			Estimator:        estimatorType,
			Classes:          model.NumClasses(),
			Probabilities:    probabilities,
			Scaler:           scalerType,
			PipelinePath:     paths.Pipeline,
			LabelEncoderPath: paths.LabelEncoder,
		},
	}, nil
}

type pipelineFile struct {
	Format       string          `json:"format"`
	FeatureNames []string        `json:"feature_names"`
	Scaler       *scalerSpec     `json:"scaler,omitempty"`
	Estimator    json.RawMessage `json:"estimator"`
	Classes      []string        `json:"classes,omitempty"`
}

// LoadPipeline reads a pipeline artifact and returns it with its estimator
// and scaler type names.
func LoadPipeline(path string) (Predictor, string, string, error) {
	fail := func(err error) (Predictor, string, string, error) {
		return nil, "", "", &ArtifactLoadError{Artifact: "pipeline", Path: path, Err: err}
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	var file pipelineFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return fail(err)
	}
	if file.Format != "" && file.Format != pipelineFormat {
		return fail(fmt.Errorf("unsupported format %q", file.Format))
	}
	if len(file.Estimator) == 0 {
		return fail(errors.New("missing estimator"))
	}
	scaler, err := newScaler(file.Scaler)
	if err != nil {
		return fail(err)
	}
	estimatorType, estimator, err := decodeEstimator(file.Estimator)
	if err != nil {
		return fail(fmt.Errorf("%s estimator: %w", estimatorType, err))
	}
	model, err := NewPipeline(file.FeatureNames, scaler, estimator, file.Classes)
	if err != nil {
		return fail(err)
	}
	scalerType := ""
	if file.Scaler != nil {
		scalerType = file.Scaler.Type
	}
	return model, estimatorType, scalerType, nil
}

func decodeEstimator(raw json.RawMessage) (string, Estimator, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return "", nil, err
	}

	switch header.Type {
	case "decision_tree":
		var spec treeSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return header.Type, nil, err
		}
		tree, err := NewDecisionTree(spec.Nodes, spec.NumClasses)
		if err != nil {
			return header.Type, nil, err
		}
		if !tree.HasDistributions() {
			return header.Type, treeClassifier{tree: tree}, nil
		}
		return header.Type, tree, nil
	case "random_forest":
		var spec forestSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return header.Type, nil, err
		}
		trees := make([]*DecisionTree, 0, len(spec.Trees))
		for i, t := range spec.Trees {
			tree, err := NewDecisionTree(t.Nodes, spec.NumClasses)
			if err != nil {
				return header.Type, nil, fmt.Errorf("tree %d: %w", i, err)
			}
			trees = append(trees, tree)
		}
		forest, err := NewRandomForest(trees)
		return header.Type, forest, err
	case "logistic_regression":
		var spec logisticSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return header.Type, nil, err
		}
		model, err := NewLogisticRegression(spec.Coef, spec.Intercept)
		return header.Type, model, err
	case "nearest_centroid":
		var spec centroidSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return header.Type, nil, err
		}
		model, err := NewNearestCentroid(spec.Centroids)
		return header.Type, model, err
	default:
		return header.Type, nil, errors.New("unsupported model type")
	}
}

// LoadLabelEncoder reads a label encoder artifact.
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "label encoder", Path: path, Err: err}
	}
	var file labelEncoderFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, &ArtifactLoadError{Artifact: "label encoder", Path: path, Err: err}
	}
	if file.Format != "" && file.Format != labelEncoderFormat {
		return nil, &ArtifactLoadError{Artifact: "label encoder", Path: path, Err: fmt.Errorf("unsupported format %q", file.Format)}
	}
	return NewLabelEncoder(file.Classes), nil
}
