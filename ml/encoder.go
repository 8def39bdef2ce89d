package ml

import "slices"

const (
	pipelineFormat     = "croprec.pipeline/v1"
	labelEncoderFormat = "croprec.label_encoder/v1"
)

// LabelEncoder maps class indices to crop names.
type LabelEncoder struct {
	classes []string
}

type labelEncoderFile struct {
	Format  string   `json:"format"`
	Classes []string `json:"classes"`
}

func NewLabelEncoder(classes []string) *LabelEncoder {
	return &LabelEncoder{classes: slices.Clone(classes)}
}

// Classes returns the encoder's class names. It may be empty.
func (e *LabelEncoder) Classes() []string {
	if e == nil {
		return nil
	}
	return slices.Clone(e.classes)
}

// Decode returns the name of class index i.
func (e *LabelEncoder) Decode(i int) (string, bool) {
	if e == nil || i < 0 || i >= len(e.classes) {
		return "", false
	}
	return e.classes[i], true
}

func (e *LabelEncoder) Len() int {
	if e == nil {
		return 0
	}
	return len(e.classes)
}
