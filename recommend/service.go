// Package recommend turns one set of soil and climate measurements into a
// ranked crop recommendation.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/floats"

	"croprec/ml"
)

const probabilityTolerance = 1e-6

// Ranked is one crop and its estimated probability.
type Ranked struct {
	Label       string  `json:"crop"`
	Probability float64 `json:"probability"`
	Percent     float64 `json:"percent"`
}

// Prediction is the result of one request.
type Prediction struct {
	Class         int      `json:"class"`
	Label         string   `json:"crop"`
	Display       string   `json:"display"`
	Probabilities []Ranked `json:"probabilities,omitempty"`
}

// HasProbabilities reports whether the model produced a probability ranking.
func (p *Prediction) HasProbabilities() bool {
	return len(p.Probabilities) > 0
}

func (p *Prediction) clone() *Prediction {
	c := *p
	if p.Probabilities != nil {
		c.Probabilities = append([]Ranked(nil), p.Probabilities...)
	}
	return &c
}

// Service answers recommendation requests against one loaded model.
type Service struct {
	model  ml.Predictor
	proba  ml.ProbabilityPredictor
	names  []string
	tag    language.Tag
	cache  *lru.Cache[ml.MeasurementRecord, *Prediction]
	logger *zap.Logger
}

type Option func(*Service) error

// WithCache memoises up to size results. Zero disables the cache.
func WithCache(size int) Option {
	return func(s *Service) error {
		if size <= 0 {
			s.cache = nil
			return nil
		}
		cache, err := lru.New[ml.MeasurementRecord, *Prediction](size)
		if err != nil {
			return fmt.Errorf("create inference cache: %w", err)
		}
		s.cache = cache
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithLanguage sets the language used to capitalise display labels.
func WithLanguage(tag language.Tag) Option {
	return func(s *Service) error {
		s.tag = tag
		return nil
	}
}

func NewService(artifacts *ml.Artifacts, opts ...Option) (*Service, error) {
	if artifacts == nil || artifacts.Model == nil {
		return nil, errors.New("recommend: no model loaded")
	}
	s := &Service{
		model:  artifacts.Model,
		names:  ClassNames(artifacts.Model, artifacts.Encoder),
		tag:    language.English,
		logger: zap.NewNop(),
	}
	if proba, ok := artifacts.Probabilities(); ok {
		s.proba = proba
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SupportsProbabilities reports whether results carry a probability ranking.
func (s *Service) SupportsProbabilities() bool {
	return s.proba != nil
}

// Recommend runs one inference. Every failure, including a panic inside the
// model, comes back as *InferenceError.
func (s *Service) Recommend(ctx context.Context, record ml.MeasurementRecord) (result *Prediction, err error) {
	if err := ctx.Err(); err != nil {
		return nil, &InferenceError{Op: "predict", Err: err}
	}
	if s.cache != nil {
		if cached, ok := s.cache.Get(record); ok {
			return cached.clone(), nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("model panicked", zap.Any("panic", r), zap.Any("record", record))
			result = nil
			err = &InferenceError{Op: "predict", Err: fmt.Errorf("model panic: %v", r)}
		}
	}()

	prediction, err := s.infer(record)
	if err != nil {
		s.logger.Warn("inference failed", zap.Error(err), zap.Any("record", record))
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(record, prediction.clone())
	}
	s.logger.Debug("inference complete",
		zap.String("crop", prediction.Label),
		zap.Int("ranked", len(prediction.Probabilities)),
	)
	return prediction, nil
}

func (s *Service) infer(record ml.MeasurementRecord) (*Prediction, error) {
	class, err := s.model.Predict(record)
	if err != nil {
		return nil, &InferenceError{Op: "predict", Err: err}
	}
	if class < 0 || class >= len(s.names) {
		return nil, &InferenceError{Op: "predict", Err: fmt.Errorf("class %d out of range", class)}
	}
	prediction := &Prediction{
		Class:   class,
		Label:   s.names[class],
		Display: Capitalize(s.names[class], s.tag),
	}
	if s.proba == nil {
		return prediction, nil
	}

	probs, err := s.proba.PredictProba(record)
	if err != nil {
		return nil, &InferenceError{Op: "predict_proba", Err: err}
	}
	if err := checkProbabilities(probs, len(s.names)); err != nil {
		return nil, &InferenceError{Op: "predict_proba", Err: err}
	}
	prediction.Probabilities = Rank(s.names, probs)
	return prediction, nil
}

func checkProbabilities(probs []float64, classes int) error {
	if len(probs) != classes {
		return fmt.Errorf("expected %d probabilities, got %d", classes, len(probs))
	}
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return fmt.Errorf("invalid probability %v for class %d", p, i)
		}
	}
	if sum := floats.Sum(probs); math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("probabilities sum to %v", sum)
	}
	return nil
}

// Rank pairs names with probabilities, highest first. Equal probabilities
// are ordered by name.
func Rank(names []string, probs []float64) []Ranked {
	ranked := make([]Ranked, len(probs))
	for i, p := range probs {
		ranked[i] = Ranked{
			Label:       names[i],
			Probability: p,
			Percent:     math.Round(p*10000) / 100,
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Probability != ranked[j].Probability {
			return ranked[i].Probability > ranked[j].Probability
		}
		return ranked[i].Label < ranked[j].Label
	})
	return ranked
}

// ClassNames resolves a display name for every class: names the pipeline
// carries, then the label encoder, then "Class {i}" placeholders.
func ClassNames(model ml.Predictor, encoder *ml.LabelEncoder) []string {
	n := model.NumClasses()
	if names := model.ClassNames(); len(names) == n {
		return names
	}
	if names := encoder.Classes(); len(names) == n {
		return names
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Class %d", i)
	}
	return names
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string, tag language.Tag) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(tag).String(s[:size]) + cases.Lower(tag).String(s[size:])
}
