package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"croprec/locale"
	"croprec/ml"
	"croprec/recommend"
)

type fakeRecommender struct {
	prediction *recommend.Prediction
	err        error
	calls      int
}

func (f *fakeRecommender) Recommend(ctx context.Context, record ml.MeasurementRecord) (*recommend.Prediction, error) {
	f.calls++
	return f.prediction, f.err
}

func (f *fakeRecommender) SupportsProbabilities() bool {
	return f.prediction != nil && f.prediction.HasProbabilities()
}

func newFixtureApp(t *testing.T, pipeline, lang string) *App {
	t.Helper()
	artifacts, err := ml.LoadArtifacts(ml.ArtifactPaths{
		Pipeline:     filepath.Join("..", "ml", "testdata", pipeline),
		LabelEncoder: filepath.Join("..", "ml", "testdata", "label_encoder.json"),
	})
	require.NoError(t, err)
	svc, err := recommend.NewService(artifacts, recommend.WithCache(8))
	require.NoError(t, err)
	messages, err := locale.New(lang)
	require.NoError(t, err)
	return NewApp(svc, artifacts.Describe(), messages, nil)
}

func newFakeApp(t *testing.T, fake *fakeRecommender) *App {
	t.Helper()
	messages, err := locale.New("en")
	require.NoError(t, err)
	return NewApp(fake, ml.ModelInfo{Estimator: "fake"}, messages, nil)
}

func serve(app *App, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	app.RegisterHandlers(mux)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func defaultForm() url.Values {
	return recordQuery(ml.DefaultRecord())
}

func TestHealthHandler(t *testing.T) {
	app := newFixtureApp(t, "tree_pipeline.json", "en")
	rr := serve(app, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","probabilities":true}`, rr.Body.String())
}

func TestPredictAPI(t *testing.T) {
	app := newFixtureApp(t, "tree_pipeline.json", "en")
	body := `{"N":90,"P":42,"K":43,"temperature":20.8,"humidity":82,"ph":6.5,"rainfall":203}`
	rr := serve(app, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got recommend.Prediction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	want := recommend.Prediction{
		Class:   2,
		Label:   "rice",
		Display: "Rice",
		Probabilities: []recommend.Ranked{
			{Label: "rice", Probability: 0.9, Percent: 90},
			{Label: "maize", Probability: 0.1, Percent: 10},
			{Label: "chickpea", Probability: 0, Percent: 0},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("prediction mismatch (-want +got):\n%s", diff)
	}
}

func TestPredictAPIRejectsBadInput(t *testing.T) {
	app := newFixtureApp(t, "tree_pipeline.json", "en")
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"N":`},
		{"wrong type", `{"N":"ninety"}`},
		{"missing feature", `{"N":90,"P":42,"K":43,"temperature":20.8,"humidity":82,"ph":6.5}`},
		{"out of bounds", `{"N":900,"P":42,"K":43,"temperature":20.8,"humidity":82,"ph":6.5,"rainfall":203}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(app, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), `"error"`)
		})
	}
}

func TestPredictAPIInferenceError(t *testing.T) {
	fake := &fakeRecommender{err: &recommend.InferenceError{Op: "predict", Err: errors.New("shape mismatch")}}
	app := newFakeApp(t, fake)
	body := `{"N":90,"P":42,"K":43,"temperature":20.8,"humidity":82,"ph":6.5,"rainfall":203}`
	rr := serve(app, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.JSONEq(t, `{"error":"predict: shape mismatch"}`, rr.Body.String())
	assert.Equal(t, 1, fake.calls)
}

func TestModelAndFeatures(t *testing.T) {
	app := newFixtureApp(t, "tree_pipeline.json", "pt-BR")

	rr := serve(app, httptest.NewRequest(http.MethodGet, "/api/model", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var info ml.ModelInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, "decision_tree", info.Estimator)
	assert.Equal(t, 3, info.Classes)
	assert.True(t, info.Probabilities)
	assert.Equal(t, ml.FeatureNames(), info.Features)

	rr = serve(app, httptest.NewRequest(http.MethodGet, "/api/features", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var payload struct {
		Language string           `json:"language"`
		Features []ml.FeatureSpec `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, "pt-BR", payload.Language)
	require.Len(t, payload.Features, ml.FeatureCount)
	assert.Equal(t, "Nitrogênio (N)", payload.Features[0].Label)
	assert.Equal(t, 90.0, payload.Features[0].Default)
}

func TestIndexPage(t *testing.T) {
	app := newFixtureApp(t, "tree_pipeline.json", "en")
	rr := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Contains(t, body, "Smart Crop Recommendation")
	for _, name := range ml.FeatureNames() {
		assert.Contains(t, body, `name="`+name+`"`)
	}
	assert.Contains(t, body, `value="20.8"`)
	assert.NotContains(t, body, "Recommended crop")

	rr = serve(app, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func postForm(app *App, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return serve(app, req)
}

func TestSubmitForm(t *testing.T) {
	app := newFixtureApp(t, "tree_pipeline.json", "en")
	rr := postForm(app, defaultForm())

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Recommended crop: Rice")
	assert.Contains(t, body, `<iframe src="/chart?`)
	assert.Contains(t, body, "90.00%")
	assert.Less(t, strings.Index(body, "<td>Rice</td>"), strings.Index(body, "<td>Maize</td>"))
}

func TestSubmitFormPortuguese(t *testing.T) {
	app := newFixtureApp(t, "tree_pipeline.json", "pt-BR")
	rr := postForm(app, defaultForm())

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Cultivo Recomendado: Rice")
	assert.Contains(t, rr.Body.String(), `lang="pt-BR"`)
}

func TestSubmitFormWithoutProbabilities(t *testing.T) {
	app := newFixtureApp(t, "tree_labels_only_pipeline.json", "en")
	rr := postForm(app, defaultForm())

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Recommended crop: Rice")
	assert.Contains(t, body, "does not provide probability estimates")
	assert.NotContains(t, body, "<iframe")
}

func TestSubmitFormRejectsOutOfBounds(t *testing.T) {
	fake := &fakeRecommender{}
	app := newFakeApp(t, fake)

	form := defaultForm()
	form.Set("ph", "14.5")
	rr := postForm(app, form)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid input: ph=14.5 outside [0, 14]")
	assert.Contains(t, rr.Body.String(), `value="14.5"`)

	form = defaultForm()
	form.Del("rainfall")
	rr = postForm(app, form)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "rainfall is required")

	assert.Zero(t, fake.calls)
}

func TestSubmitFormInferenceError(t *testing.T) {
	fake := &fakeRecommender{err: &recommend.InferenceError{Op: "predict_proba", Err: errors.New("probabilities sum to 2")}}
	app := newFakeApp(t, fake)
	rr := postForm(app, defaultForm())

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "An error occurred: predict_proba: probabilities sum to 2")
}

func TestChart(t *testing.T) {
	app := newFixtureApp(t, "tree_pipeline.json", "en")
	rr := serve(app, httptest.NewRequest(http.MethodGet, "/chart?"+defaultForm().Encode(), nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "echarts.min.js")
	assert.Contains(t, rr.Body.String(), "Rice")

	rr = serve(app, httptest.NewRequest(http.MethodGet, "/chart?N=1", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChartWithoutProbabilities(t *testing.T) {
	app := newFixtureApp(t, "tree_labels_only_pipeline.json", "en")
	rr := serve(app, httptest.NewRequest(http.MethodGet, "/chart?"+defaultForm().Encode(), nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRecordFromValues(t *testing.T) {
	record, err := recordFromValues(defaultForm())
	require.NoError(t, err)
	assert.Equal(t, ml.DefaultRecord(), record)

	form := defaultForm()
	form.Set("humidity", "NaN")
	_, err = recordFromValues(form)
	var boundsErr *ml.BoundsError
	assert.True(t, errors.As(err, &boundsErr))

	form.Set("humidity", "wet")
	_, err = recordFromValues(form)
	assert.ErrorContains(t, err, "not a number")
}
