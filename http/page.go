package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"croprec/locale"
	"croprec/ml"
	"croprec/recommend"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type fieldView struct {
	Name  string
	Label string
	Unit  string
	Min   string
	Max   string
	Step  string
	Value string
}

type rankView struct {
	Display string
	Percent string
}

type resultView struct {
	Message         string
	ChartURL        string
	Ranked          []rankView
	NoProbabilities string
}

type pageView struct {
	Lang         string
	Title        string
	Intro        string
	Submit       string
	LivePreview  string
	Fields       []fieldView
	Result       *resultView
	Error        string
	HowItWorks   string
	FactorsIntro string
	Factors      []string
	Disclaimer   string
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, http.StatusOK, a.newPage(nil))
}

// handleSubmit 处理表单提交并重新渲染页面
func (a *App) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		page := a.newPage(nil)
		page.Error = a.messages.Sprintf(locale.InvalidInput, err.Error())
		a.renderPage(w, http.StatusBadRequest, page)
		return
	}

	page := a.newPage(r.PostForm)
	record, err := recordFromValues(r.PostForm)
	if err != nil {
		page.Error = a.messages.Sprintf(locale.InvalidInput, err.Error())
		a.renderPage(w, http.StatusBadRequest, page)
		return
	}

	prediction, err := a.recommender.Recommend(r.Context(), record)
	if err != nil {
		page.Error = a.messages.Sprintf(locale.ErrorOccurred, err.Error())
		a.renderPage(w, inferenceStatus(err), page)
		return
	}

	page.Result = a.resultFor(record, prediction)
	a.renderPage(w, http.StatusOK, page)
}

func (a *App) newPage(submitted url.Values) *pageView {
	m := a.messages
	title := a.title
	if title == "" {
		title = m.Sprintf(locale.PageTitle)
	}
	page := &pageView{
		Lang:         m.Tag().String(),
		Title:        title,
		Intro:        m.Sprintf(locale.PageIntro),
		Submit:       m.Sprintf(locale.SubmitButton),
		LivePreview:  m.Sprintf(locale.LivePreview),
		HowItWorks:   m.Sprintf(locale.HowItWorks),
		FactorsIntro: m.Sprintf(locale.FactorsIntro),
		Factors: []string{
			m.Sprintf(locale.FactorNutrients),
			m.Sprintf(locale.FactorClimate),
			m.Sprintf(locale.FactorSoil),
		},
		Disclaimer: m.Sprintf(locale.Disclaimer),
	}
	for _, spec := range ml.FeatureSpecs() {
		value := formatValue(spec.Default)
		if raw := strings.TrimSpace(submitted.Get(spec.Name)); raw != "" {
			value = raw
		}
		page.Fields = append(page.Fields, fieldView{
			Name:  spec.Name,
			Label: m.FeatureLabel(spec.Name),
			Unit:  spec.Unit,
			Min:   formatValue(spec.Min),
			Max:   formatValue(spec.Max),
			Step:  formatValue(spec.Step),
			Value: value,
		})
	}
	return page
}

func (a *App) resultFor(record ml.MeasurementRecord, prediction *recommend.Prediction) *resultView {
	result := &resultView{
		Message: a.messages.Sprintf(locale.Recommended, prediction.Display),
	}
	if !prediction.HasProbabilities() {
		result.NoProbabilities = a.messages.Sprintf(locale.NoProbabilities)
		return result
	}
	result.ChartURL = "/chart?" + recordQuery(record).Encode()
	for _, ranked := range prediction.Probabilities {
		result.Ranked = append(result.Ranked, rankView{
			Display: recommend.Capitalize(ranked.Label, a.messages.Tag()),
			Percent: fmt.Sprintf("%.2f", ranked.Percent),
		})
	}
	return result
}

func (a *App) renderPage(w http.ResponseWriter, status int, page *pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		a.logger.Error("render page", zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// recordFromValues 解析七个测量值并检查滑块范围
func recordFromValues(values url.Values) (ml.MeasurementRecord, error) {
	parsed := make(map[string]float64, ml.FeatureCount)
	for _, spec := range ml.FeatureSpecs() {
		raw := strings.TrimSpace(values.Get(spec.Name))
		if raw == "" {
			return ml.MeasurementRecord{}, fmt.Errorf("%s is required", spec.Name)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ml.MeasurementRecord{}, fmt.Errorf("%s: %q is not a number", spec.Name, raw)
		}
		parsed[spec.Name] = value
	}
	record, err := ml.RecordFromMap(parsed)
	if err != nil {
		return ml.MeasurementRecord{}, err
	}
	if err := ml.CheckBounds(record); err != nil {
		return ml.MeasurementRecord{}, err
	}
	return record, nil
}

func recordQuery(record ml.MeasurementRecord) url.Values {
	query := url.Values{}
	for name, value := range record.Values() {
		query.Set(name, formatValue(value))
	}
	return query
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
