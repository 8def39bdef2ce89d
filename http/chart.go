package http

import (
	"bytes"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"croprec/locale"
	"croprec/recommend"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleChart 渲染按概率降序的柱状图
func (a *App) handleChart(w http.ResponseWriter, r *http.Request) {
	record, err := recordFromValues(r.URL.Query())
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	prediction, err := a.recommender.Recommend(r.Context(), record)
	if err != nil {
		WriteJSONError(w, inferenceStatus(err), err.Error())
		return
	}
	if !prediction.HasProbabilities() {
		WriteJSONError(w, http.StatusNotFound, "model does not provide probability estimates")
		return
	}

	var buf bytes.Buffer
	if err := a.probabilityPage(prediction).Render(&buf); err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "render error: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (a *App) probabilityPage(prediction *recommend.Prediction) *components.Page {
	m := a.messages
	names := make([]string, len(prediction.Probabilities))
	values := make([]opts.BarData, len(prediction.Probabilities))
	for i, ranked := range prediction.Probabilities {
		names[i] = recommend.Capitalize(ranked.Label, m.Tag())
		values[i] = opts.BarData{Value: ranked.Percent}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  m.Sprintf(locale.Probabilities),
			Width:      "100%",
			Height:     "480px",
			AssetsHost: echartsAssetsHost,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    m.Sprintf(locale.Probabilities),
			Subtitle: m.Sprintf(locale.Recommended, prediction.Display),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: m.Sprintf(locale.CropAxis), NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: m.Sprintf(locale.ProbabilityAxis), Min: 0, Max: 100}),
	)
	bar.SetXAxis(names).
		AddSeries(m.Sprintf(locale.ProbabilityAxis), values,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsHost)
	page.AddCharts(bar)
	return page
}
