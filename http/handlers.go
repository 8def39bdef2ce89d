package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"croprec/locale"
	"croprec/ml"
	"croprec/recommend"
)

// Recommender 推荐服务接口
type Recommender interface {
	Recommend(ctx context.Context, record ml.MeasurementRecord) (*recommend.Prediction, error)
	SupportsProbabilities() bool
}

// App 持有处理器依赖
type App struct {
	recommender Recommender
	info        ml.ModelInfo
	messages    *locale.Messages
	title       string
	logger      *zap.Logger
	upgrader    websocket.Upgrader
}

// NewApp 创建处理器集合
func NewApp(recommender Recommender, info ml.ModelInfo, messages *locale.Messages, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		recommender: recommender,
		info:        info,
		messages:    messages,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// SetTitle 覆盖页面标题
func (a *App) SetTitle(title string) {
	a.title = title
}

// RegisterHandlers 注册所有处理器
func (a *App) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleIndex)
	mux.HandleFunc("POST /{$}", a.handleSubmit)
	mux.HandleFunc("GET /chart", a.handleChart)

	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("POST /api/predict", a.handlePredict)
	mux.HandleFunc("GET /api/model", a.handleModel)
	mux.HandleFunc("GET /api/features", a.handleFeatures)
	mux.HandleFunc("GET /api/ws/predict", a.handlePredictSocket)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"probabilities": a.recommender.SupportsProbabilities(),
	})
}

func (a *App) handlePredict(w http.ResponseWriter, r *http.Request) {
	var values map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	record, err := ml.RecordFromMap(values)
	if err == nil {
		err = ml.CheckBounds(record)
	}
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	prediction, err := a.recommender.Recommend(r.Context(), record)
	if err != nil {
		WriteJSONError(w, inferenceStatus(err), err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, prediction)
}

func (a *App) handleModel(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, a.info)
}

func (a *App) handleFeatures(w http.ResponseWriter, r *http.Request) {
	specs := ml.FeatureSpecs()
	for i := range specs {
		specs[i].Label = a.messages.FeatureLabel(specs[i].Name)
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"language": a.messages.Tag().String(),
		"features": specs,
	})
}

// inferenceStatus 将推理错误映射为状态码
func inferenceStatus(err error) int {
	var inferenceErr *recommend.InferenceError
	if errors.As(err, &inferenceErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
