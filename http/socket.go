package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"croprec/ml"
	"croprec/recommend"
)

const (
	socketWriteWait     = 10 * time.Second
	socketMaxMessageLen = 4096
)

// MessageType 消息类型
type MessageType string

const (
	PredictionMessage MessageType = "prediction"
	ErrorMessage      MessageType = "error"
)

// SocketRequest 客户端发送的一组测量值
type SocketRequest struct {
	ID           string             `json:"id"`
	Measurements map[string]float64 `json:"measurements"`
}

// SocketReply 服务端回复
type SocketReply struct {
	Type       MessageType           `json:"type"`
	ID         string                `json:"id,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
	Prediction *recommend.Prediction `json:"prediction,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// handlePredictSocket 每条消息都是一次独立的推理请求
func (a *App) handlePredictSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	clientID := uuid.NewString()
	a.logger.Info("websocket client connected", zap.String("client_id", clientID))
	defer func() {
		conn.Close()
		a.logger.Info("websocket client disconnected", zap.String("client_id", clientID))
	}()

	conn.SetReadLimit(socketMaxMessageLen)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.logger.Warn("websocket read error", zap.String("client_id", clientID), zap.Error(err))
			}
			return
		}

		reply := a.answer(r.Context(), payload)
		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			a.logger.Warn("websocket write error", zap.String("client_id", clientID), zap.Error(err))
			return
		}
	}
}

func (a *App) answer(ctx context.Context, payload []byte) SocketReply {
	var request SocketRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return socketError("", "invalid message: "+err.Error())
	}
	record, err := ml.RecordFromMap(request.Measurements)
	if err == nil {
		err = ml.CheckBounds(record)
	}
	if err != nil {
		return socketError(request.ID, err.Error())
	}

	prediction, err := a.recommender.Recommend(ctx, record)
	if err != nil {
		return socketError(request.ID, err.Error())
	}
	return SocketReply{
		Type:       PredictionMessage,
		ID:         request.ID,
		Timestamp:  time.Now(),
		Prediction: prediction,
	}
}

func socketError(id, msg string) SocketReply {
	return SocketReply{Type: ErrorMessage, ID: id, Timestamp: time.Now(), Error: msg}
}
