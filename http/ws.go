package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	socketIdleTimeout = 2 * time.Minute
	socketWriteWait   = 10 * time.Second
	socketMaxMessage  = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type socketError struct {
	Error string `json:"error"`
}

// handlePredictSocket answers each text frame holding a feature vector with
// one prediction. Frames are handled in order, one inference at a time.
func (h *handlers) handlePredictSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	requestID := GetRequestID(r.Context())
	conn.SetReadLimit(socketMaxMessage)

	for {
		conn.SetReadDeadline(time.Now().Add(socketIdleTimeout))
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("websocket closed", zap.String("request_id", requestID), zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		reply := h.socketReply(requestID, payload)
		conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("websocket write", zap.String("request_id", requestID), zap.Error(err))
			return
		}
	}
}

func (h *handlers) socketReply(requestID string, payload []byte) interface{} {
	var req predictRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return socketError{Error: "invalid message: " + err.Error()}
	}
	input, err := req.featureVector()
	if err != nil {
		return socketError{Error: err.Error()}
	}

	// The upgrade request's context carries the HTTP timeout, which does not
	// apply to a long-lived connection.
	ctx, cancel := context.WithTimeout(context.WithValue(context.Background(), RequestIDKey, requestID), h.timeout)
	defer cancel()

	resp, _, err := h.predict(ctx, input)
	if err != nil {
		return socketError{Error: err.Error()}
	}
	return resp
}
