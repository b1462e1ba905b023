package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"deliveryeta/db"
	"deliveryeta/ml"

	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// PredictionStore persists served predictions. It is optional.
type PredictionStore interface {
	SavePrediction(p ml.Prediction) error
	RecentPredictions(limit int) ([]db.PredictionRecord, error)
}

type predictRequest struct {
	Age      *int     `json:"age"`
	Rating   *float64 `json:"rating"`
	Distance *float64 `json:"distance"`
}

type predictResponse struct {
	ml.Prediction
	Text string `json:"text"`
}

type handlers struct {
	predictor ml.ModelProvider
	history   PredictionStore
	formatter *ResultFormatter
	logger    *zap.Logger
	ui        *pageRenderer
	timeout   time.Duration
}

func (h *handlers) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/predictions", h.handlePredictions)
	mux.HandleFunc("GET /api/ws/predict", h.handlePredictSocket)
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /predict", h.handlePredictForm)
	mux.Handle("GET /static/", staticHandler())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) handleModel(w http.ResponseWriter, r *http.Request) {
	artifact := h.predictor.Artifact()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":             artifact.Name,
		"version":          artifact.Version,
		"model_type":       artifact.ModelType,
		"features":         artifact.Features,
		"bounds":           artifact.Bounds,
		"bounds_defaulted": artifact.BoundsDefaulted,
	})
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	input, err := req.featureVector()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, status, err := h.predict(r.Context(), input)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "prediction log disabled")
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(l, maxHistoryLimit)
	}
	records, err := h.history.RecentPredictions(limit)
	if err != nil {
		h.logger.Error("load prediction log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": records,
		"count":       len(records),
	})
}

// predict runs one inference and records it. The returned status is only
// meaningful when err is not nil.
func (h *handlers) predict(ctx context.Context, input ml.FeatureVector) (predictResponse, int, error) {
	prediction, err := h.predictor.Predict(ctx, input)
	if err != nil {
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(ctx)),
			zap.Any("input", input),
			zap.Error(err),
		}
		if start := GetStartTime(ctx); !start.IsZero() {
			fields = append(fields, zap.Duration("elapsed", time.Since(start)))
		}
		h.logger.Error("prediction failed", fields...)
		return predictResponse{}, predictionErrorStatus(err), errors.New("prediction failed")
	}
	h.record(prediction)
	return predictResponse{Prediction: prediction, Text: h.formatter.Minutes(prediction.Minutes)}, http.StatusOK, nil
}

func (h *handlers) record(prediction ml.Prediction) {
	if !prediction.InBounds {
		h.logger.Warn("input outside training bounds", zap.Any("input", prediction.Input))
	}
	if h.history == nil {
		return
	}
	if err := h.history.SavePrediction(prediction); err != nil {
		h.logger.Warn("save prediction", zap.Error(err))
	}
}

func predictionErrorStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (req predictRequest) featureVector() (ml.FeatureVector, error) {
	if req.Age == nil || req.Rating == nil || req.Distance == nil {
		return ml.FeatureVector{}, errors.New("age, rating and distance are required")
	}
	return newFeatureVector(*req.Age, *req.Rating, *req.Distance)
}

func newFeatureVector(age int, rating, distance float64) (ml.FeatureVector, error) {
	for _, v := range []float64{rating, distance} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ml.FeatureVector{}, errors.New("rating and distance must be finite numbers")
		}
	}
	return ml.FeatureVector{Age: age, Rating: rating, Distance: distance}, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
