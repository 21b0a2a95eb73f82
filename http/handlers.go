package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"houseprice/db"
	"houseprice/ml"
)

const predictionCacheSize = 256

// cachedPrediction ties a memoized price to the pipeline that produced
// it. A hit only counts when the entry's pipeline is still the one
// being served, so a watcher swap retires stale prices immediately.
type cachedPrediction struct {
	price    float64
	pipeline *ml.Pipeline
}

// Handlers serves the prediction API. The pipeline pointer is loaded
// once per request; the pipeline behind it is immutable, so no lock is
// needed even when the watcher swaps in a fresh pair.
type Handlers struct {
	pipeline *atomic.Pointer[ml.Pipeline]
	result   *atomic.Pointer[ml.TrainingResult]
	cache    *lru.Cache[string, cachedPrediction]
	printer  *message.Printer
	feed     *FeedHub
	logger   *zap.Logger
}

// NewHandlers wires the request handlers to their shared immutable
// state. feed may be nil to disable the websocket endpoint.
func NewHandlers(pipeline *atomic.Pointer[ml.Pipeline], result *atomic.Pointer[ml.TrainingResult], feed *FeedHub, logger *zap.Logger) (*Handlers, error) {
	cache, err := lru.New[string, cachedPrediction](predictionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create prediction cache: %w", err)
	}
	return &Handlers{
		pipeline: pipeline,
		result:   result,
		cache:    cache,
		printer:  message.NewPrinter(language.English),
		feed:     feed,
		logger:   logger,
	}, nil
}

// Register installs all API routes on the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/model-info", h.handleModelInfo)
	mux.HandleFunc("GET /api/predictions", h.handlePredictions)
	if h.feed != nil {
		mux.HandleFunc("GET /api/ws/feed", h.feed.HandleUpgrade)
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "House price prediction service is running",
	})
}

type predictResponse struct {
	PredictedPrice float64            `json:"predicted_price"`
	FormattedPrice string             `json:"formatted_price"`
	InputFeatures  map[string]float64 `json:"input_features"`
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	features, err := decodeFeatures(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if violation := features.Validate(); violation != nil {
		writeError(w, &ValidationError{Field: violation.Field, Reason: violation.Message})
		return
	}

	pipeline := h.pipeline.Load()
	if pipeline == nil {
		writeError(w, ErrModelUnavailable)
		return
	}

	vector := features.Vector()
	key := cacheKey(vector)
	var price float64
	if entry, hit := h.cache.Get(key); hit && entry.pipeline == pipeline {
		price = entry.price
	} else {
		price, err = pipeline.Predict(vector)
		if err != nil {
			writeError(w, &ComputeError{Err: err})
			return
		}
		h.cache.Add(key, cachedPrediction{price: price, pipeline: pipeline})
	}

	if db.Enabled() {
		record := db.PredictionRecord{
			Bedrooms:       features.Bedrooms,
			Bathrooms:      features.Bathrooms,
			SqftLiving:     features.SqftLiving,
			Floors:         features.Floors,
			Age:            features.Age,
			PredictedPrice: price,
		}
		// history is best effort; a storage failure never fails the request
		if err := db.SavePrediction(record); err != nil {
			h.logger.Warn("save prediction history", zap.Error(err))
		}
	}
	if h.feed != nil {
		h.feed.Publish(features, price)
	}

	writeJSON(w, http.StatusOK, predictResponse{
		PredictedPrice: math.Round(price*100) / 100,
		FormattedPrice: h.printer.Sprintf("$%.2f", price),
		InputFeatures:  features.Map(),
	})
}

type modelInfoResponse struct {
	ModelType           string            `json:"model_type"`
	Features            []string          `json:"features"`
	FeatureDescriptions map[string]string `json:"feature_descriptions"`
	TrainedAt           string            `json:"trained_at,omitempty"`
	MSE                 float64           `json:"mse,omitempty"`
	R2                  float64           `json:"r2,omitempty"`
}

func (h *Handlers) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if h.pipeline.Load() == nil {
		writeError(w, ErrModelUnavailable)
		return
	}

	response := modelInfoResponse{
		ModelType:           "Linear Regression",
		Features:            ml.FeatureNames(),
		FeatureDescriptions: ml.FeatureDescriptions(),
	}
	if result := h.result.Load(); result != nil {
		response.TrainedAt = result.TrainedAt.Format(time.RFC3339)
		response.MSE = result.MSE
		response.R2 = result.R2
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	records := []db.PredictionRecord{}
	if db.Enabled() {
		var err error
		records, err = db.QueryPredictions(limit)
		if err != nil {
			h.logger.Error("query prediction history", zap.Error(err))
			writeError(w, errors.New("failed to load prediction history"))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"predictions": records})
}

// decodeFeatures reads the request body and coerces the five declared
// fields to floats. Fields may arrive as JSON numbers or numeric
// strings; the first missing or non-numeric field in declared order is
// reported.
func decodeFeatures(r *http.Request) (ml.HouseFeatures, error) {
	var payload map[string]interface{}
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return ml.HouseFeatures{}, &ValidationError{Reason: fmt.Sprintf("Invalid input data: %v", err)}
	}

	vector := make([]float64, 0, ml.FeatureCount)
	for _, name := range ml.FeatureNames() {
		raw, ok := payload[name]
		if !ok {
			return ml.HouseFeatures{}, &ValidationError{
				Field:  name,
				Reason: fmt.Sprintf("Missing required field: %s", name),
			}
		}
		value, err := coerceFloat(raw)
		if err != nil {
			return ml.HouseFeatures{}, &ValidationError{
				Field:  name,
				Reason: fmt.Sprintf("Invalid input data: %s must be a number", name),
			}
		}
		vector = append(vector, value)
	}
	return ml.FromVector(vector)
}

func coerceFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("value %v is not numeric", raw)
	}
}

func cacheKey(vector []float64) string {
	key := ""
	for i, value := range vector {
		if i > 0 {
			key += "|"
		}
		key += strconv.FormatFloat(value, 'g', -1, 64)
	}
	return key
}
