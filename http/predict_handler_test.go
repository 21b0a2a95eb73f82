package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"houseprice/ml"
)

func postPredict(t *testing.T, handlers *Handlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return serve(t, handlers, req)
}

func TestHandlePredict(t *testing.T) {
	handlers := newTestHandlers(t, testPipeline())
	w := postPredict(t, handlers, `{"bedrooms":3,"bathrooms":2,"sqft_living":1800,"floors":1,"age":10}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var payload struct {
		PredictedPrice float64            `json:"predicted_price"`
		FormattedPrice string             `json:"formatted_price"`
		InputFeatures  map[string]float64 `json:"input_features"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.PredictedPrice <= 0 {
		t.Fatalf("expected positive prediction, got %f", payload.PredictedPrice)
	}
	if !strings.HasPrefix(payload.FormattedPrice, "$") {
		t.Fatalf("expected formatted price to begin with $, got %q", payload.FormattedPrice)
	}
	if !strings.Contains(payload.FormattedPrice, ",") {
		t.Fatalf("expected grouped formatted price, got %q", payload.FormattedPrice)
	}
	if payload.InputFeatures["sqft_living"] != 1800 {
		t.Fatalf("expected input echo, got %v", payload.InputFeatures)
	}
}

func TestHandlePredictFloor(t *testing.T) {
	handlers := newTestHandlers(t, testPipeline())
	// the cheapest allowed house must still come back at or above the clamp
	w := postPredict(t, handlers, `{"bedrooms":1,"bathrooms":0.5,"sqft_living":100,"floors":1,"age":200}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var payload struct {
		PredictedPrice float64 `json:"predicted_price"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.PredictedPrice < 50000 {
		t.Fatalf("expected prediction of at least 50000, got %f", payload.PredictedPrice)
	}
}

func TestHandlePredictMissingField(t *testing.T) {
	handlers := newTestHandlers(t, testPipeline())
	w := postPredict(t, handlers, `{"bedrooms":3,"bathrooms":2,"sqft_living":1800,"age":10}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["error"] != "Missing required field: floors" {
		t.Fatalf("unexpected error: %q", payload["error"])
	}
}

func TestHandlePredictBedroomsBelowMin(t *testing.T) {
	handlers := newTestHandlers(t, testPipeline())
	w := postPredict(t, handlers, `{"bedrooms":0,"bathrooms":2,"sqft_living":1800,"floors":1,"age":10}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Bedrooms must be between 1 and 10") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestHandlePredictSqftAboveMax(t *testing.T) {
	handlers := newTestHandlers(t, testPipeline())
	w := postPredict(t, handlers, `{"bedrooms":3,"bathrooms":2,"sqft_living":25000,"floors":1,"age":10}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "20,000") {
		t.Fatalf("expected square footage bound in error, got: %s", w.Body.String())
	}
}

func TestHandlePredictNumericString(t *testing.T) {
	handlers := newTestHandlers(t, testPipeline())
	w := postPredict(t, handlers, `{"bedrooms":"3","bathrooms":"2","sqft_living":"1800","floors":"1","age":"10"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected numeric strings to be accepted, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandlePredictNonNumeric(t *testing.T) {
	handlers := newTestHandlers(t, testPipeline())
	w := postPredict(t, handlers, `{"bedrooms":"three","bathrooms":2,"sqft_living":1800,"floors":1,"age":10}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "bedrooms") {
		t.Fatalf("expected offending field in error, got: %s", w.Body.String())
	}
}

func TestHandlePredictMalformedBody(t *testing.T) {
	handlers := newTestHandlers(t, testPipeline())
	w := postPredict(t, handlers, `{"bedrooms":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandlePredictModelUnavailable(t *testing.T) {
	handlers := newTestHandlers(t, nil)
	w := postPredict(t, handlers, `{"bedrooms":3,"bathrooms":2,"sqft_living":1800,"floors":1,"age":10}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Model not loaded") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestHandlePredictCached(t *testing.T) {
	handlers := newTestHandlers(t, testPipeline())
	body := `{"bedrooms":4,"bathrooms":2.5,"sqft_living":2400,"floors":2,"age":5}`

	first := postPredict(t, handlers, body)
	second := postPredict(t, handlers, body)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200s, got %d and %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("cached response differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}
}

func TestHandlePredictCacheFollowsPipelineSwap(t *testing.T) {
	var current atomic.Pointer[ml.Pipeline]
	current.Store(testPipeline())
	var result atomic.Pointer[ml.TrainingResult]
	handlers, err := NewHandlers(&current, &result, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := `{"bedrooms":3,"bathrooms":2,"sqft_living":1800,"floors":1,"age":10}`
	first := postPredict(t, handlers, body)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}

	// replace the served pair the way the artifact watcher does
	retrained := testPipeline()
	retrained.Model.Bias = 999999
	current.Store(retrained)

	second := postPredict(t, handlers, body)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", second.Code, second.Body.String())
	}

	var before, after struct {
		PredictedPrice float64 `json:"predicted_price"`
	}
	if err := json.Unmarshal(first.Body.Bytes(), &before); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &after); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	features := ml.HouseFeatures{Bedrooms: 3, Bathrooms: 2, SqftLiving: 1800, Floors: 1, Age: 10}
	want, err := retrained.Predict(features.Vector())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.PredictedPrice != math.Round(want*100)/100 {
		t.Fatalf("expected swapped model's price %f, got %f", want, after.PredictedPrice)
	}
	if after.PredictedPrice == before.PredictedPrice {
		t.Fatalf("repeat request still priced by the replaced model: %f", after.PredictedPrice)
	}
}
