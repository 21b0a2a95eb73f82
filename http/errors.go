package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// The prediction path surfaces a closed set of error kinds, each with a
// fixed status code: validation problems are 400, everything else 500.

// ValidationError rejects one request field: missing, non-numeric or
// out of range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ErrModelUnavailable means no fitted pipeline is loaded in memory.
// Not recoverable without a restart or an out-of-band retrain.
var ErrModelUnavailable = errors.New("Model not loaded")

// ComputeError wraps an unexpected failure inside the predict path.
type ComputeError struct {
	Err error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("Prediction failed: %v", e.Err)
}

func (e *ComputeError) Unwrap() error {
	return e.Err
}

func statusFor(err error) int {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}
