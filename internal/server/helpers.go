package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/navboard/internal/models"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteBytes writes a binary document with the given content type.
func WriteBytes(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// writeServiceError maps a service error onto an HTTP status.
// Anything unrecognised is treated as an upstream storage failure.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		WriteErrorWithCode(w, http.StatusForbidden, err.Error(), "forbidden")
	case errors.Is(err, models.ErrInvalidRequest):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_request")
	case errors.Is(err, models.ErrNotFound):
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "not_found")
	default:
		WriteErrorWithCode(w, http.StatusBadGateway, "storage unavailable", "upstream")
	}
}

// QueryList returns every value of a query parameter, accepting both
// repeated keys and comma-separated lists. Blanks and duplicates are dropped.
func QueryList(r *http.Request, key string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}

// QueryDate parses an optional YYYY-MM-DD query parameter.
// A missing parameter yields the zero time.
func QueryDate(r *http.Request, key string) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(models.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", key, v)
	}
	return t, nil
}

// QueryWeights parses weight=ENTITY:VALUE pairs. Weights must be finite
// and non-negative.
func QueryWeights(r *http.Request) (map[string]float64, error) {
	pairs := QueryList(r, "weight")
	if len(pairs) == 0 {
		return nil, nil
	}
	weights := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		id, val, ok := strings.Cut(p, ":")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("weight %q: expected ENTITY:VALUE", p)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return nil, fmt.Errorf("weight %q: expected a finite non-negative number", p)
		}
		weights[strings.TrimSpace(id)] = f
	}
	return weights, nil
}
