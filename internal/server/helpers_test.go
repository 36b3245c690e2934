package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/bobmcallan/navboard/internal/models"
)

func TestQueryList(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/portfolio?entity=QFH0001,QFH0002&entity=ZEN0001&entity=QFH0001&entity=", nil)
	got := QueryList(req, "entity")
	want := []string{"QFH0001", "QFH0002", "ZEN0001"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if got := QueryList(httptest.NewRequest(http.MethodGet, "/api/portfolio", nil), "entity"); got != nil {
		t.Errorf("Expected nil for missing param, got %v", got)
	}
}

func TestQueryDate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/portfolio?from=2024-02-29&to=29/02/2024", nil)

	from, err := QueryDate(req, "from")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from.Format(models.DateLayout) != "2024-02-29" {
		t.Errorf("Expected 2024-02-29, got %s", from)
	}

	if _, err := QueryDate(req, "to"); err == nil {
		t.Error("Expected error for non-ISO date")
	}

	missing, err := QueryDate(req, "since")
	if err != nil || !missing.IsZero() {
		t.Errorf("Expected zero time for missing param, got %v (%v)", missing, err)
	}
}

func TestQueryWeights(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/portfolio?weight=QFH0001:0.75,QFH0002:0.25", nil)
	w, err := QueryWeights(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w["QFH0001"] != 0.75 || w["QFH0002"] != 0.25 {
		t.Errorf("unexpected weights %v", w)
	}

	for _, bad := range []string{"QFH0001", "QFH0001:abc", "QFH0001:NaN", "QFH0001:-1", "QFH0001:Inf", ":0.5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/portfolio?weight="+bad, nil)
		if _, err := QueryWeights(req); err == nil {
			t.Errorf("Expected error for weight %q", bad)
		}
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("QFH9: %w", models.ErrUnauthorized), http.StatusForbidden},
		{fmt.Errorf("bad view: %w", models.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("gone: %w", models.ErrNotFound), http.StatusNotFound},
		{errors.New("connection refused"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		writeServiceError(rr, tt.err)
		if rr.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rr.Code)
		}
	}
}

func TestRequireMethod(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/portfolio", nil)
	if RequireMethod(rr, req, http.MethodGet, http.MethodHead) {
		t.Fatal("Expected POST to be rejected")
	}
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
	if rr.Header().Get("Allow") != "GET, HEAD" {
		t.Errorf("Expected Allow: GET, HEAD, got %s", rr.Header().Get("Allow"))
	}
}
