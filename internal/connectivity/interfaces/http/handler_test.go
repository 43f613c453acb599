package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	connectivityapp "binwatch-cloud/internal/connectivity/application"
	connectivity "binwatch-cloud/internal/connectivity/domain"
	telemetry "binwatch-cloud/internal/telemetry/domain"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	monitor, err := connectivityapp.NewMonitor(connectivityapp.DefaultMonitorConfig(), nil)
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	monitor.Observe(telemetry.TelemetryEvent{UnitID: "unit-1", GPSValid: true, SatelliteCount: 6}, now)
	monitor.Observe(telemetry.TelemetryEvent{UnitID: "unit-2"}, now)

	handler, err := NewHandler(monitor, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func TestHandlerServesFleetSnapshot(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/connectivity", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var healths []connectivity.UnitHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &healths); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(healths) != 2 || healths[0].UnitID != "unit-1" {
		t.Fatalf("expected sorted two-unit snapshot, got %+v", healths)
	}
}

func TestHandlerServesSingleUnit(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/connectivity?unit=unit-2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health connectivity.UnitHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.UnitID != "unit-2" {
		t.Fatalf("expected unit-2, got %+v", health)
	}
}

func TestHandlerUnknownUnitIs404(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/connectivity?unit=nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandlerServesReports(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/connectivity/report.pdf", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected pdf content type, got %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Fatal("expected pdf bytes")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/connectivity/report.xlsx", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheet") {
		t.Fatalf("expected spreadsheet content type, got %q", ct)
	}
}

func TestHandlerRejectsNonGet(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/connectivity", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
