package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"binwatch-cloud/internal/auth"
	"binwatch-cloud/internal/telemetry/application"
	telemetry "binwatch-cloud/internal/telemetry/domain"
)

// IngestHandler accepts telemetry pushed by units.
type IngestHandler struct {
	pipeline *application.Pipeline
	logger   *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(pipeline *application.Pipeline, logger *log.Logger) (*IngestHandler, error) {
	if pipeline == nil {
		return nil, errors.New("ingest handler: nil pipeline")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{pipeline: pipeline, logger: logger}, nil
}

type ingestRequest struct {
	UnitID         string   `json:"unitId"`
	WeightKg       float64  `json:"weightKg"`
	DistanceCm     float64  `json:"distanceCm"`
	FillLevelPct   float64  `json:"fillLevelPct"`
	GPS            gpsBody  `json:"gps"`
	GPSValid       bool     `json:"gpsValid"`
	SatelliteCount int      `json:"satelliteCount"`
	ErrorText      string   `json:"errorText,omitempty"`
	TS             int64    `json:"ts,omitempty"`
	SignalQuality  *int     `json:"signalQuality,omitempty"`
	Registration   *string  `json:"registration,omitempty"`
	SessionActive  *bool    `json:"sessionActive,omitempty"`
	UptimeSeconds  *int64   `json:"uptimeSeconds,omitempty"`
	MessageSeq     *int64   `json:"messageSeq,omitempty"`
}

type gpsBody struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (r ingestRequest) toEvent() telemetry.TelemetryEvent {
	observedAt := time.Now().UTC()
	if r.TS > 0 {
		observedAt = time.UnixMilli(r.TS).UTC()
	}
	return telemetry.TelemetryEvent{
		UnitID:         r.UnitID,
		WeightKg:       r.WeightKg,
		DistanceCm:     r.DistanceCm,
		FillLevelPct:   r.FillLevelPct,
		GPS:            telemetry.GPS{Lat: r.GPS.Lat, Lng: r.GPS.Lng},
		GPSValid:       r.GPSValid,
		SatelliteCount: r.SatelliteCount,
		ErrorText:      r.ErrorText,
		ObservedAt:     observedAt,
		SignalQuality:  r.SignalQuality,
		Registration:   r.Registration,
		SessionActive:  r.SessionActive,
		UptimeSeconds:  r.UptimeSeconds,
		MessageSeq:     r.MessageSeq,
	}
}

// ServeHTTP ingests one telemetry event.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("ingest: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("ingest: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if tokenUnit := auth.UnitIDFromContext(r.Context()); tokenUnit != "" && tokenUnit != req.UnitID {
		http.Error(w, "unit id does not match token", http.StatusForbidden)
		return
	}

	outcome, err := h.pipeline.ProcessIncomingData(r.Context(), req.toEvent())
	if err != nil {
		h.logger.Printf("ingest: process error: unit=%s err=%v", req.UnitID, err)
		http.Error(w, "persistence error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if !outcome.Accepted && !outcome.Filtered {
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(outcome)
}

// StatsHandler serves the pipeline stats snapshot.
type StatsHandler struct {
	pipeline *application.Pipeline
}

// NewStatsHandler constructs a stats handler.
func NewStatsHandler(pipeline *application.Pipeline) *StatsHandler {
	return &StatsHandler{pipeline: pipeline}
}

// ServeHTTP returns current counters and buffer occupancy.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.pipeline.Stats())
}
