package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	connectivityapp "binwatch-cloud/internal/connectivity/application"
	"binwatch-cloud/internal/connectivity/interfaces"
)

// Handler serves connection health queries and report downloads.
type Handler struct {
	monitor *connectivityapp.Monitor
	logger  *log.Logger
}

// NewHandler constructs a connectivity handler.
func NewHandler(monitor *connectivityapp.Monitor, logger *log.Logger) (*Handler, error) {
	if monitor == nil {
		return nil, errors.New("connectivity handler: nil monitor")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{monitor: monitor, logger: logger}, nil
}

// ServeHTTP routes health queries.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, "/report.xlsx"):
		h.serveReport(w, "xlsx")
	case strings.HasSuffix(r.URL.Path, "/report.pdf"):
		h.serveReport(w, "pdf")
	default:
		h.serveSnapshot(w, r)
	}
}

func (h *Handler) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	if unitID := r.URL.Query().Get("unit"); unitID != "" {
		health, ok := h.monitor.Health(unitID)
		if !ok {
			http.Error(w, "unknown unit", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(health)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.monitor.Snapshot())
}

func (h *Handler) serveReport(w http.ResponseWriter, format string) {
	healths := h.monitor.Snapshot()
	now := time.Now().UTC()

	var (
		data        []byte
		err         error
		contentType string
		filename    string
	)
	switch format {
	case "xlsx":
		data, err = interfaces.BuildHealthReportXLSX(healths, now)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "health-report.xlsx"
	default:
		data, err = interfaces.BuildHealthReportPDF(healths, now)
		contentType = "application/pdf"
		filename = "health-report.pdf"
	}
	if err != nil {
		h.logger.Printf("connectivity report: build %s error: %v", format, err)
		http.Error(w, "report error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(data)
}
