package metrics

import (
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "binwatch_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	eventsReceived  prometheus.Counter
	eventsFiltered  *prometheus.CounterVec
	recordsSaved    *prometheus.CounterVec
	persistErrors   *prometheus.CounterVec
	bufferOccupancy *prometheus.GaugeVec
	flushLatency    *prometheus.HistogramVec

	offlineTransitions prometheus.Counter
	connectionStates   *prometheus.GaugeVec
	notifyResults      *prometheus.CounterVec
)

// Init registers pipeline and connectivity metrics.
func Init(logger *log.Logger) {
	registerOnce.Do(func() {
		eventsReceived = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_received_total",
				Help: "Total telemetry events received",
			},
		)
		eventsFiltered = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_filtered_total",
				Help: "Total events rejected or suppressed by reason",
			},
			[]string{"reason"},
		)
		recordsSaved = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_saved_total",
				Help: "Total records persisted by tier",
			},
			[]string{"tier"},
		)
		persistErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "persist_errors_total",
				Help: "Total persistence failures by tier",
			},
			[]string{"tier"},
		)
		bufferOccupancy = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "buffer_occupancy",
				Help: "Buffered record slots by tier",
			},
			[]string{"tier"},
		)
		flushLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "flush_latency_seconds",
				Help:    "Tier flush latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tier", "result"},
		)

		offlineTransitions = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "offline_transitions_total",
				Help: "Total transitions of units into offline",
			},
		)
		connectionStates = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "connection_states",
				Help: "Units currently in each connection state",
			},
			[]string{"state"},
		)
		notifyResults = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Total alert notifications by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			eventsReceived,
			eventsFiltered,
			recordsSaved,
			persistErrors,
			bufferOccupancy,
			flushLatency,
			offlineTransitions,
			connectionStates,
			notifyResults,
		)
		if logger != nil {
			logger.Printf("metrics registered")
		}
	})
}

// IncReceived counts an arriving event.
func IncReceived() {
	if eventsReceived != nil {
		eventsReceived.Inc()
	}
}

// IncFiltered counts a rejected or suppressed event.
func IncFiltered(reason string) {
	if eventsFiltered != nil {
		eventsFiltered.WithLabelValues(reason).Inc()
	}
}

// IncSaved counts a persisted record.
func IncSaved(tier string) {
	if recordsSaved != nil {
		recordsSaved.WithLabelValues(tier).Inc()
	}
}

// IncPersistError counts a failed persist.
func IncPersistError(tier string) {
	if persistErrors != nil {
		persistErrors.WithLabelValues(tier).Inc()
	}
}

// SetBufferOccupancy publishes a tier's slot count.
func SetBufferOccupancy(tier string, size int) {
	if bufferOccupancy != nil {
		bufferOccupancy.WithLabelValues(tier).Set(float64(size))
	}
}

// ObserveFlush records one tier flush.
func ObserveFlush(tier string, seconds float64, success bool) {
	if flushLatency == nil {
		return
	}
	result := resultSuccess
	if !success {
		result = resultError
	}
	flushLatency.WithLabelValues(tier, result).Observe(seconds)
}

// IncOfflineTransition counts a unit going offline.
func IncOfflineTransition() {
	if offlineTransitions != nil {
		offlineTransitions.Inc()
	}
}

// SetConnectionState publishes how many units sit in a state.
func SetConnectionState(state string, count int) {
	if connectionStates != nil {
		connectionStates.WithLabelValues(state).Set(float64(count))
	}
}

// IncNotify counts one notification attempt.
func IncNotify(success bool) {
	if notifyResults == nil {
		return
	}
	result := resultSuccess
	if !success {
		result = resultError
	}
	notifyResults.WithLabelValues(result).Inc()
}
