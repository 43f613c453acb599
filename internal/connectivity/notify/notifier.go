package notify

import (
	"context"
	"log"
	"time"
)

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert is one connectivity notification.
type Alert struct {
	UnitID   string    `json:"unitId"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"`
	At       time.Time `json:"at"`
}

// Notifier delivers alerts. Implementations must not block indefinitely;
// callers treat delivery as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the service log.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier constructs a log-backed notifier.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, alert Alert) error {
	n.logger.Printf("alert [%s] unit=%s %s", alert.Severity, alert.UnitID, alert.Message)
	return nil
}

// MultiNotifier fans an alert out to several notifiers. Individual failures
// do not stop the others; the first error is returned.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier constructs a MultiNotifier.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Notify forwards the alert to all notifiers.
func (m *MultiNotifier) Notify(ctx context.Context, alert Alert) error {
	if m == nil {
		return nil
	}
	var first error
	for _, notifier := range m.notifiers {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, alert); err != nil && first == nil {
			first = err
		}
	}
	return first
}
