package telemetry

import "errors"

// ErrValidationFailed indicates an event rejected by range validation.
var ErrValidationFailed = errors.New("telemetry: validation failed")

// ErrPersistence indicates the durable store rejected a record.
var ErrPersistence = errors.New("telemetry: persistence failed")
