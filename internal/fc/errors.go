package fc

import "errors"

// ErrNotFound is returned when a detail lookup targets a row that does not
// exist. It is a recoverable condition, distinct from store failures.
var ErrNotFound = errors.New("not found")

// ErrMaintenanceRunning is returned when a maintenance pass is requested
// while another one is still in flight.
var ErrMaintenanceRunning = errors.New("maintenance already running")
