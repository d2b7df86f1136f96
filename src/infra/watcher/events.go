package watcher

import (
	"time"
)

// ConfigEventType represents the outcome of a config file change
type ConfigEventType string

const (
	ConfigReloaded ConfigEventType = "reloaded"
	ConfigRejected ConfigEventType = "rejected"
)

// ConfigEvent is emitted after a debounced change of the config file was handled
type ConfigEvent struct {
	Path      string
	EventType ConfigEventType
	Err       error
	Timestamp time.Time
}
