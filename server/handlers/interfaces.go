// Package handlers provides HTTP handlers for the activityd server.
//
// Each handler is in its own file and implements http.Handler or exposes
// http.HandlerFunc methods. Handlers use interfaces to access server
// dependencies, avoiding circular imports.
package handlers

import (
	"time"

	"github.com/nomis52/goactivity/activity"
	"github.com/nomis52/goactivity/server/config"
)

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.ServerConfig
}

// Reloader can reload its configuration and reports the resulting log level.
type Reloader interface {
	Reload() error
	LogLevel() string
}

// ActivityStore is the store the activity endpoints operate on.
type ActivityStore interface {
	Create(in activity.Input) (int, error)
	Read(q activity.Query) (activity.ReadResult, error)
	Update(id activity.Optional[string], in activity.Input) error
	Delete(q activity.Query) (activity.DeleteResult, error)
}

// OperationObserver is told the outcome of every store operation and how
// many records each successful delete removed.
type OperationObserver interface {
	ObserveOperation(operation, result string)
	ObserveDeleted(removed int)
}

// StatusProvider aggregates what the status endpoint reports.
type StatusProvider interface {
	Properties() ServerProperties
	Stats() activity.Stats
	NextPush() *time.Time
}
