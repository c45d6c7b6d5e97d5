// Package plugin provides the SDK types for FillWatch modules. The server
// composes modules at compile time and drives them through these interfaces.
package plugin

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// API version constants for plugin compatibility checking.
const (
	APIVersionMin     = 1
	APIVersionCurrent = 1
)

// Plugin is the lifecycle every module implements.
type Plugin interface {
	// Info returns the plugin's metadata and dependency declarations.
	Info() PluginInfo

	// Init wires the plugin to its dependencies. It must not block on I/O
	// beyond running migrations.
	Init(ctx context.Context, deps Dependencies) error

	// Start begins the plugin's work (e.g. loading data).
	Start(ctx context.Context) error

	// Stop releases resources. Safe to call without Start.
	Stop(ctx context.Context) error
}

// PluginInfo contains plugin metadata and dependency declarations.
type PluginInfo struct {
	Name         string   // Unique identifier, also the route prefix
	Version      string   // Semantic version string
	Description  string   // Human-readable summary
	Dependencies []string // Plugin names that must initialize first
	Required     bool     // If true, the server refuses to start without this plugin
	APIVersion   int      // Plugin API version targeted
}

// Dependencies provides controlled access to shared services.
type Dependencies struct {
	Config Config      // Scoped to this plugin's config section; may be nil
	Logger *zap.Logger // Named logger for this plugin
	Store  Store       // Shared local database; may be nil
}

// Route is an HTTP route exposed by a plugin, mounted under /api/v1/{plugin}.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// HTTPProvider is implemented by plugins that expose HTTP routes.
type HTTPProvider interface {
	Routes() []Route
}

// HealthStatus represents a plugin's health report.
type HealthStatus struct {
	Status  string            `json:"status"` // "healthy", "degraded", "unhealthy"
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthChecker is implemented by plugins that report their own health.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// Validator is implemented by plugins that validate configuration after Init.
type Validator interface {
	ValidateConfig() error
}

// Config abstracts configuration access.
type Config interface {
	Unmarshal(target any) error
	Get(key string) any
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	IsSet(key string) bool
	Sub(key string) Config
}

// Store is the shared local database.
type Store interface {
	DB() *sql.DB
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error
	Migrate(ctx context.Context, pluginName string, migrations []Migration) error
}

// Migration is one versioned schema change owned by a plugin.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}
