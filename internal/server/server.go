// Package server provides the FillWatch HTTP server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/HerbHall/fillwatch/internal/version"
	"github.com/HerbHall/fillwatch/pkg/plugin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PluginSource is the server's view of the plugin registry.
type PluginSource interface {
	AllRoutes() map[string][]plugin.Route
	All() []plugin.Plugin
}

// ReadinessChecker returns nil when the server can serve traffic.
type ReadinessChecker func(ctx context.Context) error

// probePaths are excluded from request logging and rate limiting.
var probePaths = []string{"/healthz", "/readyz", "/metrics"}

// Server is the FillWatch HTTP server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	plugins    PluginSource
	ready      ReadinessChecker
	logger     *zap.Logger
}

// New builds a server listening on addr with core routes, plugin routes
// under /api/v1/{plugin}, and the standard middleware chain. ready may be
// nil.
func New(addr string, plugins PluginSource, logger *zap.Logger, ready ReadinessChecker) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		plugins: plugins,
		ready:   ready,
		logger:  logger,
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/plugins", s.handlePlugins)
	s.mountPluginRoutes()

	handler := Chain(s.mux,
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, probePaths...),
		SecurityHeadersMiddleware,
		VersionHeaderMiddleware,
		RateLimitMiddleware(100, 200, probePaths...),
	)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) mountPluginRoutes() {
	for name, routes := range s.plugins.AllRoutes() {
		for _, route := range routes {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, name, route.Path)
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route", zap.String("plugin", name), zap.String("pattern", pattern))
		}
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealthz is the liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReadyz reports 503 until the readiness checker passes.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string                         `json:"status" example:"ok"`
	Service string                         `json:"service" example:"fillwatch"`
	Version map[string]string              `json:"version"`
	Plugins map[string]plugin.HealthStatus `json:"plugins,omitempty"`
}

// PluginResponse describes one active plugin.
type PluginResponse struct {
	Name        string `json:"name" example:"spc"`
	Version     string `json:"version" example:"0.1.0"`
	Description string `json:"description" example:"Statistical process control"`
}

// handleHealth returns service status, build metadata, and the health of
// plugins implementing plugin.HealthChecker. Any unhealthy plugin degrades
// the overall status.
//
//	@Summary	Health check
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Service: "fillwatch",
		Version: version.Map(),
	}
	for _, p := range s.plugins.All() {
		hc, ok := p.(plugin.HealthChecker)
		if !ok {
			continue
		}
		if resp.Plugins == nil {
			resp.Plugins = make(map[string]plugin.HealthStatus)
		}
		h := hc.Health(r.Context())
		resp.Plugins[p.Info().Name] = h
		if h.Status != "healthy" {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePlugins lists active plugins.
//
//	@Summary	List plugins
//	@Tags		system
//	@Produce	json
//	@Success	200	{array}	PluginResponse
//	@Router		/plugins [get]
func (s *Server) handlePlugins(w http.ResponseWriter, _ *http.Request) {
	plugins := s.plugins.All()
	out := make([]PluginResponse, 0, len(plugins))
	for _, p := range plugins {
		info := p.Info()
		out = append(out, PluginResponse{Name: info.Name, Version: info.Version, Description: info.Description})
	}
	writeJSON(w, http.StatusOK, out)
}
