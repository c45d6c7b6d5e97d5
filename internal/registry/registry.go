// Package registry manages plugin lifecycle: registration, dependency
// ordering, initialization, start, and shutdown.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/HerbHall/fillwatch/pkg/plugin"
	"go.uber.org/zap"
)

// Registry holds every registered plugin and the order they run in.
type Registry struct {
	mu       sync.RWMutex
	plugins  map[string]plugin.Plugin
	infos    map[string]plugin.PluginInfo
	order    []string // dependency order, set by Validate
	disabled map[string]bool
	logger   *zap.Logger
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		plugins:  make(map[string]plugin.Plugin),
		infos:    make(map[string]plugin.PluginInfo),
		disabled: make(map[string]bool),
		logger:   logger,
	}
}

// Register adds p. Names must be unique and non-empty.
func (r *Registry) Register(p plugin.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := p.Info()
	if info.Name == "" {
		return fmt.Errorf("plugin has empty name")
	}
	if _, exists := r.plugins[info.Name]; exists {
		return fmt.Errorf("plugin %q already registered", info.Name)
	}
	r.plugins[info.Name] = p
	r.infos[info.Name] = info
	r.logger.Info("plugin registered",
		zap.String("name", info.Name),
		zap.String("version", info.Version),
	)
	return nil
}

// Validate checks API versions and dependencies and computes the start
// order. Optional plugins that fail a check are disabled along with their
// dependents; a failing required plugin is an error.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.sortedNames() {
		info := r.infos[name]
		if info.APIVersion < plugin.APIVersionMin || info.APIVersion > plugin.APIVersionCurrent {
			if err := r.disable(name, fmt.Errorf("plugin %q targets Plugin API v%d, supported range is v%d..v%d",
				name, info.APIVersion, plugin.APIVersionMin, plugin.APIVersionCurrent)); err != nil {
				return err
			}
			continue
		}
		for _, dep := range info.Dependencies {
			if _, ok := r.plugins[dep]; !ok {
				if err := r.disable(name, fmt.Errorf("plugin %q depends on %q which is not registered", name, dep)); err != nil {
					return err
				}
				break
			}
		}
	}

	order, err := r.resolveOrder()
	if err != nil {
		return err
	}
	r.order = order

	r.logger.Info("plugin dependency resolution complete",
		zap.Strings("start_order", r.order),
		zap.Int("disabled", len(r.disabled)),
	)
	return nil
}

// resolveOrder topologically sorts active plugins with a depth-first walk
// over sorted names, so the order is deterministic. Plugins depending on a
// disabled plugin are disabled in turn.
func (r *Registry) resolveOrder() ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.plugins))
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("dependency cycle detected at plugin %q", name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, dep := range r.infos[name].Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
			if r.disabled[dep] && !r.disabled[name] {
				if err := r.disable(name, fmt.Errorf("plugin %q depends on %q which is disabled", name, dep)); err != nil {
					return err
				}
			}
		}
		state[name] = done
		if !r.disabled[name] {
			order = append(order, name)
		}
		return nil
	}

	for _, name := range r.sortedNames() {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// disable marks an optional plugin disabled, or returns cause for a
// required one. Caller holds r.mu.
func (r *Registry) disable(name string, cause error) error {
	if _, ok := r.plugins[name]; !ok {
		return nil
	}
	if r.infos[name].Required {
		return cause
	}
	r.logger.Warn("disabling optional plugin", zap.String("name", name), zap.Error(cause))
	r.disabled[name] = true
	return nil
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// InitAll initializes active plugins in dependency order, then runs
// ValidateConfig on plugins implementing plugin.Validator.
func (r *Registry) InitAll(ctx context.Context, depsFn func(name string) plugin.Dependencies) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		p := r.plugins[name]
		r.logger.Info("initializing plugin", zap.String("name", name))

		if err := p.Init(ctx, depsFn(name)); err != nil {
			if err := r.disable(name, fmt.Errorf("plugin %q failed to initialize: %w", name, err)); err != nil {
				return err
			}
			continue
		}
		if v, ok := p.(plugin.Validator); ok {
			if err := v.ValidateConfig(); err != nil {
				if err := r.disable(name, fmt.Errorf("plugin %q config validation failed: %w", name, err)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// StartAll starts active plugins in dependency order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		r.logger.Info("starting plugin", zap.String("name", name))
		if err := r.plugins[name].Start(ctx); err != nil {
			if err := r.disable(name, fmt.Errorf("plugin %q failed to start: %w", name, err)); err != nil {
				return err
			}
		}
	}
	return nil
}

// StopAll stops active plugins in reverse dependency order. Errors are
// logged and do not prevent the remaining plugins from stopping.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if r.disabled[name] {
			continue
		}
		r.logger.Info("stopping plugin", zap.String("name", name))
		if err := r.plugins[name].Stop(ctx); err != nil {
			r.logger.Error("failed to stop plugin", zap.String("name", name), zap.Error(err))
		}
	}
}

// Get returns an active plugin by name.
func (r *Registry) Get(name string) (plugin.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	if !ok || r.disabled[name] {
		return nil, false
	}
	return p, true
}

// IsDisabled reports whether a plugin has been disabled.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.disabled[name]
}

// All returns active plugins in dependency order.
func (r *Registry) All() []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]plugin.Plugin, 0, len(r.order))
	for _, name := range r.order {
		if !r.disabled[name] {
			out = append(out, r.plugins[name])
		}
	}
	return out
}

// AllRoutes returns the routes of active plugins implementing
// plugin.HTTPProvider, keyed by plugin name.
func (r *Registry) AllRoutes() map[string][]plugin.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make(map[string][]plugin.Route)
	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		if hp, ok := r.plugins[name].(plugin.HTTPProvider); ok {
			if pr := hp.Routes(); len(pr) > 0 {
				routes[name] = pr
			}
		}
	}
	return routes
}
