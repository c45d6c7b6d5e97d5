// Package spc implements the statistical process control plugin: it loads
// fill-weight measurements, keeps an annotated snapshot, and serves control
// charts evaluated against the Nelson rules.
package spc

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/HerbHall/fillwatch/pkg/plugin"
	pkgspc "github.com/HerbHall/fillwatch/pkg/spc"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ plugin.Validator     = (*Module)(nil)
)

// Module is the spc plugin.
type Module struct {
	logger   *zap.Logger
	cfg      Config
	defaults pkgspc.RuleSet
	store    plugin.Store

	source      Source
	closeSource func() error

	// reloadMu orders reloads so the newest load always publishes last.
	reloadMu sync.Mutex

	mu      sync.RWMutex
	data    *Dataset
	lastErr error
}

// Option configures a Module.
type Option func(*Module)

// WithSource uses src instead of the configured source.
func WithSource(src Source) Option {
	return func(m *Module) { m.source = src }
}

// New creates the plugin.
func New(opts ...Option) *Module {
	m := &Module{
		logger:      zap.NewNop(),
		cfg:         DefaultConfig(),
		defaults:    pkgspc.NewRuleSet(pkgspc.RuleNR1),
		closeSource: func() error { return nil },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "spc",
		Version:     "0.1.0",
		Description: "Fill-weight control charts with Nelson rule evaluation",
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	if deps.Logger != nil {
		m.logger = deps.Logger
	}

	var cfg Config
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshal spc config: %w", err)
		}
	}
	m.cfg = cfg.withDefaults()

	if rules, err := m.cfg.DefaultRuleSet(); err == nil {
		m.defaults = rules
	}

	m.store = deps.Store
	if m.store != nil && m.ownsTable() && identPattern.MatchString(m.cfg.Source.Table) {
		if err := EnsureTable(ctx, m.store, m.cfg.Source.Table); err != nil {
			return fmt.Errorf("spc migrations: %w", err)
		}
	}

	m.logger.Info("spc module initialized",
		zap.String("driver", m.cfg.Source.Driver),
		zap.String("table", m.cfg.Source.Table),
		zap.Stringer("default_rules", m.defaults),
		zap.Duration("load_timeout", m.cfg.LoadTimeout),
	)
	return nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

// ownsTable reports whether measurements live in the local store.
func (m *Module) ownsTable() bool {
	return m.cfg.Source.Driver == DriverSQLite && m.cfg.Source.DSN == ""
}

// Start opens the source and performs the initial load. A failed load is
// logged and leaves the module not ready until a successful Reload.
func (m *Module) Start(ctx context.Context) error {
	if m.source == nil {
		if m.ownsTable() && m.store == nil {
			m.logger.Warn("no local store available; measurement source disabled")
			return nil
		}
		src, closeFn, err := OpenSource(ctx, m.cfg.Source, m.store)
		if err != nil {
			return fmt.Errorf("open measurement source: %w", err)
		}
		m.source, m.closeSource = src, closeFn
	}

	if err := m.Reload(ctx); err != nil {
		m.logger.Error("initial dataset load failed", zap.Error(err))
	}
	m.logger.Info("spc module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if err := m.closeSource(); err != nil {
		return fmt.Errorf("close measurement source: %w", err)
	}
	m.closeSource = func() error { return nil }
	m.logger.Info("spc module stopped")
	return nil
}

// Reload loads the source and swaps in a new snapshot. On failure the
// previous snapshot stays in place.
func (m *Module) Reload(ctx context.Context) error {
	if m.source == nil {
		return fmt.Errorf("reload: %w: no measurement source", ErrNotLoaded)
	}

	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.LoadTimeout)
	defer cancel()

	start := time.Now()
	d, err := m.load(ctx)
	elapsed := time.Since(start)

	m.mu.Lock()
	m.lastErr = err
	if err == nil {
		m.data = d
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("dataset load failed", zap.Error(err), zap.Duration("duration", elapsed))
		return err
	}

	datasetLoadDuration.Observe(elapsed.Seconds())
	datasetBatches.Set(float64(len(d.batches)))
	datasetMeasurements.Set(float64(d.Len()))
	m.logger.Info("dataset loaded",
		zap.Int("batches", len(d.batches)),
		zap.Int("measurements", d.Len()),
		zap.Int("modes", len(d.modes)),
		zap.Duration("duration", elapsed),
	)
	return nil
}

func (m *Module) load(ctx context.Context) (*Dataset, error) {
	ms, err := m.source.LoadMeasurements(ctx)
	if err != nil {
		return nil, fmt.Errorf("load measurements: %w", err)
	}
	d, err := NewDataset(ms, m.cfg.MissingModes)
	if err != nil {
		return nil, fmt.Errorf("build dataset: %w", err)
	}
	return d, nil
}

// Dataset returns the current snapshot.
func (m *Module) Dataset() (*Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, ErrNotLoaded
	}
	return m.data, nil
}

// Ready returns nil once a dataset is loaded.
func (m *Module) Ready(context.Context) error {
	_, err := m.Dataset()
	return err
}

// ChartRequest selects a chart. Empty Batch or Mode picks the first batch
// or first selectable mode; nil Rules picks the configured default rules.
type ChartRequest struct {
	Batch string
	Mode  string
	Rules *pkgspc.RuleSet
}

// Chart builds a chart from the current snapshot.
func (m *Module) Chart(req ChartRequest) (pkgspc.Chart, error) {
	d, err := m.Dataset()
	if err != nil {
		return pkgspc.Chart{}, err
	}

	batch := req.Batch
	if batch == "" {
		if len(d.batches) == 0 {
			return pkgspc.Chart{Series: []pkgspc.AnnotatedMeasurement{}}, nil
		}
		batch = d.batches[0]
	}
	rules := m.defaults
	if req.Rules != nil {
		rules = *req.Rules
	}

	mode := req.Mode
	if mode == "" {
		if len(d.modes) == 0 {
			st, err := d.Statistics(batch)
			if err != nil {
				return pkgspc.Chart{}, err
			}
			return pkgspc.Chart{
				Batch:      batch,
				Statistics: st,
				Series:     []pkgspc.AnnotatedMeasurement{},
				Result:     pkgspc.Result{Rules: rules.Rules(), Flags: emptyFlags(rules)},
			}, nil
		}
		mode = d.modes[0]
	}

	chart, err := d.Chart(batch, mode, rules)
	if err != nil {
		return pkgspc.Chart{}, err
	}

	evaluationsTotal.Inc()
	for _, r := range chart.Result.Rules {
		flagsTotal.WithLabelValues(r.String()).Add(float64(chart.Result.Count(r)))
	}
	m.logger.Debug("chart evaluated",
		zap.String("batch", batch),
		zap.String("mode", mode),
		zap.Stringer("rules", rules),
		zap.Int("points", len(chart.Series)),
		zap.Int("flags", chart.Result.Total()),
	)
	return chart, nil
}

func emptyFlags(rules pkgspc.RuleSet) map[pkgspc.Rule][]pkgspc.FlaggedPoint {
	flags := make(map[pkgspc.Rule][]pkgspc.FlaggedPoint)
	for _, r := range rules.Rules() {
		flags[r] = []pkgspc.FlaggedPoint{}
	}
	return flags
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	m.mu.RLock()
	d, lastErr := m.data, m.lastErr
	m.mu.RUnlock()

	if d == nil {
		msg := "no dataset loaded"
		if lastErr != nil {
			msg = lastErr.Error()
		}
		return plugin.HealthStatus{Status: "unhealthy", Message: msg}
	}

	status := plugin.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"batches":      strconv.Itoa(len(d.batches)),
			"measurements": strconv.Itoa(d.Len()),
			"loaded_at":    d.LoadedAt().Format(time.RFC3339),
		},
	}
	if lastErr != nil {
		status.Status = "degraded"
		status.Message = "last reload failed: " + lastErr.Error()
	}
	return status
}
