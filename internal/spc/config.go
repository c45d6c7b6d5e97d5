package spc

import (
	"fmt"
	"regexp"
	"time"

	pkgspc "github.com/HerbHall/fillwatch/pkg/spc"
)

// Supported measurement source drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultTable is the measurement table used when none is configured.
const DefaultTable = "fill_weight_data"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds configuration for the spc plugin ("plugins.spc").
type Config struct {
	Source       SourceConfig  `mapstructure:"source"`
	DefaultRules []string      `mapstructure:"default_rules"` // Rules evaluated when a request names none
	MissingModes []string      `mapstructure:"missing_modes"` // IPC mode values treated as absent
	LoadTimeout  time.Duration `mapstructure:"load_timeout"`
}

// SourceConfig selects where measurements are loaded from. An empty DSN
// with the sqlite driver means the local FillWatch database.
type SourceConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

// DefaultConfig returns the plugin defaults.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Driver: DriverSQLite,
			Table:  DefaultTable,
		},
		DefaultRules: []string{pkgspc.RuleNR1.String()},
		MissingModes: []string{"", "nan", "NaN", "null", "None"},
		LoadTimeout:  30 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultConfig. Lists that were set
// explicitly, even to empty, are kept.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Source.Driver == "" {
		c.Source.Driver = d.Source.Driver
	}
	if c.Source.Table == "" {
		c.Source.Table = d.Source.Table
	}
	if c.DefaultRules == nil {
		c.DefaultRules = d.DefaultRules
	}
	if c.MissingModes == nil {
		c.MissingModes = d.MissingModes
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = d.LoadTimeout
	}
	return c
}

// Validate rejects unknown drivers, unsafe table names, and unknown rules.
func (c Config) Validate() error {
	switch c.Source.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Source.DSN == "" {
			return fmt.Errorf("source.dsn is required for driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported source.driver %q", c.Source.Driver)
	}
	if !identPattern.MatchString(c.Source.Table) {
		return fmt.Errorf("source.table %q is not a plain SQL identifier", c.Source.Table)
	}
	if _, err := c.DefaultRuleSet(); err != nil {
		return fmt.Errorf("default_rules: %w", err)
	}
	return nil
}

// DefaultRuleSet parses DefaultRules.
func (c Config) DefaultRuleSet() (pkgspc.RuleSet, error) {
	return pkgspc.ParseRuleSet(c.DefaultRules)
}
