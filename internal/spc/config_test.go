package spc

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"postgres with dsn", func(c *Config) {
			c.Source.Driver = DriverPostgres
			c.Source.DSN = "postgres://fw@localhost/fill?sslmode=disable"
		}, false},
		{"postgres without dsn", func(c *Config) { c.Source.Driver = DriverPostgres }, true},
		{"unknown driver", func(c *Config) { c.Source.Driver = "oracle" }, true},
		{"table injection", func(c *Config) { c.Source.Table = "data; DROP TABLE x" }, true},
		{"table with schema dot", func(c *Config) { c.Source.Table = "public.data" }, true},
		{"unknown default rule", func(c *Config) { c.DefaultRules = []string{"NR1", "NR8"} }, true},
		{"no default rules", func(c *Config) { c.DefaultRules = []string{} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	got := Config{DefaultRules: []string{}, MissingModes: []string{"n/a"}}.withDefaults()

	if got.Source.Driver != DriverSQLite || got.Source.Table != DefaultTable {
		t.Errorf("source = %+v, want sqlite/%s", got.Source, DefaultTable)
	}
	if len(got.DefaultRules) != 0 {
		t.Errorf("DefaultRules = %v, explicit empty list should be kept", got.DefaultRules)
	}
	if len(got.MissingModes) != 1 || got.MissingModes[0] != "n/a" {
		t.Errorf("MissingModes = %v, want [n/a]", got.MissingModes)
	}
	if got.LoadTimeout != 30*time.Second {
		t.Errorf("LoadTimeout = %v, want 30s", got.LoadTimeout)
	}
}
