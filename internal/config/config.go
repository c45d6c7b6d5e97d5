// Package config adapts Viper to the plugin.Config interface and builds the
// process logger from configuration.
package config

import (
	"time"

	"github.com/HerbHall/fillwatch/pkg/plugin"
	"github.com/spf13/viper"
)

// Compile-time interface guard.
var _ plugin.Config = (*ViperConfig)(nil)

// ViperConfig is a plugin.Config over one Viper instance (or sub-tree).
type ViperConfig struct {
	v *viper.Viper
}

// New wraps v. A nil v yields an empty configuration.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

func (c *ViperConfig) Unmarshal(target any) error           { return c.v.Unmarshal(target) }
func (c *ViperConfig) Get(key string) any                   { return c.v.Get(key) }
func (c *ViperConfig) GetString(key string) string          { return c.v.GetString(key) }
func (c *ViperConfig) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *ViperConfig) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *ViperConfig) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *ViperConfig) IsSet(key string) bool                { return c.v.IsSet(key) }

// Sub scopes the configuration to key. A missing section yields an empty
// configuration rather than nil.
func (c *ViperConfig) Sub(key string) plugin.Config {
	return New(c.v.Sub(key))
}
