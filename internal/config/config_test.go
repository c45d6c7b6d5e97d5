package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestViperConfig_Sub(t *testing.T) {
	v := viper.New()
	v.Set("plugins.spc.source.table", "fill_weight_data")
	v.Set("plugins.spc.load_timeout", "45s")

	sub := New(v).Sub("plugins.spc")

	if got := sub.GetString("source.table"); got != "fill_weight_data" {
		t.Errorf("GetString(source.table) = %q, want %q", got, "fill_weight_data")
	}
	if got := sub.GetDuration("load_timeout"); got != 45*time.Second {
		t.Errorf("GetDuration(load_timeout) = %v, want 45s", got)
	}
	if !sub.IsSet("source.table") {
		t.Error("IsSet(source.table) = false, want true")
	}
}

func TestViperConfig_SubMissing(t *testing.T) {
	sub := New(viper.New()).Sub("plugins.absent")
	if sub == nil {
		t.Fatal("Sub() returned nil for a missing section")
	}
	if sub.IsSet("anything") {
		t.Error("empty section reports keys as set")
	}
}

func TestViperConfig_Unmarshal(t *testing.T) {
	v := viper.New()
	v.Set("default_rules", []string{"NR1", "NR3"})

	var target struct {
		DefaultRules []string `mapstructure:"default_rules"`
	}
	if err := New(v).Unmarshal(&target); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(target.DefaultRules) != 2 || target.DefaultRules[1] != "NR3" {
		t.Errorf("DefaultRules = %v, want [NR1 NR3]", target.DefaultRules)
	}
}
