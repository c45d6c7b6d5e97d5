// Package plugintest provides contract tests that any plugin.Plugin
// implementation must pass.
package plugintest

import (
	"context"
	"testing"

	"github.com/HerbHall/fillwatch/pkg/plugin"
	"go.uber.org/zap"
)

// TestPluginContract runs the lifecycle contract against a plugin factory:
//
//	func TestPluginContract(t *testing.T) {
//	    plugintest.TestPluginContract(t, func() plugin.Plugin { return spc.New() })
//	}
func TestPluginContract(t *testing.T, factory func() plugin.Plugin) {
	t.Helper()

	t.Run("Info_returns_valid_metadata", func(t *testing.T) {
		info := factory().Info()
		if info.Name == "" {
			t.Error("Info().Name must not be empty")
		}
		if info.Version == "" {
			t.Error("Info().Version must not be empty")
		}
		if info.APIVersion < plugin.APIVersionMin || info.APIVersion > plugin.APIVersionCurrent {
			t.Errorf("Info().APIVersion = %d, outside [%d, %d]",
				info.APIVersion, plugin.APIVersionMin, plugin.APIVersionCurrent)
		}
	})

	t.Run("Init_succeeds_with_minimal_deps", func(t *testing.T) {
		p := factory()
		if err := p.Init(context.Background(), minimalDeps(p.Info().Name)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
	})

	t.Run("Start_then_Stop", func(t *testing.T) {
		p := factory()
		if err := p.Init(context.Background(), minimalDeps(p.Info().Name)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if err := p.Stop(context.Background()); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	})

	t.Run("Stop_without_Start", func(t *testing.T) {
		p := factory()
		if err := p.Init(context.Background(), minimalDeps(p.Info().Name)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := p.Stop(context.Background()); err != nil {
			t.Fatalf("Stop() without Start error = %v", err)
		}
	})

	t.Run("Info_is_idempotent", func(t *testing.T) {
		p := factory()
		a, b := p.Info(), p.Info()
		if a.Name != b.Name || a.Version != b.Version {
			t.Error("Info() must return consistent results")
		}
	})
}

func minimalDeps(name string) plugin.Dependencies {
	return plugin.Dependencies{
		Logger: zap.NewNop().Named(name),
	}
}
