package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "defaults", level: "", format: ""},
		{name: "debug json", level: "debug", format: "json"},
		{name: "warn console", level: "warn", format: "console"},
		{name: "invalid level", level: "banana", format: "json", wantErr: true},
		{name: "invalid format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set("logging.level", tt.level)
			v.Set("logging.format", tt.format)

			logger, err := NewLogger(v)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}
