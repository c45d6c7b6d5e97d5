package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger from "logging.level" (debug, info, warn,
// error; empty means info) and "logging.format" (json or console; empty
// means json).
func NewLogger(v *viper.Viper) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if s := v.GetString("logging.level"); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", s, err)
		}
	}

	var cfg zap.Config
	switch format := v.GetString("logging.format"); format {
	case "json", "":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}
