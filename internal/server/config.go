package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the listener settings under the "server" key.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from defaults, an optional YAML file, and
// FW_-prefixed environment variables (FW_SERVER_PORT=9090). A search-path
// config file that does not exist is skipped.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("fillwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/fillwatch")
	}

	v.SetEnvPrefix("FW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "fillwatch.db")

	v.SetDefault("plugins.spc.source.driver", "sqlite")
	v.SetDefault("plugins.spc.source.dsn", "")
	v.SetDefault("plugins.spc.source.table", "fill_weight_data")
	v.SetDefault("plugins.spc.default_rules", []string{"NR1"})
	v.SetDefault("plugins.spc.missing_modes", []string{"", "nan", "NaN", "null", "None"})
	v.SetDefault("plugins.spc.load_timeout", "30s")
}
