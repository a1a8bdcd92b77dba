package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for a margin session.
// Values are populated from .margin.yaml, MARGIN_* env vars, and CLI flags.
type Config struct {
	DBPath        string `mapstructure:"db_path"`
	CodebookPath  string `mapstructure:"codebook_path"`
	TelemetryPath string `mapstructure:"telemetry_path"`
	Ephemeral     bool   `mapstructure:"ephemeral"`
	NoColor       bool   `mapstructure:"no_color"`
	Verbose       bool   `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("db_path", defaultDBPath())
	viper.SetDefault("codebook_path", "codebook.toml")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("ephemeral", false)
	viper.SetDefault("no_color", false)
	viper.SetDefault("verbose", false)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}

// defaultDBPath places the database under the user config directory,
// falling back to the working directory when that cannot be determined.
func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "margin.db"
	}
	return filepath.Join(dir, "margin", "margin.db")
}
