// Package config loads application configuration from file, environment
// and defaults via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/reelsort/reelsort/internal/intent"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig       `mapstructure:"server"`
	Database DatabaseConfig     `mapstructure:"database"`
	Logging  LoggingConfig      `mapstructure:"logging"`
	Library  LibraryConfig      `mapstructure:"library"`
	Rules    intent.FilterRules `mapstructure:"rules"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// LibraryConfig holds the watched library folders and the rescan schedule.
type LibraryConfig struct {
	Folders    []FolderConfig `mapstructure:"folders"`
	RescanCron string         `mapstructure:"rescan_cron"` // empty disables scheduled rescans
	Workers    int            `mapstructure:"workers"`
}

// FolderConfig binds one library root to the series whose metadata
// snapshot classifies its files.
type FolderConfig struct {
	Path     string `mapstructure:"path"`
	SeriesID int64  `mapstructure:"series_id"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8620,
		},
		Database: DatabaseConfig{
			Path: "./data/reelsort.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Library: LibraryConfig{
			Workers: 4,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.reelsort")
	}

	v.SetEnvPrefix("REELSORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults + env vars.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("library.workers", def.Library.Workers)
}
