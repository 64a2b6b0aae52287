// Package config handles configuration loading from YAML files and
// environment variables, plus persistence of user-adjustable scan defaults.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Scanner ScannerConfig `mapstructure:"scanner"`
	Printer PrinterConfig `mapstructure:"printer"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	MaxUploadMB  int `mapstructure:"max_upload_mb"`
}

// ScannerConfig holds eSCL scanner configuration.
type ScannerConfig struct {
	Address string `mapstructure:"address"`
	Timeout int    `mapstructure:"timeout"`
	ClampA4 bool   `mapstructure:"clamp_a4"`
	SaveDir string `mapstructure:"save_dir"`
	DataDir string `mapstructure:"data_dir"`
}

// PrinterConfig holds IPP printer configuration.
type PrinterConfig struct {
	URI     string `mapstructure:"uri"`
	Timeout int    `mapstructure:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from files and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/printscan/")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Config file is optional; defaults and env vars cover everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.SetEnvPrefix("PRINTSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 300)
	v.SetDefault("server.max_upload_mb", 100)

	v.SetDefault("scanner.address", "192.168.1.10")
	v.SetDefault("scanner.timeout", 120)
	v.SetDefault("scanner.clamp_a4", false)
	v.SetDefault("scanner.save_dir", "")
	v.SetDefault("scanner.data_dir", "./data")

	v.SetDefault("printer.uri", "http://localhost:631/printers/printer")
	v.SetDefault("printer.timeout", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
