package config

import (
	"net"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the server settings.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds the listen address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// DatabaseConfig holds the store location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig toggles the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Addr returns the host:port to listen on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Load builds the configuration from defaults, then the YAML file named
// by SITEGRID_CONFIG (if set), then env-var overrides.
func Load() (Config, error) {
	cfg := Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: "8080"},
		Database: DatabaseConfig{Path: "sitegrid.db"},
		Metrics:  MetricsConfig{Enabled: true},
	}

	if path := os.Getenv("SITEGRID_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if v := os.Getenv("SITEGRID_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("SITEGRID_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	return cfg, nil
}
