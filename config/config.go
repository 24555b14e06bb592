// Package config loads server and watermark settings
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"watermark-backend/watermark"
)

// ServerConfig is the HTTP side of the service
type ServerConfig struct {
	Port         string   `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
	MaxUploadMB  int64    `yaml:"max_upload_mb"`
}

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Watermark watermark.Config `yaml:"watermark"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			AllowOrigins: []string{"http://localhost:3000"},
			MaxUploadMB:  32,
		},
		Watermark: watermark.DefaultConfig(),
	}
}

// Load overlays an optional YAML file on the defaults, then applies the
// PORT environment variable. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.Server.MaxUploadMB)
	}
	if err := c.Watermark.Validate(); err != nil {
		return fmt.Errorf("invalid watermark config: %w", err)
	}
	return nil
}
