// Package config loads the invoiced server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/manal-catering/invoicer/internal/fileutil"
	"github.com/manal-catering/invoicer/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound     = errors.New("config file not found")
	ErrEmptyConfigName    = errors.New("config name cannot be empty")
	ErrConfigParse        = errors.New("failed to parse config")
	ErrMissingCredentials = errors.New("auth username and password must be set")
)

// Config holds all configuration for the invoiced server.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Uploads UploadsConfig `yaml:"uploads"`
	Auth    AuthConfig    `yaml:"auth"`
	Export  ExportConfig  `yaml:"export"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig defines HTTP listener options.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// UploadsConfig defines where uploaded assets live.
type UploadsConfig struct {
	Dir          string `yaml:"dir"`          // Blob directory (default "uploads")
	DatabasePath string `yaml:"databasePath"` // SQLite registry path (default "uploads/assets.db")
}

// AuthConfig defines the static credential pair and session lifetime.
// Credentials are configuration, never compiled-in constants.
type AuthConfig struct {
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	SessionTTL time.Duration `yaml:"sessionTTL"`
}

// ExportConfig defines export pipeline options.
type ExportConfig struct {
	Timeout time.Duration `yaml:"timeout"` // Raster capture timeout (default 30s)
}

// LogConfig defines logging options.
type LogConfig struct {
	Level      string `yaml:"level"`      // debug, info, warn, error
	Format     string `yaml:"format"`     // json or console
	OutputPath string `yaml:"outputPath"` // stdout, stderr, or file path
}

// Default returns a configuration with working defaults for everything
// except the credentials, which must come from the config file or CLI.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Uploads: UploadsConfig{
			Dir:          "uploads",
			DatabasePath: filepath.Join("uploads", "assets.db"),
		},
		Auth: AuthConfig{
			SessionTTL: 24 * time.Hour,
		},
		Export: ExportConfig{
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}

// Validate checks that the configuration is complete enough to serve.
func (c *Config) Validate() error {
	if c.Auth.Username == "" || c.Auth.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Load reads configuration from a file path or config name and merges it
// over the defaults. If nameOrPath contains a path separator, it's treated
// as a file path. Otherwise, it's treated as a config name and searched in
// standard locations. Returns an error if the file is not found (no silent
// fallback).
func Load(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	return cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/invoiced/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2) // 2 locations

	// Try current directory first (both extensions)
	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	// Try user config directory (both extensions)
	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "invoiced", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
