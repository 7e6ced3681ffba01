package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the main configuration structure.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Images      ImagesConfig      `mapstructure:"images"`
	Compression CompressionConfig `mapstructure:"compression"`
	Store       StoreConfig       `mapstructure:"store"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains web server settings.
type ServerConfig struct {
	Port       int `mapstructure:"port"`
	DebounceMS int `mapstructure:"debounce_ms"`
}

// ImagesConfig contains image discovery settings.
type ImagesConfig struct {
	Extensions []string `mapstructure:"extensions"`
}

// CompressionConfig contains the initial compression parameters.
type CompressionConfig struct {
	Quality      float64 `mapstructure:"quality"`
	Format       string  `mapstructure:"format"`
	ScalePercent int     `mapstructure:"scale_percent"`
}

// StoreConfig contains settings for the remembered-directory store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       8080,
			DebounceMS: 200,
		},
		Images: ImagesConfig{
			Extensions: []string{".jpg", ".jpeg", ".png", ".webp", ".gif"},
		},
		Compression: CompressionConfig{
			Quality:      0.8,
			Format:       "webp",
			ScalePercent: 100,
		},
		Store: StoreConfig{
			Path: "", // resolved to the user config dir when empty
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "pixpress.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.pixpress")
		viper.AddConfigPath("/etc/pixpress")
	}

	viper.SetEnvPrefix("PIXPRESS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate validates and normalizes the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.DebounceMS < 0 {
		c.Server.DebounceMS = 0
	}

	if len(c.Images.Extensions) == 0 {
		c.Images.Extensions = DefaultConfig().Images.Extensions
	}
	c.Images.Extensions = normalizeExtensions(c.Images.Extensions)

	if c.Compression.Quality < 0.1 || c.Compression.Quality > 1.0 {
		return fmt.Errorf("invalid compression quality: %.2f (valid: 0.1-1.0)", c.Compression.Quality)
	}
	validFormats := map[string]bool{
		"webp": true,
		"jpeg": true,
		"png":  true,
	}
	c.Compression.Format = strings.ToLower(c.Compression.Format)
	if !validFormats[c.Compression.Format] {
		return fmt.Errorf("invalid compression format: %s (valid: webp, jpeg, png)", c.Compression.Format)
	}
	if c.Compression.ScalePercent < 10 || c.Compression.ScalePercent > 100 {
		return fmt.Errorf("invalid scale percent: %d (valid: 10-100)", c.Compression.ScalePercent)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

// StorePath returns the configured store path, falling back to a file in the
// user config directory when unset.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "pixpress", "last_directory.json")
}

// IsImageExtension checks if the extension belongs to a browsable image file.
func (c *Config) IsImageExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supported := range c.Images.Extensions {
		if ext == supported {
			return true
		}
	}
	return false
}

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, len(extensions))
	for i, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[i] = ext
	}
	return normalized
}
