package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"pixpress/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.8, cfg.Compression.Quality)
	assert.Equal(t, "webp", cfg.Compression.Format)
	assert.Equal(t, 100, cfg.Compression.ScalePercent)
	assert.Contains(t, cfg.Images.Extensions, ".gif")
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 9001
  debounce_ms: 50
compression:
  quality: 0.5
  format: jpeg
  scale_percent: 75
images:
  extensions: ["JPG", ".png"]
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Server.DebounceMS)
	assert.Equal(t, 0.5, cfg.Compression.Quality)
	assert.Equal(t, "jpeg", cfg.Compression.Format)
	assert.Equal(t, 75, cfg.Compression.ScalePercent)
	assert.Equal(t, []string{".jpg", ".png"}, cfg.Images.Extensions)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"quality too high", func(c *config.Config) { c.Compression.Quality = 1.5 }},
		{"quality too low", func(c *config.Config) { c.Compression.Quality = 0.05 }},
		{"bad format", func(c *config.Config) { c.Compression.Format = "tiff" }},
		{"scale too low", func(c *config.Config) { c.Compression.ScalePercent = 5 }},
		{"scale too high", func(c *config.Config) { c.Compression.ScalePercent = 150 }},
		{"bad port", func(c *config.Config) { c.Server.Port = -1 }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "trace2" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_NormalizesExtensions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Images.Extensions = []string{"JPG", "png", ".WEBP"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{".jpg", ".png", ".webp"}, cfg.Images.Extensions)
}

func TestIsImageExtension(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.True(t, cfg.IsImageExtension(".JPG"))
	assert.True(t, cfg.IsImageExtension(".webp"))
	assert.False(t, cfg.IsImageExtension(".txt"))
}

func TestStorePath(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.NotEmpty(t, cfg.StorePath())

	cfg.Store.Path = "/tmp/custom/slot.json"
	assert.Equal(t, "/tmp/custom/slot.json", cfg.StorePath())
}
