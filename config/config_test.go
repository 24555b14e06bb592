package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watermark-backend/watermark"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, watermark.DefaultConfig(), cfg.Watermark)
}

func TestLoadOverlay(t *testing.T) {
	t.Setenv("PORT", "")
	path := writeConfig(t, `
server:
  port: "9090"
watermark:
  control_strength: 0.3
  repetition_factor: 5
  kernel: positive-negative
  delays:
    d11: 200
    d10: 210
    d01: 220
    d00: 230
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowOrigins)
	assert.Equal(t, 0.3, cfg.Watermark.ControlStrength)
	assert.Equal(t, 5, cfg.Watermark.RepetitionFactor)
	assert.Equal(t, 4096, cfg.Watermark.FrameLength)
	assert.Equal(t, watermark.KernelPositiveNegative, cfg.Watermark.Kernel)
	assert.Equal(t, watermark.DelayTable{D11: 200, D10: 210, D01: 220, D00: 230}, cfg.Watermark.Delays)
}

func TestLoadPortFromEnv(t *testing.T) {
	t.Setenv("PORT", "7000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestLoadRejectsBadDelays(t *testing.T) {
	t.Setenv("PORT", "")
	path := writeConfig(t, `
watermark:
  delays:
    d11: 110
    d10: 100
    d01: 120
    d00: 130
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "ordering")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
