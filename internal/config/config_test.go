package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsMatchDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PENCIL_COLOR", "#00ff00")
	t.Setenv("EXPORT_MULTIPLIER", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "#00ff00", cfg.PencilColor)
	assert.Equal(t, 2, cfg.ExportMultiplier)
	assert.Equal(t, "strategy.png", cfg.ExportFilename)
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("BRUSH_WIDTH", "thick")
	_, err := Load()
	assert.Error(t, err)
}
