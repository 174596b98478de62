package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[application]
name = "cube"
width = 800
height = 600

[log]
level = "debug"

[vulkan]
rater = "weighted"
device_extensions = ["VK_KHR_swapchain", "VK_EXT_descriptor_indexing"]

[vulkan.queues]
compute = true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "cube", cfg.Application.Name)
	assert.Equal(t, uint32(800), cfg.Application.Width)
	assert.Equal(t, uint32(600), cfg.Application.Height)
	assert.Equal(t, uint32(100), cfg.Application.X)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "weighted", cfg.Vulkan.Rater)
	assert.Contains(t, cfg.Vulkan.DeviceExtensions, "VK_EXT_descriptor_indexing")
	assert.True(t, cfg.Vulkan.RequireSwapchain)
	assert.True(t, cfg.Vulkan.Queues.Graphics)
	assert.True(t, cfg.Vulkan.Queues.Compute)
	assert.Equal(t, "assets/shaders", cfg.Assets.ShaderDir)
}

func TestLoadConfigRejectsZeroWindow(t *testing.T) {
	path := writeConfig(t, "[application]\nwidth = 0\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := writeConfig(t, "[application\nname = ")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
