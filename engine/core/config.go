package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the in-memory parameter record handed to the renderer at startup.
type Config struct {
	Application ApplicationConfig `toml:"application"`
	Log         LogConfig         `toml:"log"`
	Vulkan      VulkanConfig      `toml:"vulkan"`
	Assets      AssetsConfig      `toml:"assets"`
}

type ApplicationConfig struct {
	Name   string `toml:"name"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// VulkanConfig drives instance creation and physical device selection.
type VulkanConfig struct {
	// ValidationLayers are only enabled when Debug is set.
	Debug              bool     `toml:"debug"`
	ValidationLayers   []string `toml:"validation_layers"`
	InstanceExtensions []string `toml:"instance_extensions"`
	DeviceExtensions   []string `toml:"device_extensions"`
	RequireSwapchain   bool     `toml:"require_swapchain"`
	// Rater names the device scoring strategy: "minimal" or "weighted".
	Rater  string      `toml:"rater"`
	Queues QueueConfig `toml:"queues"`
}

type QueueConfig struct {
	Graphics bool `toml:"graphics"`
	Present  bool `toml:"present"`
	Compute  bool `toml:"compute"`
	Transfer bool `toml:"transfer"`
}

type AssetsConfig struct {
	ShaderDir string `toml:"shader_dir"`
	Watch     bool   `toml:"watch"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:   "vkutility",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Log: LogConfig{
			Level: "info",
		},
		Vulkan: VulkanConfig{
			ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
			DeviceExtensions: []string{"VK_KHR_swapchain"},
			RequireSwapchain: true,
			Rater:            "minimal",
			Queues: QueueConfig{
				Graphics: true,
				Present:  true,
				Transfer: true,
			},
		},
		Assets: AssetsConfig{
			ShaderDir: "assets/shaders",
			Watch:     true,
		},
	}
}

// LoadConfig overlays the TOML file at path onto DefaultConfig. A missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if cfg.Application.Width == 0 || cfg.Application.Height == 0 {
		return nil, fmt.Errorf("invalid window size %dx%d in %s", cfg.Application.Width, cfg.Application.Height, path)
	}
	return cfg, nil
}
