package engine

import (
	"context"
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/assets"
	"github.com/spaghettifunk/vkutility/engine/core"
	"github.com/spaghettifunk/vkutility/engine/platform"
	"github.com/spaghettifunk/vkutility/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// BuiltinProgram is loaded at startup to exercise the pipeline path.
const BuiltinProgram = "builtin.object"

var builtinProgramConfig = vulkan.ShaderProgramConfig{
	Bindings: []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}},
	// Model matrix.
	PushConstants: []vulkan.PushConstantRange{{Offset: 0, Size: 64}},
}

// Position (vec3) followed by texture coordinates (vec2).
var builtinPipelineConfig = vulkan.PipelineConfig{
	Stride: 5 * 4,
	Attributes: []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 3 * 4},
	},
	CullMode: vk.CullModeBackBit,
}

// Engine ties the window, the shader library and the renderer together and
// drives the event loop.
type Engine struct {
	currentStage Stage
	config       *core.Config
	platform     *platform.Platform
	shaders      *assets.ShaderLibrary
	renderer     *vulkan.VulkanRenderer

	changedShaders chan string
	isSuspended    bool
}

func New(cfg *core.Config) (*Engine, error) {
	p, err := platform.New()
	if err != nil {
		return nil, err
	}
	shaders := assets.NewShaderLibrary(cfg.Assets.ShaderDir)

	return &Engine{
		currentStage:   EngineStageUninitialized,
		config:         cfg,
		platform:       p,
		shaders:        shaders,
		renderer:       vulkan.New(p, cfg, shaders),
		changedShaders: make(chan string, 16),
	}, nil
}

func (e *Engine) Initialize(ctx context.Context) error {
	e.currentStage = EngineStageInitializing

	app := e.config.Application
	if err := e.platform.Startup(app.Name, app.X, app.Y, app.Width, app.Height); err != nil {
		return err
	}

	if e.config.Assets.Watch {
		if err := e.shaders.Watch(); err != nil {
			core.LogWarn("Shader hot reload disabled: %s", err)
		}
		e.shaders.OnChange(func(name string) {
			select {
			case e.changedShaders <- name:
			default:
			}
		})
	}

	if err := e.renderer.Initialize(ctx); err != nil {
		return err
	}

	if _, err := e.renderer.LoadShaderProgram(BuiltinProgram, builtinProgramConfig); err != nil {
		return fmt.Errorf("failed to load shader program '%s': %w", BuiltinProgram, err)
	}
	if _, err := e.renderer.BuildPipeline(BuiltinProgram, builtinPipelineConfig); err != nil {
		return fmt.Errorf("failed to build pipeline '%s': %w", BuiltinProgram, err)
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Run processes window events until the window closes or ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning

	for !e.platform.ShouldClose() {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		e.platform.PumpMessages()

		if e.platform.Resized() {
			if err := e.onResized(ctx); err != nil {
				return err
			}
		}

		e.reloadShaders()

		if e.isSuspended {
			e.platform.WaitEvents()
		}
	}
	return nil
}

func (e *Engine) onResized(ctx context.Context) error {
	width, height := e.platform.FramebufferSize()
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		if !e.isSuspended {
			core.LogInfo("Window minimized, suspending application.")
			e.isSuspended = true
		}
		return nil
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}

	if err := e.renderer.Resized(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to recreate swapchain: %w", err)
	}
	return nil
}

func (e *Engine) reloadShaders() {
	for {
		select {
		case name := <-e.changedShaders:
			if _, err := e.renderer.ReloadShaderProgram(name); err != nil {
				core.LogError("Failed to reload shader '%s': %s", name, err)
			}
		default:
			return
		}
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	if err := e.shaders.Close(); err != nil {
		core.LogError(err.Error())
	}
	if err := e.renderer.Shutdown(); err != nil {
		return err
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	return nil
}
