package vulkan

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
	"github.com/spaghettifunk/vkutility/engine/platform"
	"golang.org/x/exp/slices"
)

const (
	portabilityEnumerationExtensionName = "VK_KHR_portability_enumeration"
	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	instanceCreateEnumeratePortabilityBit vk.InstanceCreateFlags = 0x00000001
)

// VulkanRenderer wires the platform window, the configuration and the shader
// supplier into a VulkanContext.
type VulkanRenderer struct {
	platform *platform.Platform
	config   *core.Config
	shaders  ShaderSource

	context    *VulkanContext
	renderPass *RenderPass
	programs   map[string]*programEntry
}

type programEntry struct {
	program *ShaderProgram
	config  ShaderProgramConfig

	pipeline       *Pipeline
	pipelineConfig *PipelineConfig
}

func (pe *programEntry) destroy() {
	pe.pipeline.Destroy()
	pe.pipeline = nil
	pe.program.Destroy()
}

func New(p *platform.Platform, cfg *core.Config, shaders ShaderSource) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		config:   cfg,
		shaders:  shaders,
		programs: make(map[string]*programEntry),
	}
}

func (vr *VulkanRenderer) Initialize(ctx context.Context) error {
	drv, err := NewNativeDriver(vr.platform.ProcAddress())
	if err != nil {
		return err
	}

	rater, err := NewRater(vr.config.Vulkan.Rater)
	if err != nil {
		return err
	}

	cfg := ContextConfig{
		Instance: InstanceConfig{
			ApplicationName:  vr.config.Application.Name,
			Extensions:       vr.instanceExtensions(),
			ValidationLayers: vr.validationLayers(drv),
		},
		Requirements: RequirementsFromConfig(vr.config.Vulkan),
		Rater:        rater,
	}
	if runtime.GOOS == "darwin" {
		cfg.Instance.Flags |= instanceCreateEnumeratePortabilityBit
	}

	vc, err := NewContext(ctx, drv, cfg, vr.platform)
	if err != nil {
		return fmt.Errorf("vulkan initialization failed: %w", err)
	}
	vr.context = vc

	if err := vr.createRenderPass(); err != nil {
		return err
	}
	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) instanceExtensions() []string {
	// Obtain a list of required extensions
	extensions := append([]string{}, vr.platform.GetRequiredExtensionNames()...)
	extensions = append(extensions, vr.config.Vulkan.InstanceExtensions...)

	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			portabilityEnumerationExtensionName,
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if vr.config.Vulkan.Debug {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}

	core.LogDebug("Required extensions:")
	for _, ext := range extensions {
		core.LogDebug(ext)
	}
	return extensions
}

// validationLayers returns the configured layers the loader actually has.
// Validation layers should only be enabled on non-release builds.
func (vr *VulkanRenderer) validationLayers(drv Driver) []string {
	if !vr.config.Vulkan.Debug {
		return nil
	}
	core.LogInfo("Validation layers enabled. Enumerating...")

	available, res := drv.InstanceLayers()
	if res != vk.Success {
		core.LogWarn("Unable to enumerate instance layers: %s", VulkanResultString(res, true))
		return nil
	}

	var layers []string
	for _, name := range vr.config.Vulkan.ValidationLayers {
		if !slices.Contains(available, name) {
			core.LogWarn("Required validation layer is missing: %s", name)
			continue
		}
		layers = append(layers, name)
	}
	return layers
}

func (vr *VulkanRenderer) Context() *VulkanContext {
	return vr.context
}

// Resized recreates the swapchain for the new framebuffer size. The render
// pass and the pipelines built on it are rebuilt only when the surface
// format changed with it.
func (vr *VulkanRenderer) Resized(ctx context.Context) error {
	return vr.resized(ctx, vr.platform)
}

func (vr *VulkanRenderer) resized(ctx context.Context, window FramebufferSource) error {
	format := vr.context.Swapchain.Parameters.Format.Format
	if err := vr.context.RecreateSwapchain(ctx, window); err != nil {
		return err
	}
	if vr.context.Swapchain.Parameters.Format.Format == format {
		return nil
	}

	core.LogInfo("Surface format changed, rebuilding render pass.")
	vr.renderPass.Destroy()
	if err := vr.createRenderPass(); err != nil {
		return err
	}
	for name, entry := range vr.programs {
		if entry.pipelineConfig == nil {
			continue
		}
		if _, err := vr.BuildPipeline(name, *entry.pipelineConfig); err != nil {
			return err
		}
	}
	return nil
}

func (vr *VulkanRenderer) createRenderPass() error {
	rp, err := CreateRenderPass(vr.context.Device, RenderPassConfig{
		ColorFormat: vr.context.Swapchain.Parameters.Format.Format,
	})
	if err != nil {
		return err
	}
	vr.renderPass = rp
	return nil
}

// LoadShaderProgram creates, or returns the already created, program name.
func (vr *VulkanRenderer) LoadShaderProgram(name string, cfg ShaderProgramConfig) (*ShaderProgram, error) {
	if entry, ok := vr.programs[name]; ok {
		return entry.program, nil
	}
	sp, err := NewShaderProgram(vr.context.Device, vr.shaders, name, cfg)
	if err != nil {
		return nil, err
	}
	vr.programs[name] = &programEntry{program: sp, config: cfg}
	return sp, nil
}

// BuildPipeline (re)creates the graphics pipeline of a loaded program
// against the renderer's render pass and the current swapchain extent.
func (vr *VulkanRenderer) BuildPipeline(name string, cfg PipelineConfig) (*Pipeline, error) {
	entry, ok := vr.programs[name]
	if !ok {
		return nil, fmt.Errorf("shader program '%s' is not loaded", name)
	}

	pipeline, err := entry.program.Pipeline(vr.context.Device, vr.renderPass.Handle(), vr.context.Swapchain.Parameters.Extent, cfg)
	if err != nil {
		return nil, err
	}
	entry.pipeline.Destroy()
	entry.pipeline = pipeline
	entry.pipelineConfig = &cfg
	return pipeline, nil
}

// programName strips the stage suffix from a shader stage name.
func programName(stageName string) string {
	return strings.TrimSuffix(stageName, filepath.Ext(stageName))
}

// ReloadShaderProgram rebuilds the program that uses the shader stage
// stageName, for example "builtin.object.vert", from fresh byte-code, along
// with its pipeline if it had one. It reports false when no loaded program
// uses that stage. If the rebuild fails the previous program and pipeline
// stay in use.
func (vr *VulkanRenderer) ReloadShaderProgram(stageName string) (bool, error) {
	name := programName(stageName)
	entry, ok := vr.programs[name]
	if !ok {
		return false, nil
	}
	core.LogInfo("Reloading shader program '%s'.", name)

	sp, err := NewShaderProgram(vr.context.Device, vr.shaders, name, entry.config)
	if err != nil {
		return true, err
	}
	next := &programEntry{program: sp, config: entry.config, pipelineConfig: entry.pipelineConfig}
	if next.pipelineConfig != nil {
		pipeline, err := sp.Pipeline(vr.context.Device, vr.renderPass.Handle(), vr.context.Swapchain.Parameters.Extent, *next.pipelineConfig)
		if err != nil {
			sp.Destroy()
			return true, err
		}
		next.pipeline = pipeline
	}

	entry.destroy()
	vr.programs[name] = next
	return true, nil
}

func (vr *VulkanRenderer) Shutdown() error {
	for name, entry := range vr.programs {
		entry.destroy()
		delete(vr.programs, name)
	}
	vr.renderPass.Destroy()
	vr.renderPass = nil
	if vr.context != nil {
		vr.context.Destroy()
		vr.context = nil
	}
	core.LogInfo("Vulkan renderer shut down.")
	return nil
}
