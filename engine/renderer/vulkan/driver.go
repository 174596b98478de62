package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// Driver is the boundary to the native graphics API. Every create, destroy and
// query call the renderer issues goes through it.
type Driver interface {
	InstanceLayers() ([]string, vk.Result)
	CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, vk.Result)
	DestroyInstance(instance vk.Instance)
	EnumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, vk.Result)

	PhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties
	PhysicalDeviceFeatures(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures
	PhysicalDeviceMemory(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties
	DeviceExtensions(pd vk.PhysicalDevice) ([]string, vk.Result)
	QueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties

	SurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, vk.Result)
	SurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result)
	SurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, vk.Result)
	SurfacePresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, vk.Result)
	DestroySurface(instance vk.Instance, surface vk.Surface)

	CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, vk.Result)
	DeviceQueue(device vk.Device, family uint32) vk.Queue
	DestroyDevice(device vk.Device)

	CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result)
	DestroySwapchain(device vk.Device, swapchain vk.Swapchain)

	CreateShaderModule(device vk.Device, info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result)
	DestroyShaderModule(device vk.Device, module vk.ShaderModule)

	CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result)
	DestroyRenderPass(device vk.Device, renderPass vk.RenderPass)

	CreateDescriptorSetLayout(device vk.Device, info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result)
	DestroyDescriptorSetLayout(device vk.Device, layout vk.DescriptorSetLayout)

	CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result)
	DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout)

	CreateGraphicsPipeline(device vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result)
	DestroyPipeline(device vk.Device, pipeline vk.Pipeline)
}

// ResultError carries the native result code of a failed call. Kind is one of
// the core sentinel errors so callers can match with errors.Is.
type ResultError struct {
	Op     string
	Result vk.Result
	Kind   error
}

func newResultError(kind error, op string, result vk.Result) *ResultError {
	return &ResultError{Op: op, Result: result, Kind: kind}
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s: %s failed with %s", e.Kind, e.Op, VulkanResultString(e.Result, false))
}

func (e *ResultError) Unwrap() error {
	return e.Kind
}
