package vulkan

import (
	"errors"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// NativeDriver issues real Vulkan calls through github.com/goki/vulkan.
type NativeDriver struct {
	Allocator *vk.AllocationCallbacks
}

// NewNativeDriver loads the Vulkan loader. procAddr is the loader entry point
// handed out by the windowing library; nil falls back to the system loader.
func NewNativeDriver(procAddr unsafe.Pointer) (*NativeDriver, error) {
	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.New("vk.SetDefaultGetInstanceProcAddr(): " + err.Error())
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}
	if err := vk.Init(); err != nil {
		return nil, errors.New("vk.Init(): " + err.Error())
	}
	return &NativeDriver{}, nil
}

func (d *NativeDriver) InstanceLayers() ([]string, vk.Result) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, res
	}
	if count == 0 {
		return nil, vk.Success
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return nil, res
	}
	names := make([]string, 0, count)
	for _, layer := range layers[:count] {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, vk.Success
}

func (d *NativeDriver) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, vk.Result) {
	var instance vk.Instance
	if res := vk.CreateInstance(info, d.Allocator, &instance); res != vk.Success {
		return nil, res
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, d.Allocator)
		return nil, vk.ErrorInitializationFailed
	}
	return instance, vk.Success
}

func (d *NativeDriver) DestroyInstance(instance vk.Instance) {
	vk.DestroyInstance(instance, d.Allocator)
}

func (d *NativeDriver) EnumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, vk.Result) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(instance, &count, nil); res != vk.Success {
		return nil, res
	}
	devices := make([]vk.PhysicalDevice, count)
	if count == 0 {
		return devices, vk.Success
	}
	if res := vk.EnumeratePhysicalDevices(instance, &count, devices); res != vk.Success {
		return nil, res
	}
	return devices[:count], vk.Success
}

func (d *NativeDriver) PhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()
	properties.Limits.Deref()
	return properties
}

func (d *NativeDriver) PhysicalDeviceFeatures(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()
	return features
}

func (d *NativeDriver) PhysicalDeviceMemory(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
	memory.Deref()
	for i := uint32(0); i < memory.MemoryHeapCount; i++ {
		memory.MemoryHeaps[i].Deref()
	}
	return memory
}

func (d *NativeDriver) DeviceExtensions(pd vk.PhysicalDevice) ([]string, vk.Result) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil); res != vk.Success {
		return nil, res
	}
	if count == 0 {
		return nil, vk.Success
	}
	properties := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, properties); res != vk.Success {
		return nil, res
	}
	names := make([]string, 0, count)
	for _, ext := range properties[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, vk.Success
}

func (d *NativeDriver) QueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	if count == 0 {
		return families
	}
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)
	for i := range families {
		families[i].Deref()
	}
	return families
}

func (d *NativeDriver) SurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, vk.Result) {
	var supported vk.Bool32 = vk.False
	if res := vk.GetPhysicalDeviceSurfaceSupport(pd, family, surface, &supported); res != vk.Success {
		return false, res
	}
	return supported == vk.True, vk.Success
}

func (d *NativeDriver) SurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	var capabilities vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &capabilities); res != vk.Success {
		return capabilities, res
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()
	return capabilities, vk.Success
}

func (d *NativeDriver) SurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, vk.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, nil); res != vk.Success {
		return nil, res
	}
	if count == 0 {
		return nil, vk.Success
	}
	formats := make([]vk.SurfaceFormat, count)
	if res := vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, formats); res != vk.Success {
		return nil, res
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats[:count], vk.Success
}

func (d *NativeDriver) SurfacePresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, vk.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, nil); res != vk.Success {
		return nil, res
	}
	if count == 0 {
		return nil, vk.Success
	}
	modes := make([]vk.PresentMode, count)
	if res := vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, modes); res != vk.Success {
		return nil, res
	}
	return modes[:count], vk.Success
}

func (d *NativeDriver) DestroySurface(instance vk.Instance, surface vk.Surface) {
	vk.DestroySurface(instance, surface, d.Allocator)
}

func (d *NativeDriver) CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, vk.Result) {
	var device vk.Device
	res := vk.CreateDevice(pd, info, d.Allocator, &device)
	return device, res
}

func (d *NativeDriver) DeviceQueue(device vk.Device, family uint32) vk.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(device, family, 0, &queue)
	return queue
}

func (d *NativeDriver) DestroyDevice(device vk.Device) {
	vk.DeviceWaitIdle(device)
	vk.DestroyDevice(device, d.Allocator)
}

func (d *NativeDriver) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	var swapchain vk.Swapchain
	res := vk.CreateSwapchain(device, info, d.Allocator, &swapchain)
	return swapchain, res
}

func (d *NativeDriver) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	vk.DestroySwapchain(device, swapchain, d.Allocator)
}

func (d *NativeDriver) CreateShaderModule(device vk.Device, info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result) {
	var module vk.ShaderModule
	res := vk.CreateShaderModule(device, info, d.Allocator, &module)
	return module, res
}

func (d *NativeDriver) DestroyShaderModule(device vk.Device, module vk.ShaderModule) {
	vk.DestroyShaderModule(device, module, d.Allocator)
}

func (d *NativeDriver) CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	var renderPass vk.RenderPass
	res := vk.CreateRenderPass(device, info, d.Allocator, &renderPass)
	return renderPass, res
}

func (d *NativeDriver) DestroyRenderPass(device vk.Device, renderPass vk.RenderPass) {
	vk.DestroyRenderPass(device, renderPass, d.Allocator)
}

func (d *NativeDriver) CreateDescriptorSetLayout(device vk.Device, info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result) {
	var layout vk.DescriptorSetLayout
	res := vk.CreateDescriptorSetLayout(device, info, d.Allocator, &layout)
	return layout, res
}

func (d *NativeDriver) DestroyDescriptorSetLayout(device vk.Device, layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(device, layout, d.Allocator)
}

func (d *NativeDriver) CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	var layout vk.PipelineLayout
	res := vk.CreatePipelineLayout(device, info, d.Allocator, &layout)
	return layout, res
}

func (d *NativeDriver) DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(device, layout, d.Allocator)
}

func (d *NativeDriver) CreateGraphicsPipeline(device vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result) {
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(
		device,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{*info},
		d.Allocator,
		pipelines)
	if res != vk.Success {
		return nil, res
	}
	return pipelines[0], vk.Success
}

func (d *NativeDriver) DestroyPipeline(device vk.Device, pipeline vk.Pipeline) {
	vk.DestroyPipeline(device, pipeline, d.Allocator)
}
