package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
	"golang.org/x/exp/slices"
)

const portabilitySubsetExtensionName = "VK_KHR_portability_subset"

type (
	Instance = Owned[vk.Instance]
	Surface  = Owned[vk.Surface]
)

// SurfaceProvider is the window system side of surface creation.
type SurfaceProvider interface {
	CreateWindowSurface(instance vk.Instance) (vk.Surface, error)
}

type InstanceConfig struct {
	ApplicationName  string
	Flags            vk.InstanceCreateFlags
	Extensions       []string
	ValidationLayers []string
}

func CreateInstance(drv Driver, cfg InstanceConfig) (*Instance, error) {
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   VulkanSafeString(cfg.ApplicationName),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        VulkanSafeString("vkutility"),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 2, 0),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		Flags:                   cfg.Flags,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(cfg.Extensions),
		EnabledLayerCount:       uint32(len(cfg.ValidationLayers)),
		PpEnabledLayerNames:     VulkanSafeStrings(cfg.ValidationLayers),
	}

	handle, res := drv.CreateInstance(&createInfo)
	if res != vk.Success {
		return nil, newResultError(core.ErrResourceCreation, "vkCreateInstance", res)
	}
	core.LogInfo("Vulkan instance created.")
	return newOwned(drv, "instance", handle, drv.DestroyInstance), nil
}

// CreateSurface asks the window system for a presentation surface bound to
// inst. The surface keeps inst alive until it is destroyed.
func CreateSurface(inst *Instance, provider SurfaceProvider) (*Surface, error) {
	if !inst.Valid() {
		return nil, fmt.Errorf("%w: surface requires a live instance", core.ErrResourceCreation)
	}
	handle, err := provider.CreateWindowSurface(inst.Handle())
	if err != nil {
		return nil, fmt.Errorf("%w: window surface: %v", core.ErrResourceCreation, err)
	}
	drv := inst.Driver()
	instance := inst.Handle()
	surface := newOwned(drv, "surface", handle, func(s vk.Surface) {
		drv.DestroySurface(instance, s)
	}, inst)
	core.LogInfo("Vulkan surface created.")
	return surface, nil
}

// Device is a logical device together with the queues picked for it.
type Device struct {
	*Owned[vk.Device]

	Info *PhysicalDeviceInfo

	GraphicsQueueIndex int32
	PresentQueueIndex  int32
	TransferQueueIndex int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	TransferQueue vk.Queue
}

type queueSelection struct {
	graphics, present, transfer int32
}

// selectQueueFamilies prefers presenting from the graphics family and a
// transfer family with as few other capabilities as possible, which makes
// it likely to be a dedicated one.
func selectQueueFamilies(q QueueFamilyIndices) queueSelection {
	sel := queueSelection{graphics: -1, present: -1, transfer: -1}
	if len(q.Graphics) > 0 {
		sel.graphics = int32(q.Graphics[0])
	}

	for _, idx := range q.Present {
		if int32(idx) == sel.graphics {
			sel.present = sel.graphics
			break
		}
	}
	if sel.present < 0 && len(q.Present) > 0 {
		sel.present = int32(q.Present[0])
	}

	minTransferScore := 3
	for _, idx := range q.Transfer {
		score := 0
		if slices.Contains(q.Graphics, idx) {
			score++
		}
		if slices.Contains(q.Compute, idx) {
			score++
		}
		if score < minTransferScore {
			minTransferScore = score
			sel.transfer = int32(idx)
		}
	}
	return sel
}

// CreateDevice creates the logical device for the selected physical device.
// One queue is created per distinct family.
func CreateDevice(inst *Instance, info *PhysicalDeviceInfo, req Requirements) (*Device, error) {
	if !inst.Valid() {
		return nil, fmt.Errorf("%w: device requires a live instance", core.ErrResourceCreation)
	}
	drv := inst.Driver()
	sel := selectQueueFamilies(info.QueueFamilies)

	// NOTE: Do not create additional queues for shared indices.
	var families []uint32
	for _, idx := range []int32{sel.graphics, sel.present, sel.transfer} {
		if idx >= 0 && !slices.Contains(families, uint32(idx)) {
			families = append(families, uint32(idx))
		}
	}
	if len(families) == 0 {
		return nil, fmt.Errorf("%w: device '%s' has no usable queue family", core.ErrResourceCreation, info.Name)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensions := append([]string{}, req.DeviceExtensions...)
	if info.HasExtension(portabilitySubsetExtensionName) && !slices.Contains(extensions, portabilitySubsetExtensionName) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtensionName)
		extensions = append(extensions, portabilitySubsetExtensionName)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{SamplerAnisotropy: vk.True}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	handle, res := drv.CreateDevice(info.Handle, &deviceCreateInfo)
	if res != vk.Success {
		return nil, newResultError(core.ErrResourceCreation, "vkCreateDevice", res)
	}
	core.LogInfo("Logical device created.")

	dev := &Device{
		Owned:              newOwned(drv, "device", handle, drv.DestroyDevice, inst),
		Info:               info,
		GraphicsQueueIndex: sel.graphics,
		PresentQueueIndex:  sel.present,
		TransferQueueIndex: sel.transfer,
	}
	if sel.graphics >= 0 {
		dev.GraphicsQueue = drv.DeviceQueue(handle, uint32(sel.graphics))
	}
	if sel.present >= 0 {
		dev.PresentQueue = drv.DeviceQueue(handle, uint32(sel.present))
	}
	if sel.transfer >= 0 {
		dev.TransferQueue = drv.DeviceQueue(handle, uint32(sel.transfer))
	}
	core.LogInfo("Queues obtained.")
	return dev, nil
}

// Retain returns an independent reference to the same logical device,
// carrying the same queues and device info.
func (d *Device) Retain() *Device {
	if d == nil {
		return nil
	}
	owned := d.Owned.Retain()
	if owned == nil {
		return nil
	}
	return &Device{
		Owned:              owned,
		Info:               d.Info,
		GraphicsQueueIndex: d.GraphicsQueueIndex,
		PresentQueueIndex:  d.PresentQueueIndex,
		TransferQueueIndex: d.TransferQueueIndex,
		GraphicsQueue:      d.GraphicsQueue,
		PresentQueue:       d.PresentQueue,
		TransferQueue:      d.TransferQueue,
	}
}

// Destroy drops this reference to the device and forgets its queues. The
// native device goes away with the last reference.
func (d *Device) Destroy() {
	if d == nil {
		return
	}
	d.Owned.Destroy()
	d.GraphicsQueue = nil
	d.PresentQueue = nil
	d.TransferQueue = nil
	d.GraphicsQueueIndex = -1
	d.PresentQueueIndex = -1
	d.TransferQueueIndex = -1
}
