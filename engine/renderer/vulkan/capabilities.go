package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
)

// QueueFamilyIndices lists, per capability, every queue family index that
// provides it. A list is empty when no family does.
type QueueFamilyIndices struct {
	Graphics      []uint32
	Compute       []uint32
	Transfer      []uint32
	SparseBinding []uint32
	Present       []uint32
}

type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// PhysicalDeviceInfo is a read-only snapshot of one candidate device, taken
// once per enumeration pass.
type PhysicalDeviceInfo struct {
	Handle vk.PhysicalDevice

	Name          string
	Type          vk.PhysicalDeviceType
	DriverVersion uint32
	APIVersion    uint32

	SamplerAnisotropy   bool
	MaxImageDimension2D uint32

	// Heap sizes in bytes.
	LocalMemory  uint64
	SharedMemory uint64

	Extensions    map[string]struct{}
	QueueFamilies QueueFamilyIndices
	Swapchain     SwapchainSupport
}

func (info *PhysicalDeviceInfo) HasExtension(name string) bool {
	_, ok := info.Extensions[name]
	return ok
}

// QueryCapabilities reads the extensions, queue families and, when surface
// is not null, the swapchain support of pd.
func QueryCapabilities(drv Driver, pd vk.PhysicalDevice, surface vk.Surface) (*PhysicalDeviceInfo, error) {
	properties := drv.PhysicalDeviceProperties(pd)
	features := drv.PhysicalDeviceFeatures(pd)
	memory := drv.PhysicalDeviceMemory(pd)

	info := &PhysicalDeviceInfo{
		Handle:              pd,
		Name:                vk.ToString(properties.DeviceName[:]),
		Type:                properties.DeviceType,
		DriverVersion:       properties.DriverVersion,
		APIVersion:          properties.ApiVersion,
		SamplerAnisotropy:   features.SamplerAnisotropy == vk.True,
		MaxImageDimension2D: properties.Limits.MaxImageDimension2D,
		Extensions:          make(map[string]struct{}),
	}

	for i := uint32(0); i < memory.MemoryHeapCount; i++ {
		heap := memory.MemoryHeaps[i]
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			info.LocalMemory += uint64(heap.Size)
		} else {
			info.SharedMemory += uint64(heap.Size)
		}
	}

	extensions, res := drv.DeviceExtensions(pd)
	if res != vk.Success {
		return nil, newResultError(core.ErrCapabilityQuery, "vkEnumerateDeviceExtensionProperties", res)
	}
	for _, name := range extensions {
		info.Extensions[name] = struct{}{}
	}

	families := drv.QueueFamilies(pd)
	if len(families) == 0 {
		return nil, fmt.Errorf("%w: device '%s' exposes no queue families", core.ErrCapabilityQuery, info.Name)
	}

	hasSurface := surface != vk.NullSurface
	for i, family := range families {
		index := uint32(i)
		flags := vk.QueueFlagBits(family.QueueFlags)

		if flags&vk.QueueGraphicsBit != 0 {
			info.QueueFamilies.Graphics = append(info.QueueFamilies.Graphics, index)
		}
		if flags&vk.QueueComputeBit != 0 {
			info.QueueFamilies.Compute = append(info.QueueFamilies.Compute, index)
		}
		if flags&vk.QueueTransferBit != 0 {
			info.QueueFamilies.Transfer = append(info.QueueFamilies.Transfer, index)
		}
		if flags&vk.QueueSparseBindingBit != 0 {
			info.QueueFamilies.SparseBinding = append(info.QueueFamilies.SparseBinding, index)
		}

		if !hasSurface {
			continue
		}
		supported, res := drv.SurfaceSupport(pd, index, surface)
		if res != vk.Success {
			return nil, newResultError(core.ErrCapabilityQuery, "vkGetPhysicalDeviceSurfaceSupportKHR", res)
		}
		if supported {
			info.QueueFamilies.Present = append(info.QueueFamilies.Present, index)
		}
	}

	if hasSurface {
		if err := querySwapchainSupport(drv, pd, surface, &info.Swapchain); err != nil {
			return nil, err
		}
	}

	return info, nil
}

func querySwapchainSupport(drv Driver, pd vk.PhysicalDevice, surface vk.Surface, support *SwapchainSupport) error {
	capabilities, res := drv.SurfaceCapabilities(pd, surface)
	if res != vk.Success {
		return newResultError(core.ErrCapabilityQuery, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	formats, res := drv.SurfaceFormats(pd, surface)
	if res != vk.Success {
		return newResultError(core.ErrCapabilityQuery, "vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	presentModes, res := drv.SurfacePresentModes(pd, surface)
	if res != vk.Success {
		return newResultError(core.ErrCapabilityQuery, "vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}

	support.Capabilities = capabilities
	support.Formats = formats
	support.PresentModes = presentModes
	return nil
}

// CapabilityCache memoises QueryCapabilities per physical device for one
// surface. Failed queries are not cached.
type CapabilityCache struct {
	driver  Driver
	surface vk.Surface
	infos   map[vk.PhysicalDevice]*PhysicalDeviceInfo
}

func NewCapabilityCache(drv Driver, surface vk.Surface) *CapabilityCache {
	return &CapabilityCache{
		driver:  drv,
		surface: surface,
		infos:   make(map[vk.PhysicalDevice]*PhysicalDeviceInfo),
	}
}

func (c *CapabilityCache) Query(pd vk.PhysicalDevice) (*PhysicalDeviceInfo, error) {
	if info, ok := c.infos[pd]; ok {
		return info, nil
	}
	info, err := QueryCapabilities(c.driver, pd, c.surface)
	if err != nil {
		return nil, err
	}
	c.infos[pd] = info
	return info, nil
}

// QueryAll queries every device in enumeration order. Devices whose query
// fails are logged and left out; they are ineligible, not retried.
func (c *CapabilityCache) QueryAll(devices []vk.PhysicalDevice) []*PhysicalDeviceInfo {
	infos := make([]*PhysicalDeviceInfo, 0, len(devices))
	for i, pd := range devices {
		info, err := c.Query(pd)
		if err != nil {
			core.LogWarn("Skipping physical device %d: %s", i, err)
			continue
		}
		infos = append(infos, info)
	}
	return infos
}
