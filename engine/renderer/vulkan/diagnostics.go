package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
)

const gib = 1024 * 1024 * 1024

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "Integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "Discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "Virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	default:
		return "Unknown"
	}
}

func versionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", vk.Version(v).Major(), vk.Version(v).Minor(), vk.Version(v).Patch())
}

// ReportDevices logs one line per enumerated device with its queue support.
func ReportDevices(infos []*PhysicalDeviceInfo) {
	core.LogInfo("Graphics | Present | Compute | Transfer | Sparse | Name")
	for _, info := range infos {
		q := info.QueueFamilies
		core.LogInfo("%8t | %7t | %7t | %8t | %6t | %s",
			len(q.Graphics) > 0,
			len(q.Present) > 0,
			len(q.Compute) > 0,
			len(q.Transfer) > 0,
			len(q.SparseBinding) > 0,
			info.Name)
	}
}

// ReportSelectedDevice logs type, versions and memory of the chosen device.
func ReportSelectedDevice(info *PhysicalDeviceInfo) {
	core.LogInfo("Selected device: '%s'.", info.Name)
	core.LogInfo("GPU type is %s.", deviceTypeName(info.Type))

	core.LogInfo("GPU Driver version: %s", versionString(info.DriverVersion))
	core.LogInfo("Vulkan API version: %s", versionString(info.APIVersion))

	core.LogInfo("Local GPU memory: %.2f GiB", float64(info.LocalMemory)/gib)
	core.LogInfo("Shared System memory: %.2f GiB", float64(info.SharedMemory)/gib)
}
