package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCapabilitiesClassifiesQueueFamilies(t *testing.T) {
	fd := newFakeDevice("GPU", vk.PhysicalDeviceTypeDiscreteGpu)
	fd.families = []vk.QueueFamilyProperties{
		{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit) | vk.QueueFlags(vk.QueueComputeBit)},
		{QueueFlags: vk.QueueFlags(vk.QueueTransferBit)},
		{QueueFlags: vk.QueueFlags(vk.QueueComputeBit) | vk.QueueFlags(vk.QueueSparseBindingBit)},
	}
	fd.present = map[uint32]bool{1: true}
	drv := newFakeDriver(fd)

	info, err := QueryCapabilities(drv, fd.handle, fakeHandle[vk.Surface]())
	require.NoError(t, err)

	assert.Equal(t, "GPU", info.Name)
	assert.Equal(t, vk.PhysicalDeviceTypeDiscreteGpu, info.Type)
	assert.True(t, info.SamplerAnisotropy)
	assert.Equal(t, uint64(4<<30), info.LocalMemory)
	assert.Equal(t, uint64(8<<30), info.SharedMemory)
	assert.True(t, info.HasExtension("VK_KHR_swapchain"))
	assert.False(t, info.HasExtension("VK_KHR_ray_query"))

	assert.Equal(t, []uint32{0}, info.QueueFamilies.Graphics)
	assert.Equal(t, []uint32{0, 2}, info.QueueFamilies.Compute)
	assert.Equal(t, []uint32{1}, info.QueueFamilies.Transfer)
	assert.Equal(t, []uint32{2}, info.QueueFamilies.SparseBinding)
	assert.Equal(t, []uint32{1}, info.QueueFamilies.Present)

	assert.Equal(t, fd.formats, info.Swapchain.Formats)
	assert.Equal(t, fd.modes, info.Swapchain.PresentModes)
	assert.Equal(t, fd.caps.CurrentExtent, info.Swapchain.Capabilities.CurrentExtent)
}

func TestQueryCapabilitiesWithoutSurface(t *testing.T) {
	fd := newFakeDevice("GPU", vk.PhysicalDeviceTypeIntegratedGpu)
	drv := newFakeDriver(fd)

	info, err := QueryCapabilities(drv, fd.handle, vk.NullSurface)
	require.NoError(t, err)
	assert.Empty(t, info.QueueFamilies.Present)
	assert.Empty(t, info.Swapchain.Formats)
	assert.Zero(t, drv.queries["support"])
	assert.Zero(t, drv.queries["capabilities"])
}

func TestQueryCapabilitiesNoQueueFamilies(t *testing.T) {
	fd := newFakeDevice("Empty", vk.PhysicalDeviceTypeCpu)
	fd.families = nil
	drv := newFakeDriver(fd)

	info, err := QueryCapabilities(drv, fd.handle, fakeHandle[vk.Surface]())
	assert.Nil(t, info)
	assert.ErrorIs(t, err, core.ErrCapabilityQuery)
}

func TestQueryCapabilitiesReportsNativeFailures(t *testing.T) {
	for _, op := range []string{"extensions", "support", "capabilities", "formats", "modes"} {
		t.Run(op, func(t *testing.T) {
			fd := newFakeDevice("GPU", vk.PhysicalDeviceTypeDiscreteGpu)
			drv := newFakeDriver(fd)
			drv.failures[op] = vk.ErrorSurfaceLost

			info, err := QueryCapabilities(drv, fd.handle, fakeHandle[vk.Surface]())
			assert.Nil(t, info)
			assert.ErrorIs(t, err, core.ErrCapabilityQuery)

			var resErr *ResultError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, vk.ErrorSurfaceLost, resErr.Result)
		})
	}
}

func TestCapabilityCacheQueriesOnce(t *testing.T) {
	fd := newFakeDevice("GPU", vk.PhysicalDeviceTypeDiscreteGpu)
	drv := newFakeDriver(fd)
	cache := NewCapabilityCache(drv, fakeHandle[vk.Surface]())

	first, err := cache.Query(fd.handle)
	require.NoError(t, err)
	second, err := cache.Query(fd.handle)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, drv.queries["extensions"])
}

func TestCapabilityCacheDoesNotCacheFailures(t *testing.T) {
	fd := newFakeDevice("GPU", vk.PhysicalDeviceTypeDiscreteGpu)
	drv := newFakeDriver(fd)
	drv.failures["capabilities"] = vk.ErrorSurfaceLost
	cache := NewCapabilityCache(drv, fakeHandle[vk.Surface]())

	_, err := cache.Query(fd.handle)
	require.Error(t, err)

	delete(drv.failures, "capabilities")
	info, err := cache.Query(fd.handle)
	require.NoError(t, err)
	assert.Equal(t, "GPU", info.Name)
}

func TestCapabilityCacheQueryAllSkipsFailingDevices(t *testing.T) {
	good := newFakeDevice("Good", vk.PhysicalDeviceTypeDiscreteGpu)
	broken := newFakeDevice("Broken", vk.PhysicalDeviceTypeIntegratedGpu)
	broken.families = nil
	drv := newFakeDriver(broken, good)

	infos := NewCapabilityCache(drv, fakeHandle[vk.Surface]()).QueryAll([]vk.PhysicalDevice{broken.handle, good.handle})
	require.Len(t, infos, 1)
	assert.Equal(t, "Good", infos[0].Name)
}
