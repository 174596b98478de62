package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRequirements() Requirements {
	return RequirementsFromConfig(core.DefaultConfig().Vulkan)
}

func queryInfo(t *testing.T, fd *fakeDevice) *PhysicalDeviceInfo {
	t.Helper()
	info, err := QueryCapabilities(newFakeDriver(fd), fd.handle, fakeHandle[vk.Surface]())
	require.NoError(t, err)
	return info
}

func TestRequirementsFromConfig(t *testing.T) {
	req := defaultRequirements()
	assert.Equal(t, []string{"VK_KHR_swapchain"}, req.DeviceExtensions)
	assert.True(t, req.RequireSwapchain)
	assert.True(t, req.Graphics)
	assert.True(t, req.Present)
	assert.False(t, req.Compute)
	assert.True(t, req.Transfer)
}

func TestMinimalRaterScoresByType(t *testing.T) {
	req := defaultRequirements()
	for typ, want := range map[vk.PhysicalDeviceType]int{
		vk.PhysicalDeviceTypeDiscreteGpu:   1000,
		vk.PhysicalDeviceTypeIntegratedGpu: 100,
		vk.PhysicalDeviceTypeVirtualGpu:    2,
		vk.PhysicalDeviceTypeCpu:           1,
		vk.PhysicalDeviceTypeOther:         0,
	} {
		info := queryInfo(t, newFakeDevice("dev", typ))
		assert.Equal(t, want, MinimalRater{}.Rate(info, req), "type %d", typ)
	}
}

func TestMinimalRaterRejections(t *testing.T) {
	cases := map[string]func(fd *fakeDevice){
		"missing extension":  func(fd *fakeDevice) { fd.extensions = nil },
		"no anisotropy":      func(fd *fakeDevice) { fd.features.SamplerAnisotropy = vk.False },
		"no surface formats": func(fd *fakeDevice) { fd.formats = nil },
		"no present modes":   func(fd *fakeDevice) { fd.modes = nil },
		"no present queue":   func(fd *fakeDevice) { fd.present = nil },
		"no graphics queue": func(fd *fakeDevice) {
			fd.families = []vk.QueueFamilyProperties{{QueueFlags: vk.QueueFlags(vk.QueueTransferBit)}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			fd := newFakeDevice("dev", vk.PhysicalDeviceTypeDiscreteGpu)
			mutate(fd)
			assert.Zero(t, MinimalRater{}.Rate(queryInfo(t, fd), defaultRequirements()))
		})
	}
}

func TestMinimalRaterSwapchainOptional(t *testing.T) {
	fd := newFakeDevice("dev", vk.PhysicalDeviceTypeIntegratedGpu)
	fd.formats = nil
	req := defaultRequirements()
	req.RequireSwapchain = false
	assert.Equal(t, 100, MinimalRater{}.Rate(queryInfo(t, fd), req))
}

func TestWeightedRaterAddsImageDimension(t *testing.T) {
	small := newFakeDevice("small", vk.PhysicalDeviceTypeDiscreteGpu)
	big := newFakeDevice("big", vk.PhysicalDeviceTypeDiscreteGpu)
	big.props.Limits.MaxImageDimension2D = 16384

	req := defaultRequirements()
	assert.Equal(t, 1000+8192, WeightedRater{}.Rate(queryInfo(t, small), req))

	best, err := SelectBest([]*PhysicalDeviceInfo{queryInfo(t, small), queryInfo(t, big)}, WeightedRater{}, req)
	require.NoError(t, err)
	assert.Equal(t, "big", best.Name)

	rejected := newFakeDevice("rejected", vk.PhysicalDeviceTypeDiscreteGpu)
	rejected.extensions = nil
	assert.Zero(t, WeightedRater{}.Rate(queryInfo(t, rejected), req))
}

func TestSelectBestPrefersDiscrete(t *testing.T) {
	infos := []*PhysicalDeviceInfo{
		queryInfo(t, newFakeDevice("integrated", vk.PhysicalDeviceTypeIntegratedGpu)),
		queryInfo(t, newFakeDevice("discrete", vk.PhysicalDeviceTypeDiscreteGpu)),
		queryInfo(t, newFakeDevice("cpu", vk.PhysicalDeviceTypeCpu)),
	}
	best, err := SelectBest(infos, MinimalRater{}, defaultRequirements())
	require.NoError(t, err)
	assert.Equal(t, "discrete", best.Name)
}

func TestSelectBestTieKeepsFirstSeen(t *testing.T) {
	infos := []*PhysicalDeviceInfo{
		queryInfo(t, newFakeDevice("first", vk.PhysicalDeviceTypeIntegratedGpu)),
		queryInfo(t, newFakeDevice("second", vk.PhysicalDeviceTypeIntegratedGpu)),
	}
	best, err := SelectBest(infos, MinimalRater{}, defaultRequirements())
	require.NoError(t, err)
	assert.Equal(t, "first", best.Name)
}

func TestSelectBestNoSuitableDevice(t *testing.T) {
	var infos []*PhysicalDeviceInfo
	for _, name := range []string{"a", "b"} {
		fd := newFakeDevice(name, vk.PhysicalDeviceTypeDiscreteGpu)
		fd.extensions = nil
		infos = append(infos, queryInfo(t, fd))
	}

	best, err := SelectBest(infos, MinimalRater{}, defaultRequirements())
	assert.Nil(t, best)
	assert.ErrorIs(t, err, core.ErrNoSuitableDevice)

	_, err = SelectBest(nil, MinimalRater{}, defaultRequirements())
	assert.ErrorIs(t, err, core.ErrNoSuitableDevice)
}

func TestNewRater(t *testing.T) {
	r, err := NewRater("")
	require.NoError(t, err)
	assert.IsType(t, MinimalRater{}, r)

	r, err = NewRater("weighted")
	require.NoError(t, err)
	assert.IsType(t, WeightedRater{}, r)

	_, err = NewRater("fastest")
	assert.Error(t, err)
}
