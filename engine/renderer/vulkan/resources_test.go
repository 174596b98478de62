package vulkan

import (
	"context"
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnedDestroyIsIdempotent(t *testing.T) {
	released := 0
	o := newOwned(nil, "test", fakeHandle[vk.Fence](), func(vk.Fence) { released++ })
	require.True(t, o.Valid())

	o.Destroy()
	o.Destroy()
	assert.Equal(t, 1, released)
	assert.False(t, o.Valid())
	assert.Equal(t, vk.NullFence, o.Handle())
}

func TestOwnedRetain(t *testing.T) {
	released := 0
	o := newOwned(nil, "test", fakeHandle[vk.Fence](), func(vk.Fence) { released++ })
	other := o.Retain()

	o.Destroy()
	assert.Zero(t, released)
	assert.True(t, other.Valid())

	other.Destroy()
	assert.Equal(t, 1, released)
}

func TestOwnedRetainedReferencesAreIndependent(t *testing.T) {
	released := 0
	o := newOwned(nil, "test", fakeHandle[vk.Fence](), func(vk.Fence) { released++ })
	other := o.Retain()
	require.NotNil(t, other)
	assert.NotSame(t, o, other)
	assert.Equal(t, o.Handle(), other.Handle())

	// Repeated destroys of one reference never take the other's count.
	o.Destroy()
	o.Destroy()
	o.Destroy()
	assert.Zero(t, released)
	assert.False(t, o.Valid())
	assert.True(t, other.Valid())
	assert.Nil(t, o.Retain())

	other.Destroy()
	assert.Equal(t, 1, released)
}

func TestOwnedReleasesParentsLast(t *testing.T) {
	var order []string
	parent := newOwned(nil, "parent", fakeHandle[vk.Instance](), func(vk.Instance) { order = append(order, "parent") })
	child := newOwned(nil, "child", fakeHandle[vk.Device](), func(vk.Device) { order = append(order, "child") }, parent)

	parent.Destroy()
	parent.Destroy()
	assert.Empty(t, order)

	child.Destroy()
	assert.Equal(t, []string{"child", "parent"}, order)
}

func TestOwnedNilIsSafe(t *testing.T) {
	var o *Owned[vk.Fence]
	assert.False(t, o.Valid())
	assert.Equal(t, vk.NullFence, o.Handle())
	assert.NotPanics(t, o.Destroy)

	var dev *Device
	assert.NotPanics(t, dev.Destroy)
	var sc *Swapchain
	assert.NotPanics(t, sc.Destroy)
}

func TestCreateInstanceFailure(t *testing.T) {
	drv := newFakeDriver()
	drv.failures["instance"] = vk.ErrorIncompatibleDriver

	inst, err := CreateInstance(drv, InstanceConfig{ApplicationName: "test"})
	assert.Nil(t, inst)
	assert.ErrorIs(t, err, core.ErrResourceCreation)

	var resErr *ResultError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, vk.ErrorIncompatibleDriver, resErr.Result)
	assert.Equal(t, "vkCreateInstance", resErr.Op)
	assert.Contains(t, err.Error(), "VK_ERROR_INCOMPATIBLE_DRIVER")
}

func TestCreateSurfaceFailure(t *testing.T) {
	drv := newFakeDriver()
	inst, err := CreateInstance(drv, InstanceConfig{})
	require.NoError(t, err)
	defer inst.Destroy()

	surface, err := CreateSurface(inst, &fakeWindow{surfaceErr: errNoWindow})
	assert.Nil(t, surface)
	assert.ErrorIs(t, err, core.ErrResourceCreation)

	inst.Destroy()
	assert.Equal(t, 1, drv.destroyed["instance"])
}

func TestDeviceKeepsInstanceAlive(t *testing.T) {
	fd := newFakeDevice("GPU", vk.PhysicalDeviceTypeDiscreteGpu)
	drv := newFakeDriver(fd)
	inst, dev := newTestDevice(t, drv, fd)

	inst.Destroy()
	inst.Destroy()
	assert.Zero(t, drv.destroyed["instance"])
	assert.True(t, dev.Valid())

	dev.Destroy()
	dev.Destroy()
	assert.Equal(t, []string{"device", "instance"}, drv.order)
	assert.Nil(t, dev.GraphicsQueue)
	assert.Equal(t, int32(-1), dev.GraphicsQueueIndex)
}

func TestDeviceRetain(t *testing.T) {
	fd := newFakeDevice("GPU", vk.PhysicalDeviceTypeDiscreteGpu)
	drv := newFakeDriver(fd)
	inst, dev := newTestDevice(t, drv, fd)
	inst.Destroy()

	other := dev.Retain()
	require.NotNil(t, other)
	assert.NotSame(t, dev, other)
	assert.Same(t, dev.Info, other.Info)
	assert.Equal(t, dev.GraphicsQueueIndex, other.GraphicsQueueIndex)
	assert.Equal(t, dev.GraphicsQueue, other.GraphicsQueue)

	dev.Destroy()
	dev.Destroy()
	assert.Zero(t, drv.destroyed["device"])
	assert.Nil(t, dev.Retain())
	assert.True(t, other.Valid())
	assert.NotNil(t, other.GraphicsQueue)
	assert.Equal(t, int32(0), other.GraphicsQueueIndex)

	other.Destroy()
	assert.Equal(t, []string{"device", "instance"}, drv.order)
	assert.Nil(t, other.PresentQueue)
}

func TestSwapchainRetain(t *testing.T) {
	vc, err := NewContext(context.Background(), newFakeDriver(newFakeDevice("GPU", vk.PhysicalDeviceTypeDiscreteGpu)), testContextConfig(), &fakeWindow{})
	require.NoError(t, err)
	defer vc.Destroy()

	other := vc.Swapchain.Retain()
	require.NotNil(t, other)
	assert.Equal(t, vc.Swapchain.Parameters, other.Parameters)

	vc.Swapchain.Destroy()
	assert.True(t, other.Valid())
	other.Destroy()
	assert.False(t, other.Valid())
}

func TestCreateDeviceSharedFamily(t *testing.T) {
	fd := newFakeDevice("GPU", vk.PhysicalDeviceTypeDiscreteGpu)
	drv := newFakeDriver(fd)
	_, dev := newTestDevice(t, drv, fd)
	defer dev.Destroy()

	assert.Equal(t, int32(0), dev.GraphicsQueueIndex)
	assert.Equal(t, int32(0), dev.PresentQueueIndex)
	assert.Equal(t, int32(0), dev.TransferQueueIndex)
	assert.NotNil(t, dev.GraphicsQueue)
	assert.Equal(t, uint32(1), drv.lastDevice.QueueCreateInfoCount)
	assert.Equal(t, []string{"VK_KHR_swapchain\x00"}, drv.lastDevice.PpEnabledExtensionNames)
}

func TestCreateDeviceDedicatedFamilies(t *testing.T) {
	fd := newFakeDevice("GPU", vk.PhysicalDeviceTypeDiscreteGpu)
	fd.families = []vk.QueueFamilyProperties{
		{QueueFlags: graphicsComputeTransfer},
		{QueueFlags: vk.QueueFlags(vk.QueueComputeBit) | vk.QueueFlags(vk.QueueTransferBit)},
		{QueueFlags: vk.QueueFlags(vk.QueueTransferBit)},
	}
	fd.present = map[uint32]bool{0: true, 1: true}
	fd.extensions = append(fd.extensions, portabilitySubsetExtensionName)
	drv := newFakeDriver(fd)
	_, dev := newTestDevice(t, drv, fd)
	defer dev.Destroy()

	assert.Equal(t, int32(0), dev.GraphicsQueueIndex)
	assert.Equal(t, int32(0), dev.PresentQueueIndex)
	assert.Equal(t, int32(2), dev.TransferQueueIndex)
	assert.Equal(t, uint32(2), drv.lastDevice.QueueCreateInfoCount)
	assert.Len(t, drv.lastDevice.PpEnabledExtensionNames, 2)
}

func TestCreateDeviceFailureReleasesNothing(t *testing.T) {
	fd := newFakeDevice("GPU", vk.PhysicalDeviceTypeDiscreteGpu)
	drv := newFakeDriver(fd)
	inst, err := CreateInstance(drv, InstanceConfig{})
	require.NoError(t, err)
	info, err := QueryCapabilities(drv, fd.handle, vk.NullSurface)
	require.NoError(t, err)

	drv.failures["device"] = vk.ErrorDeviceLost
	dev, err := CreateDevice(inst, info, defaultRequirements())
	assert.Nil(t, dev)
	assert.ErrorIs(t, err, core.ErrResourceCreation)

	inst.Destroy()
	assert.Equal(t, 1, drv.destroyed["instance"])
}

func TestResultErrorMatchesOnlyItsKind(t *testing.T) {
	err := newResultError(core.ErrCapabilityQuery, "op", vk.ErrorOutOfHostMemory)
	assert.True(t, errors.Is(err, core.ErrCapabilityQuery))
	assert.False(t, errors.Is(err, core.ErrResourceCreation))
}
