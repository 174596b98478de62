package vulkan

import (
	"context"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
)

// Window is the window-surface provider the context renders into.
type Window interface {
	SurfaceProvider
	FramebufferSource
}

type ContextConfig struct {
	Instance     InstanceConfig
	Requirements Requirements
	Rater        Rater
}

// VulkanContext holds the objects created during initialization, in the
// order they were created.
type VulkanContext struct {
	Driver Driver

	Instance  *Instance
	Surface   *Surface
	Device    *Device
	Swapchain *Swapchain

	Capabilities *CapabilityCache
}

// NewContext runs the initialization sequence: instance, surface, device
// enumeration and selection, logical device and swapchain. Anything created
// before a failure is destroyed again.
func NewContext(ctx context.Context, drv Driver, cfg ContextConfig, window Window) (*VulkanContext, error) {
	vc := &VulkanContext{Driver: drv}
	if err := vc.initialize(ctx, cfg, window); err != nil {
		vc.Destroy()
		return nil, err
	}
	return vc, nil
}

func (vc *VulkanContext) initialize(ctx context.Context, cfg ContextConfig, window Window) error {
	var err error
	if vc.Instance, err = CreateInstance(vc.Driver, cfg.Instance); err != nil {
		return err
	}
	if vc.Surface, err = CreateSurface(vc.Instance, window); err != nil {
		return err
	}

	info, err := vc.selectPhysicalDevice(cfg)
	if err != nil {
		return err
	}

	if vc.Device, err = CreateDevice(vc.Instance, info, cfg.Requirements); err != nil {
		return err
	}

	params, err := ChooseSwapchainParameters(ctx, info, window)
	if err != nil {
		return fmt.Errorf("failed to choose swapchain parameters: %w", err)
	}
	if vc.Swapchain, err = CreateSwapchain(vc.Device, vc.Surface, params); err != nil {
		return err
	}
	return nil
}

func (vc *VulkanContext) selectPhysicalDevice(cfg ContextConfig) (*PhysicalDeviceInfo, error) {
	devices, res := vc.Driver.EnumeratePhysicalDevices(vc.Instance.Handle())
	if res != vk.Success {
		return nil, newResultError(core.ErrCapabilityQuery, "vkEnumeratePhysicalDevices", res)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: no devices which support Vulkan were found", core.ErrNoSuitableDevice)
	}

	vc.Capabilities = NewCapabilityCache(vc.Driver, vc.Surface.Handle())
	infos := vc.Capabilities.QueryAll(devices)
	ReportDevices(infos)

	rater := cfg.Rater
	if rater == nil {
		rater = MinimalRater{}
	}
	info, err := SelectBest(infos, rater, cfg.Requirements)
	if err != nil {
		return nil, err
	}
	ReportSelectedDevice(info)
	return info, nil
}

// RecreateSwapchain re-reads the surface capabilities, which change with
// the window size, and replaces the swapchain.
func (vc *VulkanContext) RecreateSwapchain(ctx context.Context, window FramebufferSource) error {
	if vc.Device == nil || !vc.Device.Valid() {
		return fmt.Errorf("%w: swapchain recreation requires a live device", core.ErrResourceCreation)
	}

	// Snapshots are immutable, so the refreshed support goes into a copy.
	info := *vc.Device.Info
	if err := querySwapchainSupport(vc.Driver, info.Handle, vc.Surface.Handle(), &info.Swapchain); err != nil {
		return err
	}

	params, err := ChooseSwapchainParameters(ctx, &info, window)
	if err != nil {
		return fmt.Errorf("failed to choose swapchain parameters: %w", err)
	}

	// The old swapchain stays in place until its replacement exists.
	old := vk.NullSwapchain
	if vc.Swapchain != nil {
		old = vc.Swapchain.Handle()
	}
	swapchain, err := createSwapchain(vc.Device, vc.Surface, params, old)
	if err != nil {
		return err
	}
	vc.Swapchain.Destroy()
	vc.Swapchain = swapchain
	return nil
}

// Destroy releases everything in reverse creation order. It is safe on a
// partially initialized context.
func (vc *VulkanContext) Destroy() {
	vc.Swapchain.Destroy()
	vc.Device.Destroy()
	vc.Surface.Destroy()
	vc.Instance.Destroy()
}
