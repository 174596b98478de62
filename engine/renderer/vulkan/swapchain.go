package vulkan

import (
	"context"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
	"github.com/spaghettifunk/vkutility/engine/math"
)

// DefaultSurfaceFormat is used when the surface has no preferred format and
// is the format searched for otherwise.
var DefaultSurfaceFormat = vk.SurfaceFormat{
	Format:     vk.FormatB8g8r8a8Unorm,
	ColorSpace: vk.ColorSpaceSrgbNonlinear,
}

// FramebufferSource reports the live framebuffer size of the window backing
// a surface.
type FramebufferSource interface {
	FramebufferSize() (width, height int)
	// WaitEvents processes pending window system events. It may block for
	// a short while when there are none.
	WaitEvents()
}

// SwapchainParameters is everything swapchain creation needs to know about
// the surface, picked once per (re)creation.
type SwapchainParameters struct {
	Format       vk.SurfaceFormat
	PresentMode  vk.PresentMode
	Extent       vk.Extent2D
	ImageCount   uint32
	PreTransform vk.SurfaceTransformFlagBits
}

// ChooseSurfaceFormat picks 8-bit BGRA with the sRGB non-linear color space.
// A single undefined entry means the surface has no preference.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	if len(formats) == 0 {
		return DefaultSurfaceFormat
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return DefaultSurfaceFormat
	}
	for _, format := range formats {
		if format.Format == DefaultSurfaceFormat.Format && format.ColorSpace == DefaultSurfaceFormat.ColorSpace {
			return format
		}
	}
	// TODO: rank the remaining formats (sRGB color spaces, 8-bit channels) instead of taking the first one.
	core.LogWarn("Preferred surface format not available, using format %d / color space %d.", formats[0].Format, formats[0].ColorSpace)
	return formats[0]
}

// ChoosePresentMode prefers mailbox, then immediate, then FIFO which every
// implementation supports.
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	best := vk.PresentModeFifo
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
		if mode == vk.PresentModeImmediate {
			best = mode
		}
	}
	return best
}

func isExtentSentinel(extent vk.Extent2D) bool {
	return extent.Width == vk.MaxUint32 && extent.Height == vk.MaxUint32
}

// ChooseExtent returns the current surface extent unless the surface leaves
// it to the application. In that case it polls fb until the window has a
// non-zero size, processing window events in between, and clamps the result
// into the supported range. The poll stops with ctx.Err() when ctx is done.
func ChooseExtent(ctx context.Context, caps vk.SurfaceCapabilities, fb FramebufferSource) (vk.Extent2D, error) {
	if !isExtentSentinel(caps.CurrentExtent) {
		return caps.CurrentExtent, nil
	}

	width, height := fb.FramebufferSize()
	for width <= 0 || height <= 0 {
		if err := ctx.Err(); err != nil {
			return vk.Extent2D{}, err
		}
		// Minimized; wait until the window is visible again.
		fb.WaitEvents()
		width, height = fb.FramebufferSize()
	}

	return vk.Extent2D{
		Width:  math.Clamp(uint32(width), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: math.Clamp(uint32(height), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}, nil
}

// ChooseImageCount asks for one image more than the minimum. A maximum of
// zero means there is no limit.
func ChooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func ChooseSwapchainParameters(ctx context.Context, info *PhysicalDeviceInfo, fb FramebufferSource) (SwapchainParameters, error) {
	extent, err := ChooseExtent(ctx, info.Swapchain.Capabilities, fb)
	if err != nil {
		return SwapchainParameters{}, err
	}
	return SwapchainParameters{
		Format:       ChooseSurfaceFormat(info.Swapchain.Formats),
		PresentMode:  ChoosePresentMode(info.Swapchain.PresentModes),
		Extent:       extent,
		ImageCount:   ChooseImageCount(info.Swapchain.Capabilities),
		PreTransform: info.Swapchain.Capabilities.CurrentTransform,
	}, nil
}

// Swapchain owns a native swapchain. It keeps both its device and its
// surface alive.
type Swapchain struct {
	*Owned[vk.Swapchain]

	Parameters SwapchainParameters
}

func CreateSwapchain(dev *Device, surface *Surface, params SwapchainParameters) (*Swapchain, error) {
	return createSwapchain(dev, surface, params, vk.NullSwapchain)
}

// createSwapchain hands old to the driver so presentation can move over
// from it; old still has to be destroyed by the caller.
func createSwapchain(dev *Device, surface *Surface, params SwapchainParameters, old vk.Swapchain) (*Swapchain, error) {
	if dev == nil || !dev.Valid() || !surface.Valid() {
		return nil, fmt.Errorf("%w: swapchain requires a live device and surface", core.ErrResourceCreation)
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface.Handle(),
		MinImageCount:    params.ImageCount,
		ImageFormat:      params.Format.Format,
		ImageColorSpace:  params.Format.ColorSpace,
		ImageExtent:      params.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     params.PreTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      params.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	// Setup the queue family indices
	if dev.GraphicsQueueIndex != dev.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			uint32(dev.GraphicsQueueIndex),
			uint32(dev.PresentQueueIndex),
		}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	drv := dev.Driver()
	device := dev.Handle()
	handle, res := drv.CreateSwapchain(device, &createInfo)
	if res != vk.Success {
		return nil, newResultError(core.ErrResourceCreation, "vkCreateSwapchainKHR", res)
	}
	core.LogInfo("Swapchain created: %dx%d, %d images.", params.Extent.Width, params.Extent.Height, params.ImageCount)

	return &Swapchain{
		Owned: newOwned(drv, "swapchain", handle, func(s vk.Swapchain) {
			drv.DestroySwapchain(device, s)
		}, dev, surface),
		Parameters: params,
	}, nil
}

// Retain returns an independent reference to the same swapchain.
func (s *Swapchain) Retain() *Swapchain {
	if s == nil {
		return nil
	}
	owned := s.Owned.Retain()
	if owned == nil {
		return nil
	}
	return &Swapchain{Owned: owned, Parameters: s.Parameters}
}

func (s *Swapchain) Destroy() {
	if s == nil {
		return
	}
	s.Owned.Destroy()
}
