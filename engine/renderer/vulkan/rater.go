package vulkan

import (
	"fmt"
	"sort"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
)

// Requirements a physical device must satisfy to be rated above zero.
type Requirements struct {
	DeviceExtensions []string
	RequireSwapchain bool

	Graphics bool
	Present  bool
	Compute  bool
	Transfer bool
}

func RequirementsFromConfig(cfg core.VulkanConfig) Requirements {
	return Requirements{
		DeviceExtensions: cfg.DeviceExtensions,
		RequireSwapchain: cfg.RequireSwapchain,
		Graphics:         cfg.Queues.Graphics,
		Present:          cfg.Queues.Present,
		Compute:          cfg.Queues.Compute,
		Transfer:         cfg.Queues.Transfer,
	}
}

// Rater scores a device against the requirements. Zero means unsuitable.
type Rater interface {
	Rate(info *PhysicalDeviceInfo, req Requirements) int
}

// NewRater resolves a rating strategy by its configuration name.
func NewRater(name string) (Rater, error) {
	switch name {
	case "", "minimal":
		return MinimalRater{}, nil
	case "weighted":
		return WeightedRater{}, nil
	default:
		return nil, fmt.Errorf("unknown device rater %q", name)
	}
}

var deviceTypeScores = map[vk.PhysicalDeviceType]int{
	vk.PhysicalDeviceTypeDiscreteGpu:   1000,
	vk.PhysicalDeviceTypeIntegratedGpu: 100,
	vk.PhysicalDeviceTypeVirtualGpu:    2,
	vk.PhysicalDeviceTypeCpu:           1,
}

// MinimalRater scores by device type only, after the hard rejections.
type MinimalRater struct{}

func (MinimalRater) Rate(info *PhysicalDeviceInfo, req Requirements) int {
	for _, name := range req.DeviceExtensions {
		if !info.HasExtension(name) {
			core.LogDebug("Required extension not found: '%s', rejecting '%s'.", name, info.Name)
			return 0
		}
	}

	if req.RequireSwapchain && (len(info.Swapchain.Formats) == 0 || len(info.Swapchain.PresentModes) == 0) {
		core.LogDebug("Required swapchain support not present, rejecting '%s'.", info.Name)
		return 0
	}

	if !info.SamplerAnisotropy {
		core.LogDebug("Device '%s' does not support samplerAnisotropy, rejecting.", info.Name)
		return 0
	}

	q := info.QueueFamilies
	if (req.Graphics && len(q.Graphics) == 0) ||
		(req.Present && len(q.Present) == 0) ||
		(req.Compute && len(q.Compute) == 0) ||
		(req.Transfer && len(q.Transfer) == 0) {
		core.LogDebug("Device '%s' does not meet queue requirements, rejecting.", info.Name)
		return 0
	}

	return deviceTypeScores[info.Type]
}

// WeightedRater adds the maximum 2D texture dimension on top of the minimal
// score, so that among devices of one type the more capable one wins.
type WeightedRater struct{}

func (WeightedRater) Rate(info *PhysicalDeviceInfo, req Requirements) int {
	score := MinimalRater{}.Rate(info, req)
	if score == 0 {
		return 0
	}
	return score + int(info.MaxImageDimension2D)
}

// SelectBest rates every candidate and returns the highest scoring one.
// Equal scores keep enumeration order, so the first seen wins.
func SelectBest(devices []*PhysicalDeviceInfo, rater Rater, req Requirements) (*PhysicalDeviceInfo, error) {
	type rated struct {
		info  *PhysicalDeviceInfo
		score int
	}

	candidates := make([]rated, len(devices))
	for i, info := range devices {
		candidates[i] = rated{info: info, score: rater.Rate(info, req)}
		core.LogDebug("Device '%s' scored %d.", info.Name, candidates[i].score)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) == 0 || candidates[0].score == 0 {
		return nil, fmt.Errorf("%w: %d candidate(s) rated", core.ErrNoSuitableDevice, len(devices))
	}
	return candidates[0].info, nil
}
