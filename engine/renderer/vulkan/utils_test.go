package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_SUCCESS", VulkanResultString(vk.Success, false))
	assert.Equal(t, "VK_ERROR_DEVICE_LOST The logical or physical device has been lost.", VulkanResultString(vk.ErrorDeviceLost, true))
	assert.Equal(t, "VkResult(-12345)", VulkanResultString(vk.Result(-12345), false))
}

func TestVulkanSafeStrings(t *testing.T) {
	in := []string{"a", "b\x00"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, "a", in[0])
	assert.Equal(t, "\x00", VulkanSafeString(""))
}
