package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanContext holds the instance-wide objects every backend resource is
// created from.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	// Frames are recorded into a single command buffer and submitted one at
	// a time. BeginFrame waits on InFlightFence before reusing it.
	GraphicsCommandBuffer *VulkanCommandBuffer
	InFlightFence         *VulkanFence
}

// memoryTypeIndex picks the first memory type allowed by typeBits that has
// every flag in required. The properties are the ones cached at device
// selection.
func (vc *VulkanContext) memoryTypeIndex(typeBits uint32, required vk.MemoryPropertyFlagBits) (uint32, bool) {
	props := vc.Device.Memory
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		memoryType := props.MemoryTypes[i]
		memoryType.Deref()
		if vk.MemoryPropertyFlagBits(memoryType.PropertyFlags)&required == required {
			return i, true
		}
	}
	return 0, false
}
