package vulkan

import (
	"errors"
	"fmt"
	"math"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/hybrid/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{IsSignaled: createSignaled}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create fence: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	fence.Handle = handle
	return fence, nil
}

func (vf *VulkanFence) Destroy(context *VulkanContext) {
	if vf.Handle != nil {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

// ErrFenceTimeout is returned when a fence is still unsignaled after the
// requested timeout.
var ErrFenceTimeout = errors.New("fence wait timed out")

// Wait blocks until the fence is signaled. A timeout of zero or less waits
// forever.
func (vf *VulkanFence) Wait(context *VulkanContext, timeout time.Duration) error {
	if vf.IsSignaled {
		return nil
	}
	timeoutNs := uint64(math.MaxUint64)
	if timeout > 0 {
		timeoutNs = uint64(timeout.Nanoseconds())
	}
	switch result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs); result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("fence wait timed out after %s", timeout)
		return ErrFenceTimeout
	default:
		err := fmt.Errorf("fence wait: %s", VulkanResultString(result))
		core.LogError(err.Error())
		return err
	}
}

func (vf *VulkanFence) Reset(context *VulkanContext) error {
	if !vf.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		err := fmt.Errorf("failed to reset fence: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vf.IsSignaled = false
	return nil
}
