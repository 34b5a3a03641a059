package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

// VulkanImage is a device-local attachment: the image, its memory and a
// view over the whole surface. It implements metadata.Surface.
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView

	name   string
	format metadata.Format
	width  uint32
	height uint32
	size   uint64
	// Layout is the layout the last recorded command left the image in.
	Layout vk.ImageLayout
}

func (vi *VulkanImage) Name() string            { return vi.name }
func (vi *VulkanImage) Width() uint32           { return vi.width }
func (vi *VulkanImage) Height() uint32          { return vi.height }
func (vi *VulkanImage) Format() metadata.Format { return vi.format }

// VulkanFormat maps an attachment format to its Vulkan equivalent.
func VulkanFormat(f metadata.Format) (vk.Format, bool) {
	switch f {
	case metadata.FormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm, true
	case metadata.FormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat, true
	case metadata.FormatRG16Float:
		return vk.FormatR16g16Sfloat, true
	case metadata.FormatR16Float:
		return vk.FormatR16Sfloat, true
	case metadata.FormatDepth32Float:
		return vk.FormatD32Sfloat, true
	}
	return vk.FormatUndefined, false
}

func aspectMask(f metadata.Format) vk.ImageAspectFlags {
	if f.IsDepth() {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func usageFlags(f metadata.Format) vk.ImageUsageFlags {
	usage := vk.ImageUsageSampledBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit
	if f.IsDepth() {
		usage |= vk.ImageUsageDepthStencilAttachmentBit
	} else {
		usage |= vk.ImageUsageColorAttachmentBit
	}
	return vk.ImageUsageFlags(usage)
}

func wholeRange(f metadata.Format) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask: aspectMask(f),
		LevelCount: 1,
		LayerCount: 1,
	}
}

func wholeLayers(f metadata.Format) vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask: aspectMask(f),
		LayerCount: 1,
	}
}

// NewVulkanImage creates the image, binds device-local memory and creates
// its view. On failure everything created so far is destroyed.
func NewVulkanImage(context *VulkanContext, desc metadata.AttachmentDesc) (*VulkanImage, error) {
	format, ok := VulkanFormat(desc.Format)
	if !ok {
		return nil, fmt.Errorf("surface %s (%s): %w", desc.Name, desc.Format, core.ErrUnsupportedFormat)
	}
	device := context.Device.LogicalDevice
	vi := &VulkanImage{
		name:   desc.Name,
		format: desc.Format,
		width:  desc.Width,
		height: desc.Height,
		Layout: vk.ImageLayoutUndefined,
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usageFlags(desc.Format),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var handle vk.Image
	if res := vk.CreateImage(device, &imageInfo, context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("vkCreateImage %s: %s", desc.Name, VulkanResultString(res))
	}
	vi.Handle = handle

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, handle, &memReqs)
	memReqs.Deref()

	memoryIndex, ok := context.memoryTypeIndex(memReqs.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		vi.Destroy(context)
		return nil, fmt.Errorf("surface %s: no device local memory type", desc.Name)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device, &allocInfo, context.Allocator, &memory); res != vk.Success {
		vi.Destroy(context)
		return nil, fmt.Errorf("vkAllocateMemory %s (%d bytes): %s", desc.Name, memReqs.Size, VulkanResultString(res))
	}
	vi.Memory = memory
	vi.size = uint64(memReqs.Size)

	if res := vk.BindImageMemory(device, handle, memory, 0); res != vk.Success {
		vi.Destroy(context)
		return nil, fmt.Errorf("vkBindImageMemory %s: %s", desc.Name, VulkanResultString(res))
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            handle,
		ViewType:         vk.ImageViewType2d,
		Format:           format,
		SubresourceRange: wholeRange(desc.Format),
	}
	var view vk.ImageView
	if res := vk.CreateImageView(device, &viewInfo, context.Allocator, &view); res != vk.Success {
		vi.Destroy(context)
		return nil, fmt.Errorf("vkCreateImageView %s: %s", desc.Name, VulkanResultString(res))
	}
	vi.View = view
	return vi, nil
}

func (vi *VulkanImage) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if vi.View != nil {
		vk.DestroyImageView(device, vi.View, context.Allocator)
		vi.View = nil
	}
	if vi.Memory != nil {
		vk.FreeMemory(device, vi.Memory, context.Allocator)
		vi.Memory = nil
	}
	if vi.Handle != nil {
		vk.DestroyImage(device, vi.Handle, context.Allocator)
		vi.Handle = nil
	}
	vi.size = 0
}

// accessFor is the access mask matching a layout the backend uses.
func accessFor(layout vk.ImageLayout) vk.AccessFlags {
	switch layout {
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessColorAttachmentReadBit)
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit | vk.AccessDepthStencilAttachmentReadBit)
	case vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutDepthStencilReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessShaderReadBit)
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.AccessFlags(vk.AccessTransferReadBit)
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit)
	}
	return 0
}

// Transition records a layout change on cmd. Nothing is recorded when the
// image already has the requested layout.
func (vi *VulkanImage) Transition(cmd vk.CommandBuffer, layout vk.ImageLayout) {
	if vi.Layout == layout {
		return
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       accessFor(vi.Layout),
		DstAccessMask:       accessFor(layout),
		OldLayout:           vi.Layout,
		NewLayout:           layout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SubresourceRange:    wholeRange(vi.format),
	}
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	vi.Layout = layout
}

// readLayout and writeLayout are the layouts a pass samples from and
// renders into.
func readLayout(f metadata.Format) vk.ImageLayout {
	if f.IsDepth() {
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	}
	return vk.ImageLayoutShaderReadOnlyOptimal
}

func writeLayout(f metadata.Format) vk.ImageLayout {
	if f.IsDepth() {
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	}
	return vk.ImageLayoutColorAttachmentOptimal
}
