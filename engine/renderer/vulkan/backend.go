package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/hybrid/engine/core"
	hmath "github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/platform"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

var (
	ErrNotInitialized = errors.New("vulkan device not initialized")
	ErrNotInFrame     = errors.New("no frame in progress")
	ErrAlreadyInFrame = errors.New("frame already begun")
)

// Recorder records the draw or dispatch commands of one pass. It runs
// after the pass's attachments were transitioned to their declared
// read and write layouts.
type Recorder func(cmd vk.CommandBuffer, inv *metadata.PassInvocation) error

type Option func(*VulkanRenderer)

// WithValidation enables VK_LAYER_KHRONOS_validation and the debug report
// callback when the layer is installed.
func WithValidation(enabled bool) Option {
	return func(vr *VulkanRenderer) {
		vr.debug = enabled
	}
}

// WithPlatform shares an already started platform instead of owning one.
func WithPlatform(p *platform.Platform) Option {
	return func(vr *VulkanRenderer) {
		vr.platform = p
		vr.ownsPlatform = false
	}
}

// WithRecorder registers the command recorder of a pass.
func WithRecorder(id metadata.PassID, r Recorder) Option {
	return func(vr *VulkanRenderer) {
		vr.recorders[id] = r
	}
}

// VulkanRenderer is a headless renderer.Device. Attachments are device
// local images, every frame is recorded into one command buffer and
// submitted on EndFrame.
type VulkanRenderer struct {
	platform     *platform.Platform
	ownsPlatform bool
	context      *VulkanContext
	recorders    map[metadata.PassID]Recorder
	live         map[*VulkanImage]struct{}
	used         uint64

	initialized bool
	inFrame     bool
	frame       uint64
	debug       bool
}

func New(opts ...Option) *VulkanRenderer {
	vr := &VulkanRenderer{
		platform:     platform.New(),
		ownsPlatform: true,
		context:      &VulkanContext{Allocator: nil},
		recorders:    make(map[metadata.PassID]Recorder),
		live:         make(map[*VulkanImage]struct{}),
	}
	for _, o := range opts {
		o(vr)
	}
	return vr
}

func (vr *VulkanRenderer) loadVulkan() error {
	if err := vr.platform.Startup(); err == nil {
		vk.SetGetInstanceProcAddr(vr.platform.InstanceProcAddr())
	} else {
		core.LogWarn("glfw unavailable, loading the vulkan library directly")
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return fmt.Errorf("failed to load vulkan library: %w: %w", core.ErrDeviceNotAvailable, err)
		}
	}
	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize vk: %w: %w", core.ErrDeviceNotAvailable, err)
	}
	return nil
}

func (vr *VulkanRenderer) Initialize(appName string) error {
	if vr.initialized {
		return nil
	}
	if err := vr.loadVulkan(); err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := vr.createInstance(appName); err != nil {
		return err
	}
	if vr.debug {
		vr.createDebugCallback()
	}

	vr.context.Device = &VulkanDevice{GraphicsQueueIndex: -1}
	if err := DeviceCreate(vr.context); err != nil {
		vr.destroyInstance()
		return err
	}

	cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
	if err != nil {
		vr.Shutdown()
		return err
	}
	vr.context.GraphicsCommandBuffer = cb

	// Signaled so the first BeginFrame does not wait.
	fence, err := NewFence(vr.context, true)
	if err != nil {
		vr.Shutdown()
		return err
	}
	vr.context.InFlightFence = fence

	vr.initialized = true
	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance(appName string) error {
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 1, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Hybrid Renderer"),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &appInfo,
	}

	var extensions []string
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if vr.debug {
		if instanceHasLayer("VK_LAYER_KHRONOS_validation") {
			layers = append(layers, "VK_LAYER_KHRONOS_validation")
			extensions = append(extensions, vk.ExtDebugReportExtensionName)
		} else {
			core.LogWarn("validation layer VK_LAYER_KHRONOS_validation is missing, continuing without it")
			vr.debug = false
		}
	}
	for _, e := range extensions {
		core.LogDebug("Required extension: %s", e)
	}

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`: %w", VulkanResultString(res), core.ErrDeviceNotAvailable)
		core.LogError(err.Error())
		return err
	}
	vr.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		core.LogError(err.Error())
		vr.destroyInstance()
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func instanceHasLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		end := FindFirstZeroInByteArray(available[i].LayerName[:])
		if vk.ToString(available[i].LayerName[:end]) == name {
			return true
		}
	}
	return false
}

func (vr *VulkanRenderer) createDebugCallback() {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
		core.LogWarn("vk.CreateDebugReportCallback failed with %s", err)
		return
	}
	vr.context.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created.")
}

func (vr *VulkanRenderer) destroyInstance() {
	if vr.context.Instance == nil {
		return
	}
	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
	}
	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
	vr.context.Instance = nil
}

func (vr *VulkanRenderer) Shutdown() error {
	if vr.context.Device != nil && vr.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

		for vi := range vr.live {
			vi.Destroy(vr.context)
		}
		vr.live = make(map[*VulkanImage]struct{})
		vr.used = 0

		if vr.context.InFlightFence != nil {
			vr.context.InFlightFence.Destroy(vr.context)
			vr.context.InFlightFence = nil
		}
		if vr.context.GraphicsCommandBuffer != nil {
			vr.context.GraphicsCommandBuffer.Free(vr.context, vr.context.Device.GraphicsCommandPool)
			vr.context.GraphicsCommandBuffer = nil
		}
		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(vr.context)
	}
	vr.destroyInstance()
	if vr.ownsPlatform {
		vr.platform.Shutdown()
	}
	vr.initialized = false
	vr.inFrame = false
	return nil
}

func (vr *VulkanRenderer) CreateSurface(desc metadata.AttachmentDesc) (metadata.Surface, error) {
	if !vr.initialized {
		return nil, ErrNotInitialized
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("surface %s: %w", desc.Name, core.ErrInvalidExtent)
	}
	vi, err := NewVulkanImage(vr.context, desc)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	vr.live[vi] = struct{}{}
	vr.used += vi.size
	return vi, nil
}

func (vr *VulkanRenderer) DestroySurface(surface metadata.Surface) {
	vi, ok := surface.(*VulkanImage)
	if !ok {
		return
	}
	if _, live := vr.live[vi]; !live {
		return
	}
	// A submitted frame may still sample the image.
	if err := vr.context.InFlightFence.Wait(vr.context, 0); err != nil {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	}
	delete(vr.live, vi)
	vr.used -= vi.size
	vi.Destroy(vr.context)
}

func (vr *VulkanRenderer) BeginFrame(frame uint64) error {
	if !vr.initialized {
		return ErrNotInitialized
	}
	if vr.inFrame {
		return ErrAlreadyInFrame
	}
	// Wait for the previous submit before recording over its command buffer.
	if err := vr.context.InFlightFence.Wait(vr.context, 0); err != nil {
		return err
	}
	cb := vr.context.GraphicsCommandBuffer
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(true); err != nil {
		return err
	}
	vr.inFrame = true
	vr.frame = frame
	return nil
}

func (vr *VulkanRenderer) EndFrame(frame uint64) error {
	if !vr.inFrame {
		return ErrNotInFrame
	}
	vr.inFrame = false
	cb := vr.context.GraphicsCommandBuffer
	if err := cb.End(); err != nil {
		return err
	}
	if err := vr.context.InFlightFence.Reset(vr.context); err != nil {
		return err
	}
	if err := cb.Submit(vr.context.Device.GraphicsQueue, vr.context.InFlightFence); err != nil {
		return fmt.Errorf("frame %d: %w", frame, err)
	}
	return nil
}

func (vr *VulkanRenderer) image(s metadata.Surface) (*VulkanImage, error) {
	vi, ok := s.(*VulkanImage)
	if !ok {
		return nil, fmt.Errorf("surface %T was not created by the vulkan device", s)
	}
	if _, live := vr.live[vi]; !live {
		return nil, fmt.Errorf("surface %s already destroyed", vi.name)
	}
	return vi, nil
}

// Execute moves every declared input to its sampled layout and every
// declared output to its attachment layout, then runs the pass recorder.
func (vr *VulkanRenderer) Execute(inv *metadata.PassInvocation) error {
	if !vr.inFrame {
		return ErrNotInFrame
	}
	cmd := vr.context.GraphicsCommandBuffer.Handle
	for _, b := range inv.Inputs {
		vi, err := vr.image(b.Surface)
		if err != nil {
			return fmt.Errorf("%s input %s: %w", inv.Pass, b.Role, err)
		}
		vi.Transition(cmd, readLayout(vi.format))
	}
	for _, b := range inv.Outputs {
		vi, err := vr.image(b.Surface)
		if err != nil {
			return fmt.Errorf("%s output %s: %w", inv.Pass, b.Role, err)
		}
		vi.Transition(cmd, writeLayout(vi.format))
	}
	if r, ok := vr.recorders[inv.Pass]; ok {
		return r(cmd, inv)
	}
	return nil
}

// Barrier makes attachment writes of the finished pass visible to shader
// reads of every later pass.
func (vr *VulkanRenderer) Barrier(after metadata.PassID) error {
	if !vr.inFrame {
		return ErrNotInFrame
	}
	barrier := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
	}
	vk.CmdPipelineBarrier(vr.context.GraphicsCommandBuffer.Handle,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit|vk.PipelineStageLateFragmentTestsBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		0, 1, []vk.MemoryBarrier{barrier}, 0, nil, 0, nil)
	core.LogDebug("barrier after %s", after)
	return nil
}

// record runs fn on the frame command buffer, or on a single use buffer
// that is submitted and waited on when no frame is open.
func (vr *VulkanRenderer) record(fn func(cmd vk.CommandBuffer)) error {
	if !vr.initialized {
		return ErrNotInitialized
	}
	if vr.inFrame {
		fn(vr.context.GraphicsCommandBuffer.Handle)
		return nil
	}
	pool := vr.context.Device.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(vr.context, pool)
	if err != nil {
		return err
	}
	fn(cb.Handle)
	return cb.EndSingleUse(vr.context, pool, vr.context.Device.GraphicsQueue)
}

func (vr *VulkanRenderer) Clear(surface metadata.Surface, colour hmath.Vec4) error {
	vi, err := vr.image(surface)
	if err != nil {
		return err
	}
	return vr.record(func(cmd vk.CommandBuffer) {
		vi.Transition(cmd, vk.ImageLayoutTransferDstOptimal)
		ranges := []vk.ImageSubresourceRange{wholeRange(vi.format)}
		if vi.format.IsDepth() {
			value := vk.ClearDepthStencilValue{Depth: colour.X}
			vk.CmdClearDepthStencilImage(cmd, vi.Handle, vi.Layout, &value, 1, ranges)
			return
		}
		var value vk.ClearColorValue
		rgba := (*[4]float32)(unsafe.Pointer(&value))
		rgba[0], rgba[1], rgba[2], rgba[3] = colour.X, colour.Y, colour.Z, colour.W
		vk.CmdClearColorImage(cmd, vi.Handle, vi.Layout, &value, 1, ranges)
	})
}

// Blit copies src into dst, scaling when the extents differ.
func (vr *VulkanRenderer) Blit(src, dst metadata.Surface) error {
	s, err := vr.image(src)
	if err != nil {
		return err
	}
	t, err := vr.image(dst)
	if err != nil {
		return err
	}
	filter := vk.FilterLinear
	if s.format.IsDepth() || (s.width == t.width && s.height == t.height) {
		filter = vk.FilterNearest
	}
	region := vk.ImageBlit{
		SrcSubresource: wholeLayers(s.format),
		SrcOffsets:     [2]vk.Offset3D{{}, {X: int32(s.width), Y: int32(s.height), Z: 1}},
		DstSubresource: wholeLayers(t.format),
		DstOffsets:     [2]vk.Offset3D{{}, {X: int32(t.width), Y: int32(t.height), Z: 1}},
	}
	return vr.record(func(cmd vk.CommandBuffer) {
		s.Transition(cmd, vk.ImageLayoutTransferSrcOptimal)
		t.Transition(cmd, vk.ImageLayoutTransferDstOptimal)
		vk.CmdBlitImage(cmd, s.Handle, s.Layout, t.Handle, t.Layout, 1, []vk.ImageBlit{region}, filter)
	})
}

// LiveSurfaces is the number of surfaces not yet destroyed.
func (vr *VulkanRenderer) LiveSurfaces() int {
	return len(vr.live)
}

// MemoryInUse is the device memory bound to live surfaces.
func (vr *VulkanRenderer) MemoryInUse() uint64 {
	return vr.used
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
