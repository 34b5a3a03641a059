package platform

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/hybrid/engine/core"
)

func init() {
	// GLFW calls must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the GLFW library. The renderer never opens a window, it
// only needs GLFW to locate the Vulkan loader.
type Platform struct {
	started   bool
	startTime float64
}

func New() *Platform {
	return &Platform{}
}

func (p *Platform) Startup() error {
	if p.started {
		return nil
	}
	if err := glfw.Init(); err != nil {
		core.LogWarn("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		core.LogWarn("glfw found no vulkan loader")
		return core.ErrDeviceNotAvailable
	}
	p.started = true
	p.startTime = glfw.GetTime()
	return nil
}

// InstanceProcAddr is the vkGetInstanceProcAddr resolved by GLFW, or nil
// when the platform was not started.
func (p *Platform) InstanceProcAddr() unsafe.Pointer {
	if !p.started {
		return nil
	}
	return glfw.GetVulkanGetInstanceProcAddress()
}

// Uptime is the number of seconds since Startup.
func (p *Platform) Uptime() float64 {
	if !p.started {
		return 0
	}
	return glfw.GetTime() - p.startTime
}

func (p *Platform) Started() bool {
	return p.started
}

func (p *Platform) Shutdown() error {
	if p.started {
		glfw.Terminate()
		p.started = false
	}
	return nil
}
