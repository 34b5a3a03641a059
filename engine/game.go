package engine

import (
	"github.com/spaghettifunk/hybrid/engine/systems"
)

// Game supplies the scene and reacts to the frame loop. Every hook is
// optional and runs on the render goroutine.
type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

// Initialize receives the orchestrator once the device is up. Scenes are
// loaded by staging them on its ModeController.
type Initialize func(renderer *systems.RendererSystem) error
type Update func(deltaTime float64, frame uint64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
