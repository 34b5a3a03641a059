package testbed

import (
	"github.com/spaghettifunk/hybrid/engine"
	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
	"github.com/spaghettifunk/hybrid/engine/scene"
	"github.com/spaghettifunk/hybrid/engine/systems"
)

// TestGame renders the demo scene with a slowly turning camera. With a
// cycle period set it also walks through every antialiasing mode, the
// way a settings menu would.
type TestGame struct {
	*engine.Game
}

type gameState struct {
	scene *scene.Static
	modes *systems.ModeController

	// cyclePeriod is the number of frames between antialiasing switches.
	// Zero keeps the configured mode.
	cyclePeriod uint64
	cycle       int
	switches    int
}

var antialiasingCycle = []metadata.AntialiasingMode{
	metadata.AntialiasingNone,
	metadata.AntialiasingTemporal,
	metadata.AntialiasingSpatial,
}

func NewTestGame(configPath string, cyclePeriod uint64) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				Name:       "Hybrid Renderer Testbed",
				ConfigPath: configPath,
			},
			State: &gameState{cyclePeriod: cyclePeriod},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(renderer *systems.RendererSystem) error {
	core.LogInfo("initializing testbed...")
	state := g.state()
	width, height := renderer.Size()
	state.scene = scene.Demo(width, height)
	state.modes = renderer.Modes()
	return state.modes.SetScene(state.scene)
}

func (g *TestGame) Update(deltaTime float64, frame uint64) error {
	state := g.state()
	if cam, ok := state.scene.ActiveCamera().(*scene.Camera); ok {
		cam.Yaw(float32(0.25 * deltaTime))
	}
	if state.cyclePeriod == 0 || frame%state.cyclePeriod != 0 {
		return nil
	}
	state.cycle = (state.cycle + 1) % len(antialiasingCycle)
	state.switches++
	mode := antialiasingCycle[state.cycle]
	core.LogInfo("frame %d: switching antialiasing to %s", frame, mode)
	return state.modes.SetAntialiasing(mode)
}

func (g *TestGame) OnResize(width, height uint32) error {
	if cam, ok := g.state().scene.ActiveCamera().(*scene.Camera); ok {
		cam.SetAspect(width, height)
	}
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed after %d antialiasing switch(es)", g.state().switches)
	return nil
}
