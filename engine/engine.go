package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/spaghettifunk/hybrid/engine/config"
	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/renderer"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
	"github.com/spaghettifunk/hybrid/engine/renderer/software"
	"github.com/spaghettifunk/hybrid/engine/renderer/vulkan"
	"github.com/spaghettifunk/hybrid/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// NewDevice builds the backend named in the config.
func NewDevice(cfg *config.Config) renderer.Device {
	switch cfg.Backend() {
	case renderer.Vulkan:
		return vulkan.New()
	default:
		workers := cfg.Engine.Workers
		if workers == 0 {
			workers = runtime.NumCPU()
		}
		return software.New(software.WithWorkers(workers))
	}
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *config.Config
	configPath   string

	device   renderer.Device
	renderer *systems.RendererSystem
	present  metadata.Surface
	watcher  *config.Watcher

	clock    *core.Clock
	lastTime float64

	shutdownOnce sync.Once
}

// New loads the configuration and builds the device and the frame
// orchestrator. Nothing touches the device before Initialize.
func New(g *Game) (*Engine, error) {
	return NewWithDevice(g, nil)
}

// NewWithDevice is New with a caller supplied device. A nil device is
// built from the configured backend.
func NewWithDevice(g *Game, device renderer.Device) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = &ApplicationConfig{Name: "hybrid"}
	}
	app := g.ApplicationConfig

	cfg := app.Config
	if cfg == nil && app.ConfigPath != "" {
		loaded, err := config.Load(app.ConfigPath)
		if err != nil {
			core.LogError(err.Error())
			return nil, err
		}
		cfg = loaded
	}
	if cfg == nil {
		cfg = config.Default()
	}

	level, err := core.ParseLogLevel(cfg.Engine.LogLevel)
	if err != nil {
		return nil, err
	}
	core.SetLogLevel(level)

	if device == nil {
		device = NewDevice(cfg)
	}
	rs, err := systems.NewRendererSystem(device, nil, &systems.RendererSystemConfig{
		AppName:     app.Name,
		Width:       cfg.Window.Width,
		Height:      cfg.Window.Height,
		Pipeline:    cfg.PipelineConfig(),
		Settings:    cfg.PassSettings(),
		ClearColour: cfg.ClearColour(),
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		configPath:   app.ConfigPath,
		device:       device,
		renderer:     rs,
		clock:        core.NewClock(),
	}, nil
}

func (e *Engine) Stage() Stage                      { return e.currentStage }
func (e *Engine) Config() *config.Config            { return e.config }
func (e *Engine) Device() renderer.Device           { return e.device }
func (e *Engine) Renderer() *systems.RendererSystem { return e.renderer }

// Present is the surface every frame ends in.
func (e *Engine) Present() metadata.Surface { return e.present }

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := e.renderer.Initialize(); err != nil {
		return err
	}
	if err := e.createPresent(e.config.Window.Width, e.config.Window.Height); err != nil {
		return err
	}

	if e.configPath != "" {
		w, err := config.NewWatcher(e.configPath, e.config, e.renderer.Modes())
		if err != nil {
			core.LogWarn("config reload disabled: %s", err)
		} else {
			e.watcher = w
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.renderer); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.config.Window.Width, e.config.Window.Height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized: %s backend, %dx%d, %s", e.config.Backend(), e.config.Window.Width, e.config.Window.Height, e.renderer.Pipeline())
	return nil
}

func (e *Engine) createPresent(width, height uint32) error {
	present, err := e.device.CreateSurface(metadata.AttachmentDesc{
		Name:   "present",
		Role:   metadata.AttachmentLDRColour,
		Format: metadata.FormatRGBA8Unorm,
		Width:  width,
		Height: height,
	})
	if err != nil {
		return fmt.Errorf("failed to create present surface: %w", err)
	}
	if e.present != nil {
		e.device.DestroySurface(e.present)
	}
	e.present = present
	return nil
}

// onReload follows window size changes with the present surface. The
// pipeline side of the change is already staged by the watcher.
func (e *Engine) onReload(c *config.Config) error {
	if c.Window.Width == e.present.Width() && c.Window.Height == e.present.Height() {
		return nil
	}
	if err := e.createPresent(c.Window.Width, c.Window.Height); err != nil {
		return err
	}
	if e.gameInstance.FnOnResize != nil {
		return e.gameInstance.FnOnResize(c.Window.Width, c.Window.Height)
	}
	return nil
}

// Run renders frames until ctx is done or the configured frame count is
// reached. Dropped frames and refused reconfigurations are logged and the
// loop continues.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized")
	}
	e.currentStage = EngineStageRunning

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reloads <-chan *config.Config
	var wg sync.WaitGroup
	if e.watcher != nil {
		reloads = e.watcher.Reloads()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				core.LogError("config watcher stopped: %s", err)
			}
		}()
	}
	defer wg.Wait()

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	limit := e.config.Engine.Frames
	for n := uint64(0); limit == 0 || n < limit; n++ {
		select {
		case <-ctx.Done():
			core.LogInfo("render loop stopped after %d frame(s)", n)
			return e.finish()
		case c := <-reloads:
			if err := e.onReload(c); err != nil {
				core.LogError("applying reloaded config: %s", err)
			}
		default:
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta, n+1); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				return err
			}
		}

		if err := e.renderer.RenderFrame(e.present); err != nil {
			switch {
			case errors.Is(err, core.ErrFrameDropped), errors.Is(err, core.ErrConfiguration):
				continue
			default:
				return err
			}
		}
	}
	return e.finish()
}

func (e *Engine) finish() error {
	m := e.renderer.Metrics()
	core.LogInfo("rendered %d frame(s), %.3f ms average, %.1f fps", m.Frames(), m.FrameTime(), m.FPS())
	return e.Capture(e.config.Engine.CapturePath)
}

// Capture writes the present surface to path as a BMP. Only the software
// backend keeps its pixels on the host.
func (e *Engine) Capture(path string) error {
	if path == "" || e.present == nil {
		return nil
	}
	if _, ok := e.present.(*software.Image); !ok {
		core.LogWarn("capture is only supported by the software backend")
		return nil
	}
	if err := software.WriteBMP(e.present, path); err != nil {
		return fmt.Errorf("failed to capture frame: %w", err)
	}
	core.LogInfo("captured frame to %s", path)
	return nil
}

func (e *Engine) Shutdown() error {
	var err error
	e.shutdownOnce.Do(func() {
		e.currentStage = EngineStageShuttingDown
		if e.gameInstance.FnShutdown != nil {
			if gerr := e.gameInstance.FnShutdown(); gerr != nil {
				err = gerr
			}
		}
		if e.present != nil {
			e.device.DestroySurface(e.present)
			e.present = nil
		}
		err = errors.Join(err, e.renderer.Shutdown())
		e.currentStage = EngineStageUninitialized
	})
	return err
}
