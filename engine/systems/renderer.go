package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
	"github.com/spaghettifunk/hybrid/engine/renderer/passes"
	"github.com/spaghettifunk/hybrid/engine/renderer/targets"
)

type State uint8

const (
	// No scene is loaded and no targets are allocated.
	StateUninitialized State = iota
	// Targets and pass units match the current configuration.
	StateConfigured
	// A frame is being submitted.
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateRendering:
		return "rendering"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// FrameReport describes the most recent frame.
type FrameReport struct {
	Frame        uint64
	Epoch        uint64
	Passes       []metadata.PassID
	Width        uint32
	Height       uint32
	Antialiasing metadata.AntialiasingMode
	// Fallback is set when no scene was loaded and present was only cleared.
	Fallback bool
	Swapped  bool
}

type RendererSystemConfig struct {
	AppName     string
	Width       uint32
	Height      uint32
	Pipeline    metadata.PipelineConfig
	Settings    metadata.PassSettings
	ClearColour math.Vec4
}

// RendererSystem drives the per-frame pass sequence. It owns the target
// pool, the history ring, and the compiled pass units, and is only ever
// called from one goroutine. Other goroutines talk to it through its
// ModeController.
type RendererSystem struct {
	device renderer.Device
	modes  *ModeController
	pool   *targets.Pool
	ring   *targets.Ring
	seq    *passes.Sequence

	appName     string
	state       State
	scene       metadata.Scene
	width       uint32
	height      uint32
	pipeline    metadata.PipelineConfig
	settings    metadata.PassSettings
	clearColour math.Vec4

	frame   uint64
	clock   *core.Clock
	metrics *core.Metrics
	last    FrameReport
}

func NewRendererSystem(device renderer.Device, modes *ModeController, config *RendererSystemConfig) (*RendererSystem, error) {
	if device == nil {
		return nil, core.ErrDeviceNotAvailable
	}
	if config.Width == 0 || config.Height == 0 {
		err := fmt.Errorf("func NewRendererSystem - %dx%d: %w", config.Width, config.Height, core.ErrInvalidExtent)
		core.LogError(err.Error())
		return nil, err
	}
	if modes == nil {
		modes = NewModeController(DefaultChangeQueueCapacity)
	}
	pool := targets.NewPool(device)
	return &RendererSystem{
		device:      device,
		modes:       modes,
		pool:        pool,
		ring:        targets.NewRing(pool),
		appName:     config.AppName,
		state:       StateUninitialized,
		width:       config.Width,
		height:      config.Height,
		pipeline:    config.Pipeline,
		settings:    config.Settings,
		clearColour: config.ClearColour,
		clock:       core.NewClock(),
		metrics:     core.NewMetrics(),
	}, nil
}

func (r *RendererSystem) Initialize() error {
	if err := r.device.Initialize(r.appName); err != nil {
		err = fmt.Errorf("failed to initialize device: %w", err)
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (r *RendererSystem) Shutdown() error {
	r.releaseTargets()
	r.scene = nil
	r.state = StateUninitialized
	return r.device.Shutdown()
}

func (r *RendererSystem) Modes() *ModeController            { return r.modes }
func (r *RendererSystem) State() State                      { return r.state }
func (r *RendererSystem) Pipeline() metadata.PipelineConfig { return r.pipeline }
func (r *RendererSystem) Settings() metadata.PassSettings   { return r.settings }
func (r *RendererSystem) Metrics() *core.Metrics            { return r.metrics }
func (r *RendererSystem) Ring() *targets.Ring               { return r.ring }
func (r *RendererSystem) Pool() *targets.Pool               { return r.pool }
func (r *RendererSystem) LastFrame() FrameReport            { return r.last }

// Size is the extent of the live target set, or the requested extent when
// nothing is allocated yet.
func (r *RendererSystem) Size() (uint32, uint32) {
	return r.width, r.height
}

// Sequence is the compiled pass list, nil while unconfigured.
func (r *RendererSystem) Sequence() *passes.Sequence {
	return r.seq
}

func (r *RendererSystem) releaseTargets() {
	r.seq = nil
	r.pool.Release()
	r.ring.Bind(&targets.TargetSet{})
}

// configure allocates targets for the requested size and mode. A mode
// that cannot be allocated is retried without antialiasing.
func (r *RendererSystem) configure(width, height uint32, mode metadata.AntialiasingMode) error {
	set, err := r.pool.Configure(width, height, mode)
	if err != nil && mode != metadata.AntialiasingNone && (r.pool.Current() == nil || r.pool.Current().Antialiasing != mode) {
		core.LogWarn("antialiasing %s unavailable at %dx%d, falling back to none: %s", mode, width, height, err)
		mode = metadata.AntialiasingNone
		set, err = r.pool.Configure(width, height, mode)
	}
	if err != nil {
		return err
	}
	r.width, r.height = width, height
	r.pipeline.Antialiasing = mode
	r.ring.Bind(set)
	if err := r.ring.Reset(); err != nil {
		return err
	}
	r.rebuild()
	return nil
}

// compiled is the configuration the units are built from. Sky only runs
// when the scene carries a sky asset.
func (r *RendererSystem) compiled() metadata.PipelineConfig {
	c := r.pipeline
	if c.Sky {
		sp, ok := r.scene.(metadata.SkyProvider)
		if !ok {
			c.Sky = false
		} else if _, has := sp.Sky(); !has {
			c.Sky = false
		}
	}
	return c
}

func (r *RendererSystem) rebuild() {
	set := r.pool.Current()
	if set == nil {
		r.seq = nil
		return
	}
	r.seq = passes.Build(r.compiled(), set, r.settings)
}

// applyJitter installs the sub-pixel pattern on the active camera in
// temporal mode and removes it in every other mode.
func (r *RendererSystem) applyJitter() {
	if r.scene == nil {
		return
	}
	cam, ok := r.scene.ActiveCamera().(metadata.Jitterable)
	if !ok {
		return
	}
	if r.pipeline.Antialiasing != metadata.AntialiasingTemporal {
		cam.SetJitter(nil)
		return
	}
	pattern, err := metadata.NewJitterPattern(r.settings.Temporal.SamplePattern, r.width, r.height)
	if err != nil {
		core.LogWarn("camera jitter disabled: %s", err)
		cam.SetJitter(nil)
		return
	}
	cam.SetJitter(pattern)
}

// applyChanges folds every staged change into the live configuration.
// Changes land here, between frames, and never while one is submitted.
func (r *RendererSystem) applyChanges() error {
	changes := r.modes.Drain()
	if len(changes) == 0 && (r.scene == nil || r.pool.Current() != nil) {
		return nil
	}

	width, height := r.width, r.height
	pipeline := r.pipeline
	rebuild, sceneChanged := false, false
	for _, c := range changes {
		switch c.Kind {
		case ChangeResize:
			width, height = c.Width, c.Height
		case ChangeAntialiasing:
			pipeline.Antialiasing = c.Antialiasing
		case ChangeAmbientOcclusion:
			pipeline.AmbientOcclusion = c.Enabled
		case ChangeSky:
			pipeline.Sky = c.Enabled
		case ChangeShadowSettings:
			r.settings.Shadow = c.Shadow.Sanitized()
			rebuild = true
		case ChangeToneMapSettings:
			r.settings.ToneMap = c.ToneMap
			rebuild = true
		case ChangeAOSettings:
			r.settings.AO = c.AO
			rebuild = true
		case ChangeTemporalSettings:
			r.settings.Temporal = c.Temporal
			rebuild = true
		case ChangeScene:
			sceneChanged = true
			r.scene = c.Scene
		}
		core.LogDebug("applying staged %s change", c.Kind)
	}

	if r.scene == nil {
		if sceneChanged && r.state != StateUninitialized {
			core.LogInfo("scene unloaded, releasing render targets")
		}
		r.releaseTargets()
		r.width, r.height = width, height
		r.pipeline = pipeline
		r.state = StateUninitialized
		return nil
	}

	// toggles never touch the pool
	rebuild = rebuild || pipeline.AmbientOcclusion != r.pipeline.AmbientOcclusion || pipeline.Sky != r.pipeline.Sky
	r.pipeline.AmbientOcclusion = pipeline.AmbientOcclusion
	r.pipeline.Sky = pipeline.Sky

	current := r.pool.Current()
	if current == nil || width != current.Width || height != current.Height || r.pipeline.NeedsResources(pipeline) {
		if err := r.configure(width, height, pipeline.Antialiasing); err != nil {
			err = fmt.Errorf("reconfigure %dx%d %s: %w", width, height, pipeline.Antialiasing, err)
			core.LogError(err.Error())
			if current != nil {
				// keep rendering on the previous set, the pending size is dropped
				r.width, r.height = current.Width, current.Height
				r.pipeline.Antialiasing = current.Antialiasing
				r.rebuild()
				r.applyJitter()
			}
			return err
		}
		r.applyJitter()
		r.state = StateConfigured
		return nil
	}

	if sceneChanged {
		if err := r.ring.Reset(); err != nil {
			return err
		}
		rebuild = true
	}
	if rebuild {
		r.rebuild()
	}
	r.applyJitter()
	r.state = StateConfigured
	return nil
}

// RenderFrame renders one frame into present. Staged changes are applied
// first. Without a scene present is cleared to the clear colour and no
// pass runs.
func (r *RendererSystem) RenderFrame(present metadata.Surface) error {
	if r.state == StateRendering {
		return core.ErrFrameInProgress
	}
	if err := r.applyChanges(); err != nil {
		return err
	}

	r.clock.Start()
	r.frame++
	frame := r.frame

	if r.scene == nil || r.seq == nil {
		return r.renderFallback(frame, present)
	}
	if r.seq.Config != r.compiled() {
		// the scene gained or lost its sky asset
		r.rebuild()
	}
	if cam, ok := r.scene.ActiveCamera().(metadata.Jitterable); ok && cam.Jitter() != nil {
		cam.SetJitterFrame(frame)
	}

	r.state = StateRendering
	if err := r.device.BeginFrame(frame); err != nil {
		r.state = StateConfigured
		return r.dropFrame(frame, err)
	}
	for i := range r.seq.Units {
		u := &r.seq.Units[i]
		inv, err := u.Invocation(frame, r.scene, r.pool, r.ring)
		if err != nil {
			return r.abortFrame(frame, err)
		}
		if err := r.device.Execute(inv); err != nil {
			return r.abortFrame(frame, fmt.Errorf("%s: %w", u.ID, err))
		}
		if u.NeedsBarrier() {
			if err := r.device.Barrier(u.ID); err != nil {
				return r.abortFrame(frame, err)
			}
		}
	}
	final, err := passes.ResolveBinding(r.seq.Final, r.pool, r.ring)
	if err != nil {
		return r.abortFrame(frame, err)
	}
	if err := r.device.Blit(final, present); err != nil {
		return r.abortFrame(frame, err)
	}
	if err := r.device.EndFrame(frame); err != nil {
		r.state = StateConfigured
		return r.dropFrame(frame, err)
	}

	swapped := false
	if r.pipeline.Antialiasing == metadata.AntialiasingTemporal {
		r.ring.Swap()
		swapped = true
	}
	r.state = StateConfigured
	r.finishFrame(FrameReport{
		Frame:        frame,
		Epoch:        r.seq.Epoch,
		Passes:       r.seq.IDs(),
		Width:        r.width,
		Height:       r.height,
		Antialiasing: r.pipeline.Antialiasing,
		Swapped:      swapped,
	})
	return nil
}

func (r *RendererSystem) renderFallback(frame uint64, present metadata.Surface) error {
	if err := r.device.BeginFrame(frame); err != nil {
		return err
	}
	if err := r.device.Clear(present, r.clearColour); err != nil {
		if endErr := r.device.EndFrame(frame); endErr != nil {
			err = errors.Join(err, endErr)
		}
		return err
	}
	if err := r.device.EndFrame(frame); err != nil {
		return err
	}
	r.finishFrame(FrameReport{
		Frame:        frame,
		Width:        present.Width(),
		Height:       present.Height(),
		Antialiasing: r.pipeline.Antialiasing,
		Fallback:     true,
	})
	return nil
}

func (r *RendererSystem) finishFrame(report FrameReport) {
	r.clock.Update()
	r.metrics.Update(r.clock.Elapsed())
	r.clock.Stop()
	r.last = report
}

// abortFrame closes the device frame before dropping it.
func (r *RendererSystem) abortFrame(frame uint64, cause error) error {
	if err := r.device.EndFrame(frame); err != nil {
		cause = errors.Join(cause, err)
	}
	r.state = StateConfigured
	return r.dropFrame(frame, cause)
}

// dropFrame discards the frame. The history may hold a partial result, so
// the ring is reset and the next frame starts without temporal history.
func (r *RendererSystem) dropFrame(frame uint64, cause error) error {
	if err := r.ring.Reset(); err != nil {
		cause = errors.Join(cause, err)
	}
	err := fmt.Errorf("frame %d: %w: %w", frame, core.ErrFrameDropped, cause)
	core.LogWarn(err.Error())
	return err
}
