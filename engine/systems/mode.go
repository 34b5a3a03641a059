package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/hybrid/engine/containers"
	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

const DefaultChangeQueueCapacity = 64

type ChangeKind uint8

const (
	ChangeResize ChangeKind = iota
	ChangeAntialiasing
	ChangeAmbientOcclusion
	ChangeSky
	ChangeShadowSettings
	ChangeToneMapSettings
	ChangeAOSettings
	ChangeTemporalSettings
	ChangeScene
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeResize:
		return "resize"
	case ChangeAntialiasing:
		return "antialiasing"
	case ChangeAmbientOcclusion:
		return "ambient-occlusion"
	case ChangeSky:
		return "sky"
	case ChangeShadowSettings:
		return "shadow-settings"
	case ChangeToneMapSettings:
		return "tonemap-settings"
	case ChangeAOSettings:
		return "ao-settings"
	case ChangeTemporalSettings:
		return "temporal-settings"
	case ChangeScene:
		return "scene"
	}
	return fmt.Sprintf("change(%d)", uint8(k))
}

// Change is one staged request. Only the fields matching Kind are meaningful.
type Change struct {
	Kind ChangeKind

	Width  uint32
	Height uint32

	Antialiasing metadata.AntialiasingMode
	Enabled      bool

	Shadow   metadata.ShadowSettings
	ToneMap  metadata.ToneMapSettings
	AO       metadata.AOSettings
	Temporal metadata.TemporalSettings

	Scene metadata.Scene
}

// ModeController stages configuration changes from any goroutine. The
// renderer drains them at the next frame boundary, so a frame always
// completes on the configuration it started with.
type ModeController struct {
	mu    sync.Mutex
	queue *containers.RingQueue[Change]
}

func NewModeController(capacity int) *ModeController {
	if capacity <= 0 {
		capacity = DefaultChangeQueueCapacity
	}
	return &ModeController{queue: containers.NewRingQueue[Change](capacity)}
}

func (m *ModeController) stage(c Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.queue.Enqueue(c); err != nil {
		return fmt.Errorf("stage %s: %w", c.Kind, core.ErrQueueFull)
	}
	return nil
}

// Drain hands every staged change to the caller, oldest first.
func (m *ModeController) Drain() []Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Drain()
}

// Pending is the number of staged changes not yet applied.
func (m *ModeController) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

func (m *ModeController) RequestResize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("resize %dx%d: %w", width, height, core.ErrInvalidExtent)
	}
	return m.stage(Change{Kind: ChangeResize, Width: width, Height: height})
}

func (m *ModeController) SetAntialiasing(mode metadata.AntialiasingMode) error {
	return m.stage(Change{Kind: ChangeAntialiasing, Antialiasing: mode})
}

func (m *ModeController) SetAmbientOcclusion(enabled bool) error {
	return m.stage(Change{Kind: ChangeAmbientOcclusion, Enabled: enabled})
}

func (m *ModeController) SetSky(enabled bool) error {
	return m.stage(Change{Kind: ChangeSky, Enabled: enabled})
}

func (m *ModeController) SetShadowSettings(s metadata.ShadowSettings) error {
	return m.stage(Change{Kind: ChangeShadowSettings, Shadow: s})
}

func (m *ModeController) SetToneMapSettings(s metadata.ToneMapSettings) error {
	return m.stage(Change{Kind: ChangeToneMapSettings, ToneMap: s})
}

func (m *ModeController) SetAOSettings(s metadata.AOSettings) error {
	return m.stage(Change{Kind: ChangeAOSettings, AO: s})
}

func (m *ModeController) SetTemporalSettings(s metadata.TemporalSettings) error {
	return m.stage(Change{Kind: ChangeTemporalSettings, Temporal: s})
}

// SetScene swaps the scene. A nil scene unloads the current one.
func (m *ModeController) SetScene(scene metadata.Scene) error {
	return m.stage(Change{Kind: ChangeScene, Scene: scene})
}
