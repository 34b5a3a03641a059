package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

type Window struct {
	Width       uint32     `toml:"width"`
	Height      uint32     `toml:"height"`
	ClearColour [4]float32 `toml:"clear_colour"`
}

type Pipeline struct {
	Antialiasing     metadata.AntialiasingMode `toml:"antialiasing"`
	AmbientOcclusion bool                      `toml:"ambient_occlusion"`
	Sky              bool                      `toml:"sky"`
}

type Engine struct {
	// Backend is "software" or "vulkan".
	Backend string `toml:"backend"`
	// Frames to render before exiting. Zero runs until interrupted.
	Frames      uint64 `toml:"frames"`
	LogLevel    string `toml:"log_level"`
	CapturePath string `toml:"capture_path"`
	// Workers shading rows on the software backend. Zero uses every CPU.
	Workers int `toml:"workers"`
}

// Config is the TOML document the engine starts from and watches.
type Config struct {
	Window   Window                    `toml:"window"`
	Pipeline Pipeline                  `toml:"pipeline"`
	Shadow   metadata.ShadowSettings   `toml:"shadow"`
	ToneMap  metadata.ToneMapSettings  `toml:"tonemap"`
	AO       metadata.AOSettings       `toml:"ao"`
	Temporal metadata.TemporalSettings `toml:"temporal"`
	Engine   Engine                    `toml:"engine"`
}

func Default() *Config {
	return &Config{
		Window: Window{
			Width:       1280,
			Height:      720,
			ClearColour: [4]float32{0, 0, 0.2, 1},
		},
		Pipeline: Pipeline{
			Antialiasing: metadata.AntialiasingTemporal,
			Sky:          true,
		},
		Shadow:   metadata.DefaultShadowSettings(),
		ToneMap:  metadata.DefaultToneMapSettings(),
		AO:       metadata.DefaultAOSettings(),
		Temporal: metadata.DefaultTemporalSettings(),
		Engine: Engine{
			Backend:  renderer.Software.String(),
			Frames:   0,
			LogLevel: "info",
		},
	}
}

// Parse decodes data over the defaults, so a file only needs the keys it changes.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Config) Save(path string) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, buffer.Bytes(), 0644)
}

// Validate rejects values nothing can render with and clamps the rest
// into their supported ranges.
func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window %dx%d: %w", c.Window.Width, c.Window.Height, core.ErrInvalidExtent)
	}
	if _, err := renderer.ParseRendererType(c.Engine.Backend); err != nil {
		return err
	}
	if _, err := core.ParseLogLevel(c.Engine.LogLevel); err != nil {
		return err
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine workers %d: must not be negative", c.Engine.Workers)
	}
	for i := range c.Window.ClearColour {
		c.Window.ClearColour[i] = math.Saturate(c.Window.ClearColour[i])
	}
	c.Shadow = c.Shadow.Sanitized()
	c.ToneMap.Exposure = math.Clamp(c.ToneMap.Exposure, 0.01, 16)
	c.AO.Radius = math.Clamp(c.AO.Radius, 0, 8)
	c.AO.SampleCount = math.Clamp(c.AO.SampleCount, 1, 64)
	c.AO.Strength = math.Saturate(c.AO.Strength)
	c.Temporal.Alpha = math.Clamp(c.Temporal.Alpha, 0.01, 1)
	return nil
}

func (c *Config) PipelineConfig() metadata.PipelineConfig {
	return metadata.PipelineConfig{
		Antialiasing:     c.Pipeline.Antialiasing,
		AmbientOcclusion: c.Pipeline.AmbientOcclusion,
		Sky:              c.Pipeline.Sky,
	}
}

func (c *Config) PassSettings() metadata.PassSettings {
	return metadata.PassSettings{
		Shadow:   c.Shadow,
		ToneMap:  c.ToneMap,
		AO:       c.AO,
		Temporal: c.Temporal,
	}
}

func (c *Config) ClearColour() math.Vec4 {
	cc := c.Window.ClearColour
	return math.NewVec4Create(cc[0], cc[1], cc[2], cc[3])
}

func (c *Config) Backend() renderer.RendererType {
	t, _ := renderer.ParseRendererType(c.Engine.Backend)
	return t
}

// Stager receives the pipeline changes found between two configs.
type Stager interface {
	RequestResize(width, height uint32) error
	SetAntialiasing(mode metadata.AntialiasingMode) error
	SetAmbientOcclusion(enabled bool) error
	SetSky(enabled bool) error
	SetShadowSettings(s metadata.ShadowSettings) error
	SetToneMapSettings(s metadata.ToneMapSettings) error
	SetAOSettings(s metadata.AOSettings) error
	SetTemporalSettings(s metadata.TemporalSettings) error
}

// Stage hands every difference between old and updated to s and
// returns how many changes were staged. Engine settings are not live.
func Stage(old, updated *Config, s Stager) (int, error) {
	var staged []func() error
	if old.Window.Width != updated.Window.Width || old.Window.Height != updated.Window.Height {
		staged = append(staged, func() error { return s.RequestResize(updated.Window.Width, updated.Window.Height) })
	}
	if old.Pipeline.Antialiasing != updated.Pipeline.Antialiasing {
		staged = append(staged, func() error { return s.SetAntialiasing(updated.Pipeline.Antialiasing) })
	}
	if old.Pipeline.AmbientOcclusion != updated.Pipeline.AmbientOcclusion {
		staged = append(staged, func() error { return s.SetAmbientOcclusion(updated.Pipeline.AmbientOcclusion) })
	}
	if old.Pipeline.Sky != updated.Pipeline.Sky {
		staged = append(staged, func() error { return s.SetSky(updated.Pipeline.Sky) })
	}
	if old.Shadow != updated.Shadow {
		staged = append(staged, func() error { return s.SetShadowSettings(updated.Shadow) })
	}
	if old.ToneMap != updated.ToneMap {
		staged = append(staged, func() error { return s.SetToneMapSettings(updated.ToneMap) })
	}
	if old.AO != updated.AO {
		staged = append(staged, func() error { return s.SetAOSettings(updated.AO) })
	}
	if old.Temporal != updated.Temporal {
		staged = append(staged, func() error { return s.SetTemporalSettings(updated.Temporal) })
	}
	for i, fn := range staged {
		if err := fn(); err != nil {
			return i, err
		}
	}
	return len(staged), nil
}
