package targets

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

// Device is the part of the GPU backend the pool needs.
type Device interface {
	CreateSurface(desc metadata.AttachmentDesc) (metadata.Surface, error)
	DestroySurface(surface metadata.Surface)
	Clear(surface metadata.Surface, colour math.Vec4) error
}

type slot struct {
	generation uint32
	epoch      uint64
	surface    metadata.Surface
}

// TargetSet is every bundle of one configuration epoch.
type TargetSet struct {
	Epoch        uint64
	Width        uint32
	Height       uint32
	Antialiasing metadata.AntialiasingMode
	Targets      map[string]*metadata.FrameTarget

	handles []metadata.Handle
}

// Target returns the bundle of the given kind, or nil when the mode does not need it.
func (s *TargetSet) Target(kind string) *metadata.FrameTarget {
	if s == nil {
		return nil
	}
	return s.Targets[kind]
}

// Handles lists every distinct surface handle of the set.
func (s *TargetSet) Handles() []metadata.Handle {
	out := make([]metadata.Handle, len(s.handles))
	copy(out, s.handles)
	return out
}

// Pool owns every render-target surface. Surfaces live in an arena of
// slots; a handle stays valid only while its slot keeps the generation
// it was issued with.
type Pool struct {
	device  Device
	slots   []slot
	free    []uint32
	epoch   uint64
	current *TargetSet
}

func NewPool(device Device) *Pool {
	return &Pool{device: device}
}

// Current is the set of the live epoch, nil before the first Configure.
func (p *Pool) Current() *TargetSet {
	return p.current
}

func (p *Pool) Epoch() uint64 {
	return p.epoch
}

// Live is the number of surfaces currently owned by the pool.
func (p *Pool) Live() int {
	n := 0
	for _, s := range p.slots {
		if s.surface != nil {
			n++
		}
	}
	return n
}

type attachmentSpec struct {
	role   metadata.AttachmentRole
	format metadata.Format
	shared bool
}

type bundleSpec struct {
	kind        string
	attachments []attachmentSpec
}

// layout returns the bundles the given mode needs. The depth attachment
// is marked shared and gets a single surface per epoch.
func layout(mode metadata.AntialiasingMode) []bundleSpec {
	depth := attachmentSpec{role: metadata.AttachmentDepth, format: metadata.FormatDepth32Float, shared: true}
	gbuffer := bundleSpec{kind: metadata.TargetGBuffer, attachments: []attachmentSpec{
		{role: metadata.AttachmentHDRColour, format: metadata.FormatRGBA16Float},
		{role: metadata.AttachmentNormal, format: metadata.FormatRGBA16Float},
	}}
	if mode == metadata.AntialiasingTemporal {
		gbuffer.attachments = append(gbuffer.attachments, attachmentSpec{role: metadata.AttachmentMotionVector, format: metadata.FormatRG16Float})
	}
	gbuffer.attachments = append(gbuffer.attachments, depth)

	ldr := func(kind string) bundleSpec {
		return bundleSpec{kind: kind, attachments: []attachmentSpec{{role: metadata.AttachmentLDRColour, format: metadata.FormatRGBA8Unorm}}}
	}
	bundles := []bundleSpec{
		gbuffer,
		{kind: metadata.TargetShadow, attachments: []attachmentSpec{
			{role: metadata.AttachmentVisibility, format: metadata.FormatR16Float},
			depth,
		}},
		ldr(metadata.TargetToneMap),
		ldr(metadata.TargetAO),
	}
	switch mode {
	case metadata.AntialiasingSpatial:
		bundles = append(bundles, ldr(metadata.TargetResolve))
	case metadata.AntialiasingTemporal:
		bundles = append(bundles, ldr(metadata.TargetHistory0), ldr(metadata.TargetHistory1))
	}
	return bundles
}

func (p *Pool) acquire(epoch uint64, surface metadata.Surface) metadata.Handle {
	var idx uint32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		idx = uint32(len(p.slots))
		p.slots = append(p.slots, slot{})
	}
	s := &p.slots[idx]
	s.generation++
	s.epoch = epoch
	s.surface = surface
	return metadata.Handle{Index: idx, Generation: s.generation}
}

func (p *Pool) release(h metadata.Handle) {
	if int(h.Index) >= len(p.slots) {
		return
	}
	s := &p.slots[h.Index]
	if s.generation != h.Generation || s.surface == nil {
		return
	}
	p.device.DestroySurface(s.surface)
	s.surface = nil
	s.generation++
	p.free = append(p.free, h.Index)
}

func (p *Pool) releaseAll(handles []metadata.Handle) {
	for _, h := range handles {
		p.release(h)
	}
}

// Configure builds the full set of bundles for the given size and mode
// and makes it current. Every new surface is created before anything of
// the previous set is released; on failure the partial set is destroyed
// and the previous set stays current.
func (p *Pool) Configure(width, height uint32, mode metadata.AntialiasingMode) (*TargetSet, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("configure %dx%d: %w", width, height, core.ErrInvalidExtent)
	}
	epoch := p.epoch + 1
	set := &TargetSet{
		Epoch:        epoch,
		Width:        width,
		Height:       height,
		Antialiasing: mode,
		Targets:      make(map[string]*metadata.FrameTarget),
	}
	var depth metadata.Handle
	id := uuid.New().String()

	for _, b := range layout(mode) {
		ft := &metadata.FrameTarget{
			Name:   fmt.Sprintf("%s-%s", b.kind, id),
			Kind:   b.kind,
			Width:  width,
			Height: height,
			Epoch:  epoch,
		}
		for _, a := range b.attachments {
			if a.shared && depth.IsValid() {
				ft.Attachments = append(ft.Attachments, metadata.AttachmentRef{Role: a.role, Handle: depth})
				continue
			}
			name := fmt.Sprintf("%s.%s", ft.Name, a.role)
			if a.shared {
				name = fmt.Sprintf("%s-%s", a.role, id)
			}
			surface, err := p.device.CreateSurface(metadata.AttachmentDesc{
				Name:   name,
				Role:   a.role,
				Format: a.format,
				Width:  width,
				Height: height,
			})
			if err != nil {
				p.releaseAll(set.handles)
				return nil, fmt.Errorf("%w: %s %dx%d (%s): %w", core.ErrConfiguration, name, width, height, mode, err)
			}
			h := p.acquire(epoch, surface)
			set.handles = append(set.handles, h)
			if a.shared {
				depth = h
			}
			ft.Attachments = append(ft.Attachments, metadata.AttachmentRef{Role: a.role, Handle: h})
		}
		set.Targets[b.kind] = ft
	}

	if p.current != nil {
		p.releaseAll(p.current.handles)
	}
	p.current = set
	p.epoch = epoch
	core.LogDebug("target pool configured epoch %d: %dx%d aa=%s, %d surfaces", epoch, width, height, mode, len(set.handles))
	return set, nil
}

// Resolve returns the surface behind a handle of the live epoch.
func (p *Pool) Resolve(h metadata.Handle) (metadata.Surface, error) {
	if !h.IsValid() || int(h.Index) >= len(p.slots) {
		return nil, fmt.Errorf("handle %s: %w", h, core.ErrStaleHandle)
	}
	s := p.slots[h.Index]
	if s.generation != h.Generation || s.surface == nil {
		return nil, fmt.Errorf("handle %s (slot generation %d): %w", h, s.generation, core.ErrStaleHandle)
	}
	return s.surface, nil
}

// Release frees every surface of the current set.
func (p *Pool) Release() {
	if p.current == nil {
		return
	}
	p.releaseAll(p.current.handles)
	p.current = nil
}
