package passes

import (
	"fmt"

	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
	"github.com/spaghettifunk/hybrid/engine/renderer/targets"
)

// SceneInput flags which parts of the scene a pass reads.
type SceneInput uint8

const (
	SceneCamera SceneInput = 1 << iota
	SceneGeometry
	SceneLights
	SceneProbes
	SceneSky
)

// Unit is one compiled pass of a frame. Units are immutable once built
// and belong to exactly one configuration epoch.
type Unit struct {
	ID      metadata.PassID
	Program string
	Scene   SceneInput
	Inputs  []metadata.Binding
	Outputs []metadata.Binding
	Params  any
	Epoch   uint64
}

func (u *Unit) String() string {
	return fmt.Sprintf("%s(%s)@%d", u.ID, u.Program, u.Epoch)
}

// NeedsBarrier reports whether later passes sample what this unit wrote
// and so must wait for it.
func (u *Unit) NeedsBarrier() bool {
	return u.ID == metadata.PassShadow
}

// ResolveBinding finds the surface behind a binding for the current frame.
func ResolveBinding(b metadata.Binding, pool *targets.Pool, ring *targets.Ring) (metadata.Surface, error) {
	h := b.Handle
	switch b.Source {
	case metadata.SourceRingActive, metadata.SourceRingHistory:
		if ring == nil || !ring.Bound() {
			return nil, fmt.Errorf("%s binding on an unbound history ring", b.Role)
		}
		ft := ring.Active()
		if b.Source == metadata.SourceRingHistory {
			ft = ring.History()
		}
		var ok bool
		if h, ok = ft.Attachment(b.Role); !ok {
			return nil, fmt.Errorf("history bundle %s has no %s attachment", ft.Name, b.Role)
		}
	}
	return pool.Resolve(h)
}

func resolveAll(bindings []metadata.Binding, pool *targets.Pool, ring *targets.Ring) ([]metadata.BoundSurface, error) {
	out := make([]metadata.BoundSurface, 0, len(bindings))
	for _, b := range bindings {
		s, err := ResolveBinding(b, pool, ring)
		if err != nil {
			return nil, err
		}
		out = append(out, metadata.BoundSurface{Role: b.Role, Source: b.Source, Surface: s})
	}
	return out, nil
}

// Invocation resolves the unit's bindings and attaches the scene data it
// declared. Nothing else of the scene is handed to the device.
func (u *Unit) Invocation(frame uint64, scene metadata.Scene, pool *targets.Pool, ring *targets.Ring) (*metadata.PassInvocation, error) {
	inputs, err := resolveAll(u.Inputs, pool, ring)
	if err != nil {
		return nil, fmt.Errorf("%s inputs: %w", u.ID, err)
	}
	outputs, err := resolveAll(u.Outputs, pool, ring)
	if err != nil {
		return nil, fmt.Errorf("%s outputs: %w", u.ID, err)
	}
	inv := &metadata.PassInvocation{
		Pass:    u.ID,
		Program: u.Program,
		Frame:   frame,
		Epoch:   u.Epoch,
		Inputs:  inputs,
		Outputs: outputs,
		Params:  u.Params,
	}
	if ring != nil {
		inv.HistoryValid = ring.HistoryValid()
	}
	if scene == nil {
		return inv, nil
	}
	if u.Scene&SceneCamera != 0 {
		inv.Camera = scene.ActiveCamera()
	}
	if u.Scene&SceneGeometry != 0 {
		inv.Drawables = scene.Drawables()
	}
	if u.Scene&SceneLights != 0 {
		inv.Lights = scene.Lights()
	}
	if u.Scene&SceneProbes != 0 {
		inv.Probes = scene.LightProbes()
	}
	if u.Scene&SceneSky != 0 {
		if sp, ok := scene.(metadata.SkyProvider); ok {
			if sky, ok := sp.Sky(); ok {
				inv.Sky = &sky
			}
		}
	}
	return inv, nil
}
