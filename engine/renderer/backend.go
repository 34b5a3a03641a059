package renderer

import (
	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

// Device is the GPU submission backend. All calls come from the single
// control goroutine that drives the frame.
type Device interface {
	Initialize(appName string) error
	Shutdown() error

	CreateSurface(desc metadata.AttachmentDesc) (metadata.Surface, error)
	DestroySurface(surface metadata.Surface)

	BeginFrame(frame uint64) error
	EndFrame(frame uint64) error

	// Execute submits one pass. The device may only touch the surfaces
	// bound in the invocation.
	Execute(inv *metadata.PassInvocation) error
	// Barrier makes every write of the given pass visible to sampled reads
	// in the passes submitted after it.
	Barrier(after metadata.PassID) error

	Clear(surface metadata.Surface, colour math.Vec4) error
	Blit(src, dst metadata.Surface) error
}
