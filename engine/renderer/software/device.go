package software

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

var (
	ErrOutOfMemory    = errors.New("software device out of memory")
	ErrNotInFrame     = errors.New("no frame in progress")
	ErrAlreadyInFrame = errors.New("frame already begun")
)

func errForeignSurface(s metadata.Surface) error {
	return fmt.Errorf("surface %T was not created by the software device", s)
}

// Kernel runs one pass on the CPU, handing each output row to rows.
type Kernel func(inv *metadata.PassInvocation, rows Rows) error

// TraceKind classifies a recorded device call.
type TraceKind uint8

const (
	TraceBeginFrame TraceKind = iota
	TracePass
	TraceBarrier
	TraceClear
	TraceBlit
	TraceEndFrame
)

// TraceEntry is one recorded device call.
type TraceEntry struct {
	Kind    TraceKind
	Frame   uint64
	Epoch   uint64
	Pass    metadata.PassID
	Inputs  []string
	Outputs []string
	Width   uint32
	Height  uint32
}

// Option configures a Device at construction.
type Option func(*Device)

// WithMemoryBudget caps the bytes of live surfaces. Zero means unlimited.
func WithMemoryBudget(bytes uint64) Option {
	return func(d *Device) {
		d.budget = bytes
	}
}

// WithAllocationFailure makes CreateSurface fail whenever fn returns an error.
func WithAllocationFailure(fn func(desc metadata.AttachmentDesc) error) Option {
	return func(d *Device) {
		d.failAlloc = fn
	}
}

// WithPassFailure makes Execute fail whenever fn returns an error.
func WithPassFailure(fn func(inv *metadata.PassInvocation) error) Option {
	return func(d *Device) {
		d.failPass = fn
	}
}

// WithPassHook observes every invocation before its kernel runs.
func WithPassHook(fn func(inv *metadata.PassInvocation)) Option {
	return func(d *Device) {
		d.hook = fn
	}
}

// WithWorkers runs kernel rows on n goroutines. Below 2 kernels run on the
// calling goroutine.
func WithWorkers(n int) Option {
	return func(d *Device) {
		d.numWorkers = n
	}
}

// WithKernel replaces the reference kernel of a pass.
func WithKernel(id metadata.PassID, k Kernel) Option {
	return func(d *Device) {
		d.kernels[id] = k
	}
}

// Device is a CPU implementation of renderer.Device. It keeps a trace
// of every call so the submission order can be inspected.
type Device struct {
	live    map[*Image]struct{}
	used    uint64
	budget  uint64
	kernels map[metadata.PassID]Kernel

	numWorkers int
	workers    *WorkerPool

	failAlloc func(desc metadata.AttachmentDesc) error
	failPass  func(inv *metadata.PassInvocation) error
	hook      func(inv *metadata.PassInvocation)

	inFrame bool
	frame   uint64
	trace   []TraceEntry
}

func New(opts ...Option) *Device {
	d := &Device{
		live:    make(map[*Image]struct{}),
		kernels: referenceKernels(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Device) Initialize(appName string) error {
	if d.numWorkers > 1 && d.workers == nil {
		wp, err := NewWorkerPool(d.numWorkers, d.numWorkers)
		if err != nil {
			return err
		}
		d.workers = wp
	}
	core.LogDebug("software device initialized for %s with %d worker(s)", appName, max(d.numWorkers, 1))
	return nil
}

func (d *Device) rows() Rows {
	if d.workers == nil {
		return serialRows
	}
	return d.workers.Rows
}

func (d *Device) Shutdown() error {
	if d.workers != nil {
		d.workers.Shutdown()
		d.workers = nil
	}
	for im := range d.live {
		im.released = true
		im.Pix = nil
	}
	d.live = make(map[*Image]struct{})
	d.used = 0
	return nil
}

func (d *Device) CreateSurface(desc metadata.AttachmentDesc) (metadata.Surface, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("surface %s: %w", desc.Name, core.ErrInvalidExtent)
	}
	if desc.Format == metadata.FormatUnknown {
		return nil, fmt.Errorf("surface %s: %w", desc.Name, core.ErrUnsupportedFormat)
	}
	if d.failAlloc != nil {
		if err := d.failAlloc(desc); err != nil {
			return nil, err
		}
	}
	size := uint64(desc.Width) * uint64(desc.Height) * 16
	if d.budget > 0 && d.used+size > d.budget {
		return nil, fmt.Errorf("surface %s (%d bytes, %d in use): %w", desc.Name, size, d.used, ErrOutOfMemory)
	}
	im := newImage(desc)
	d.live[im] = struct{}{}
	d.used += im.bytes()
	return im, nil
}

func (d *Device) DestroySurface(surface metadata.Surface) {
	im, ok := surface.(*Image)
	if !ok {
		return
	}
	if _, live := d.live[im]; !live {
		return
	}
	delete(d.live, im)
	d.used -= im.bytes()
	im.released = true
	im.Pix = nil
}

func (d *Device) BeginFrame(frame uint64) error {
	if d.inFrame {
		return ErrAlreadyInFrame
	}
	d.inFrame = true
	d.frame = frame
	d.trace = append(d.trace, TraceEntry{Kind: TraceBeginFrame, Frame: frame})
	return nil
}

func (d *Device) EndFrame(frame uint64) error {
	if !d.inFrame {
		return ErrNotInFrame
	}
	d.inFrame = false
	d.trace = append(d.trace, TraceEntry{Kind: TraceEndFrame, Frame: frame})
	return nil
}

func (d *Device) Execute(inv *metadata.PassInvocation) error {
	if !d.inFrame {
		return ErrNotInFrame
	}
	entry := TraceEntry{Kind: TracePass, Frame: inv.Frame, Epoch: inv.Epoch, Pass: inv.Pass}
	for _, b := range inv.Inputs {
		if err := d.checkLive(b.Surface); err != nil {
			return fmt.Errorf("%s input %s: %w", inv.Pass, b.Role, err)
		}
		entry.Inputs = append(entry.Inputs, b.Surface.Name())
	}
	for _, b := range inv.Outputs {
		if err := d.checkLive(b.Surface); err != nil {
			return fmt.Errorf("%s output %s: %w", inv.Pass, b.Role, err)
		}
		entry.Outputs = append(entry.Outputs, b.Surface.Name())
		entry.Width, entry.Height = b.Surface.Width(), b.Surface.Height()
	}
	if d.hook != nil {
		d.hook(inv)
	}
	if d.failPass != nil {
		if err := d.failPass(inv); err != nil {
			return err
		}
	}
	d.trace = append(d.trace, entry)
	k, ok := d.kernels[inv.Pass]
	if !ok {
		return fmt.Errorf("no kernel for pass %s", inv.Pass)
	}
	return k(inv, d.rows())
}

func (d *Device) checkLive(s metadata.Surface) error {
	im, ok := s.(*Image)
	if !ok {
		return errForeignSurface(s)
	}
	if _, live := d.live[im]; !live {
		return fmt.Errorf("surface %s already destroyed", im.name)
	}
	return nil
}

// Barrier is a no-op on the CPU beyond recording it: kernels run to completion in order.
func (d *Device) Barrier(after metadata.PassID) error {
	if !d.inFrame {
		return ErrNotInFrame
	}
	d.trace = append(d.trace, TraceEntry{Kind: TraceBarrier, Frame: d.frame, Pass: after})
	return nil
}

func (d *Device) Clear(surface metadata.Surface, colour math.Vec4) error {
	im, ok := surface.(*Image)
	if !ok {
		return errForeignSurface(surface)
	}
	if im.released {
		return fmt.Errorf("clear %s: surface released", im.name)
	}
	im.Fill(colour)
	d.trace = append(d.trace, TraceEntry{Kind: TraceClear, Frame: d.frame, Outputs: []string{im.name}, Width: im.width, Height: im.height})
	return nil
}

// Blit copies src into dst with nearest-neighbour scaling.
func (d *Device) Blit(src, dst metadata.Surface) error {
	s, ok := src.(*Image)
	if !ok {
		return errForeignSurface(src)
	}
	t, ok := dst.(*Image)
	if !ok {
		return errForeignSurface(dst)
	}
	if s.released || t.released {
		return fmt.Errorf("blit %s -> %s: surface released", s.name, t.name)
	}
	for y := uint32(0); y < t.height; y++ {
		sy := y * s.height / t.height
		for x := uint32(0); x < t.width; x++ {
			sx := x * s.width / t.width
			t.Set(x, y, s.At(sx, sy))
		}
	}
	d.trace = append(d.trace, TraceEntry{
		Kind: TraceBlit, Frame: d.frame,
		Inputs: []string{s.name}, Outputs: []string{t.name},
		Width: s.width, Height: s.height,
	})
	return nil
}

// Trace returns a copy of the recorded calls.
func (d *Device) Trace() []TraceEntry {
	out := make([]TraceEntry, len(d.trace))
	copy(out, d.trace)
	return out
}

// ResetTrace drops the recorded calls.
func (d *Device) ResetTrace() {
	d.trace = d.trace[:0]
}

// PassOrder returns the passes executed during frame, in submission order.
func (d *Device) PassOrder(frame uint64) []metadata.PassID {
	var out []metadata.PassID
	for _, e := range d.trace {
		if e.Kind == TracePass && e.Frame == frame {
			out = append(out, e.Pass)
		}
	}
	return out
}

// LiveSurfaces is the number of surfaces not yet destroyed.
func (d *Device) LiveSurfaces() int {
	return len(d.live)
}

// MemoryInUse is the number of bytes held by live surfaces.
func (d *Device) MemoryInUse() uint64 {
	return d.used
}
