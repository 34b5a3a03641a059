package targets

import (
	"fmt"

	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

// Ring alternates two history bundles for temporal accumulation. The
// active bundle is written this frame while the other holds the last one.
type Ring struct {
	pool         *Pool
	slots        [2]*metadata.FrameTarget
	active       int
	historyValid bool
	swaps        uint64
}

func NewRing(pool *Pool) *Ring {
	return &Ring{pool: pool}
}

// Bind points the ring at the history bundles of set. Sets without
// history bundles leave the ring unbound.
func (r *Ring) Bind(set *TargetSet) {
	r.slots = [2]*metadata.FrameTarget{set.Target(metadata.TargetHistory0), set.Target(metadata.TargetHistory1)}
	if r.slots[0] == nil || r.slots[1] == nil {
		r.slots = [2]*metadata.FrameTarget{}
	}
	r.active = 0
	r.historyValid = false
}

func (r *Ring) Bound() bool {
	return r.slots[0] != nil
}

func (r *Ring) Active() *metadata.FrameTarget {
	return r.slots[r.active]
}

func (r *Ring) History() *metadata.FrameTarget {
	return r.slots[1-r.active]
}

// Swap flips the slots once a frame has completed.
func (r *Ring) Swap() {
	if !r.Bound() {
		return
	}
	r.active = 1 - r.active
	r.historyValid = true
	r.swaps++
}

// HistoryValid is false from a Reset until the next Swap.
func (r *Ring) HistoryValid() bool {
	return r.historyValid
}

// Swaps counts completed swaps since the ring was created.
func (r *Ring) Swaps() uint64 {
	return r.swaps
}

// Reset clears both bundles so no stale history is ever blended in.
func (r *Ring) Reset() error {
	r.historyValid = false
	r.active = 0
	if !r.Bound() {
		return nil
	}
	for _, ft := range r.slots {
		for _, a := range ft.Attachments {
			s, err := r.pool.Resolve(a.Handle)
			if err != nil {
				return fmt.Errorf("reset %s: %w", ft.Name, err)
			}
			if err := r.pool.device.Clear(s, math.Vec4{}); err != nil {
				return fmt.Errorf("reset %s: %w", ft.Name, err)
			}
		}
	}
	return nil
}
