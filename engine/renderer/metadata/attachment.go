package metadata

import "fmt"

// Format is the texel format of an attachment surface.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatRGBA8Unorm
	FormatRGBA16Float
	FormatRG16Float
	FormatR16Float
	FormatDepth32Float
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8Unorm:
		return "rgba8unorm"
	case FormatRGBA16Float:
		return "rgba16float"
	case FormatRG16Float:
		return "rg16float"
	case FormatR16Float:
		return "r16float"
	case FormatDepth32Float:
		return "depth32float"
	}
	return "unknown"
}

// Channels is the number of components stored per texel.
func (f Format) Channels() int {
	switch f {
	case FormatRGBA8Unorm, FormatRGBA16Float:
		return 4
	case FormatRG16Float:
		return 2
	case FormatR16Float, FormatDepth32Float:
		return 1
	}
	return 0
}

func (f Format) IsDepth() bool {
	return f == FormatDepth32Float
}

// AttachmentRole is the meaning of an attachment inside a FrameTarget.
type AttachmentRole uint8

const (
	AttachmentDepth AttachmentRole = iota
	AttachmentVisibility
	AttachmentHDRColour
	AttachmentNormal
	AttachmentMotionVector
	AttachmentLDRColour
)

func (r AttachmentRole) String() string {
	switch r {
	case AttachmentDepth:
		return "depth"
	case AttachmentVisibility:
		return "visibility"
	case AttachmentHDRColour:
		return "hdr-colour"
	case AttachmentNormal:
		return "normal"
	case AttachmentMotionVector:
		return "motion-vector"
	case AttachmentLDRColour:
		return "ldr-colour"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// AttachmentDesc is everything a device needs to create one surface.
type AttachmentDesc struct {
	Name   string
	Role   AttachmentRole
	Format Format
	Width  uint32
	Height uint32
}

// Handle is a non-owning reference into the target pool. It stays valid
// only while the slot it points at keeps the same generation.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsValid reports whether the handle was ever issued. Generation zero is never handed out.
func (h Handle) IsValid() bool {
	return h.Generation != 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.Index, h.Generation)
}

// Names of the bundles the pool builds for every epoch.
const (
	TargetGBuffer  = "gbuffer"
	TargetShadow   = "shadow"
	TargetToneMap  = "tonemap"
	TargetAO       = "ao"
	TargetResolve  = "resolve"
	TargetHistory0 = "history0"
	TargetHistory1 = "history1"
)

// AttachmentRef pairs a role with the pool handle backing it.
type AttachmentRef struct {
	Role   AttachmentRole
	Handle Handle
}

// FrameTarget is a named bundle of equally sized surfaces. The depth
// attachment may be shared between bundles of the same epoch.
type FrameTarget struct {
	Name        string
	Kind        string
	Width       uint32
	Height      uint32
	Epoch       uint64
	Attachments []AttachmentRef
}

// Attachment returns the handle bound to role, if the bundle has one.
func (ft *FrameTarget) Attachment(role AttachmentRole) (Handle, bool) {
	if ft == nil {
		return Handle{}, false
	}
	for _, a := range ft.Attachments {
		if a.Role == role {
			return a.Handle, true
		}
	}
	return Handle{}, false
}

// MustAttachment is Attachment for bundles whose layout is fixed by the pool.
func (ft *FrameTarget) MustAttachment(role AttachmentRole) Handle {
	h, ok := ft.Attachment(role)
	if !ok {
		panic(fmt.Sprintf("frame target %s has no %s attachment", ft.Name, role))
	}
	return h
}

// Surface is a device-owned image. Backends return their own concrete types.
type Surface interface {
	Name() string
	Width() uint32
	Height() uint32
	Format() Format
}
