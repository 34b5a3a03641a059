package renderer

import (
	"fmt"
	"strings"
)

type RendererType uint8

const (
	Software RendererType = iota
	Vulkan
)

func (t RendererType) String() string {
	switch t {
	case Software:
		return "software"
	case Vulkan:
		return "vulkan"
	}
	return fmt.Sprintf("renderer(%d)", uint8(t))
}

func ParseRendererType(s string) (RendererType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "software", "cpu":
		return Software, nil
	case "vulkan", "vk":
		return Vulkan, nil
	}
	return Software, fmt.Errorf("unknown renderer backend %q", s)
}
