package core

import (
	"errors"
)

var (
	ErrConfiguration      = errors.New("render target configuration failed")
	ErrInvalidExtent      = errors.New("render target extent must be non-zero")
	ErrUnsupportedFormat  = errors.New("attachment format not supported by device")
	ErrStaleHandle        = errors.New("attachment handle belongs to a released epoch")
	ErrFrameInProgress    = errors.New("frame already in progress")
	ErrFrameDropped       = errors.New("frame dropped")
	ErrUndeclaredAccess   = errors.New("pass accessed an attachment it did not declare")
	ErrQueueFull          = errors.New("change queue is full")
	ErrNotConfigured      = errors.New("pipeline not configured")
	ErrDeviceNotAvailable = errors.New("device not available")
)
