// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"errors"

	"github.com/kestrelgpu/rhi/wsi"
)

// ErrCannotPresent means that the driver and/or device do not
// support presentation.
var ErrCannotPresent = errors.New("presentation not supported")

// ErrWindow represents an error related to a specific window.
// This error usually indicates that a window misconfiguration
// is preventing correct operation. For instance, the driver
// may require a visible window to create a swapchain.
var ErrWindow = errors.New("window-related error")

// ErrCompositor represents an error related to the compositor.
// This error usually indicates that the compositor behavior
// is preventing correct operation. For instance, the driver
// may require support for opaque composition.
var ErrCompositor = errors.New("compositor-related error")

// ErrSwapchain represents an error related to a specific
// swapchain.
// This error usually indicates that changes to the window or
// compositor made the swapchain unusable.
var ErrSwapchain = errors.New("swapchain-related error")

// ErrNoBackbuffer means that all available backbuffers
// were acquired.
// Backbuffers are released during presentation.
var ErrNoBackbuffer = errors.New("all backbuffers in use")

// Presenter is the interface that a GPU may implement
// to enable presentation on a display.
type Presenter interface {
	// NewSwapchain creates a new swapchain.
	// Only one swapchain can be associated with a specific
	// wsi.Window at a time.
	// With vsync set, presentation waits for vertical sync
	// (FIFO); otherwise the driver selects a non-blocking
	// present mode (Mailbox or Immediate) when the surface
	// supports one, falling back to FIFO when it does not.
	NewSwapchain(win wsi.Window, imageCount int, vsync bool) (Swapchain, error)
}

// Swapchain is the interface that defines a n-buffered
// swapchain for presentation.
// To present, one calls Next to acquire an image, records
// commands that transition the image out of LUndefined,
// write to it and transition it to LPresent, commits those
// commands, and then calls Present.
// As a limitation, an image acquired by Next must be
// written by a single Commit call.
type Swapchain interface {
	Destroyer

	// Views returns the list of image views that
	// comprises the swapchain.
	// This value remains unchanged as long as the
	// swapchain's Destroy or Recreate methods are
	// not called.
	Views() []ImageView

	// Next returns the index of the next writable
	// image view.
	// Commands that write to the image must be
	// recorded after Next returns, beginning with a
	// Transition out of the LUndefined layout, which
	// is what establishes the wait on the image's
	// acquisition.
	Next() (int, error)

	// Present presents the image view identified
	// by index.
	// The command buffer that wrote to the image
	// must transition it to the LPresent layout and
	// must have been committed already; Present
	// waits on the semaphore that commit signals.
	Present(index int) error

	// Recreate recreates the swapchain.
	// It is meant to be called in response to a
	// ErrSwapchain error.
	Recreate() error

	// SetVSync sets whether presentation waits for vertical
	// sync, as NewSwapchain's vsync parameter does at
	// creation. The change takes effect on the next
	// Recreate.
	SetVSync(vsync bool)

	// Format returns the image views' PixelFmt.
	Format() PixelFmt
}
